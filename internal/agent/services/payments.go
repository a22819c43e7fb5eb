package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
)

var transactionStatuses = []string{"pending", "completed", "failed", "reversed"}

// Payments answers transaction, refund and wallet lookups.
type Payments struct{ base }

func NewPayments(db *sql.DB, opts ...Option) *Payments {
	return &Payments{newBase(db, opts...)}
}

func (p *Payments) Name() model.ServiceName { return model.ServicePayment }

func (p *Payments) Execute(ctx context.Context, req model.ServiceRequest) model.ServiceResult {
	started := time.Now()
	lower := strings.ToLower(req.Query)
	reference := lookup(req, model.CtxTransactionID, model.EntityTransactionID)
	orderID := lookup(req, model.CtxOrderID, model.EntityOrderID)
	userID := lookup(req, model.CtxUserID, model.EntityUserID)

	f := &filter{}
	switch {
	case req.Mode == model.ModeDirect && reference != "":
		f.add("(t.reference = ? OR t.id = ?)", reference, reference)
	case req.Mode == model.ModeDirect && orderID != "":
		f.add("t.order_id = ?", orderID)
	case req.Mode == model.ModeDirect:
		if userID != "" {
			f.add("t.user_id = ?", userID)
		}
	default:
		if reference != "" {
			f.add("(t.reference = ? OR t.id = ?)", reference, reference)
		}
		if orderID != "" {
			f.add("t.order_id = ?", orderID)
		}
		if userID != "" {
			f.add("t.user_id = ?", userID)
		}
		if req.Mode == model.ModeStandard && strings.Contains(lower, "refund") {
			f.add("t.type = ?", "refund")
		}
		if s := statusFilter(req, transactionStatuses); s != "" {
			f.add("t.status = ?", s)
		}
		if since, ok := sinceFilter(req, p.now()); ok {
			f.add("t.date >= ?", since.Format(time.RFC3339))
		}
	}

	stmt := `SELECT t.id AS transaction_id, t.order_id, t.user_id, t.type, t.status, t.amount,
		t.date, t.reference FROM transactions t` + f.where() + ` ORDER BY t.date DESC LIMIT ?`
	rows, err := query(ctx, p.db, stmt, append(f.args, limitOf(req))...)
	if err != nil {
		logx.Error().Err(err).Str("service", string(model.ServicePayment)).Msg("transaction lookup failed")
		return dbFailure(model.ServicePayment, err, started)
	}

	if userID != "" && (strings.Contains(lower, "wallet") || strings.Contains(lower, "balance")) {
		wallet, err := query(ctx, p.db,
			`SELECT user_id, 'wallet' AS type, 'active' AS status, balance AS amount, currency AS reference
			FROM wallets WHERE user_id = ?`, userID)
		if err != nil {
			return dbFailure(model.ServicePayment, err, started)
		}
		rows = append(wallet, rows...)
	}

	if len(rows) == 0 {
		return emptyResult(model.ServicePayment, req, f, started)
	}
	return model.ServiceResult{Service: model.ServicePayment, Success: true, Data: rows, Latency: time.Since(started)}
}
