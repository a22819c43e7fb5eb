package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
)

var ticketStatuses = []string{"open", "in_progress", "waiting", "resolved", "closed"}

// Support answers ticket lookups by ticket id, order, transaction or user.
type Support struct{ base }

func NewSupport(db *sql.DB, opts ...Option) *Support {
	return &Support{newBase(db, opts...)}
}

func (s *Support) Name() model.ServiceName { return model.ServiceSupport }

func (s *Support) Execute(ctx context.Context, req model.ServiceRequest) model.ServiceResult {
	started := time.Now()
	ticketID := lookup(req, model.CtxTicketID, model.EntityTicketID)
	orderID := lookup(req, model.CtxOrderID, model.EntityOrderID)
	reference := lookup(req, model.CtxTransactionID, model.EntityTransactionID)
	userID := lookup(req, model.CtxUserID, model.EntityUserID)

	f := &filter{}
	switch {
	case req.Mode == model.ModeDirect && ticketID != "":
		f.add("k.id = ?", ticketID)
	case req.Mode == model.ModeDirect && orderID != "":
		f.add("k.order_id = ?", orderID)
	case req.Mode == model.ModeDirect:
		if userID != "" {
			f.add("k.user_id = ?", userID)
		}
	default:
		if ticketID != "" {
			f.add("k.id = ?", ticketID)
		}
		switch {
		case orderID != "" && reference != "":
			f.add("(k.order_id = ? OR k.reference = ?)", orderID, reference)
		case orderID != "":
			f.add("k.order_id = ?", orderID)
		case reference != "":
			f.add("k.reference = ?", reference)
		}
		if userID != "" {
			f.add("k.user_id = ?", userID)
		}
		if st := statusFilter(req, ticketStatuses); st != "" {
			f.add("k.status = ?", st)
		}
		if since, ok := sinceFilter(req, s.now()); ok {
			f.add("k.created_at >= ?", since.Format(time.RFC3339))
		}
	}

	stmt := `SELECT k.id AS ticket_id, k.user_id, k.order_id, k.subject, k.status, k.priority,
		k.assigned_to, k.created_at FROM tickets k` + f.where() + ` ORDER BY k.created_at DESC LIMIT ?`
	rows, err := query(ctx, s.db, stmt, append(f.args, limitOf(req))...)
	if err != nil {
		logx.Error().Err(err).Str("service", string(model.ServiceSupport)).Msg("ticket lookup failed")
		return dbFailure(model.ServiceSupport, err, started)
	}
	if len(rows) == 0 {
		return emptyResult(model.ServiceSupport, req, f, started)
	}
	return model.ServiceResult{Service: model.ServiceSupport, Success: true, Data: rows, Latency: time.Since(started)}
}
