package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
)

var orderStatuses = []string{"pending", "processing", "shipped", "delivered", "cancelled", "returned"}

// Orders answers order lookups by id, user, product, status and date.
type Orders struct{ base }

func NewOrders(db *sql.DB, opts ...Option) *Orders {
	return &Orders{newBase(db, opts...)}
}

func (o *Orders) Name() model.ServiceName { return model.ServiceOrder }

func (o *Orders) Execute(ctx context.Context, req model.ServiceRequest) model.ServiceResult {
	started := time.Now()
	orderID := lookup(req, model.CtxOrderID, model.EntityOrderID)
	userID := lookup(req, model.CtxUserID, model.EntityUserID)
	product := lookup(req, model.CtxProductName, model.EntityProductName)

	f := &filter{}
	switch req.Mode {
	case model.ModeDirect:
		switch {
		case orderID != "":
			f.add("o.id = ?", orderID)
		case userID != "":
			f.add("o.user_id = ?", userID)
		case product != "":
			addProduct(f, "o.product_name", product, true)
		}
	default:
		if orderID != "" {
			f.add("o.id = ?", orderID)
		}
		if userID != "" {
			f.add("o.user_id = ?", userID)
		}
		if product != "" && req.Mode != model.ModeSimple {
			addProduct(f, "o.product_name", product, req.Mode == model.ModeBroad)
		}
		if s := statusFilter(req, orderStatuses); s != "" {
			f.add("o.status = ?", s)
		}
		if since, ok := sinceFilter(req, o.now()); ok {
			f.add("o.order_date >= ?", since.Format(time.RFC3339))
		}
	}

	cols := `o.id AS order_id, o.user_id, u.name AS user_name, o.product_name, o.status,
		o.quantity, o.total_amount, o.order_date`
	if req.Mode == model.ModeSimple || req.Mode == model.ModeCached {
		cols = `o.id AS order_id, o.user_id, o.product_name, o.status, o.total_amount`
	}
	stmt := `SELECT ` + cols + ` FROM orders o LEFT JOIN users u ON u.id = o.user_id` +
		f.where() + ` ORDER BY o.order_date DESC LIMIT ?`

	rows, err := query(ctx, o.db, stmt, append(f.args, limitOf(req))...)
	if err != nil {
		logx.Error().Err(err).Str("service", string(model.ServiceOrder)).Msg("order lookup failed")
		return dbFailure(model.ServiceOrder, err, started)
	}
	if len(rows) == 0 {
		return emptyResult(model.ServiceOrder, req, f, started)
	}
	return model.ServiceResult{Service: model.ServiceOrder, Success: true, Data: rows, Latency: time.Since(started)}
}
