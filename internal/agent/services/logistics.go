package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
)

var shipmentStatuses = []string{"delivered", "delayed", "in_transit", "out_for_delivery", "created"}

// Logistics answers shipment lookups by tracking number, order or user.
type Logistics struct{ base }

func NewLogistics(db *sql.DB, opts ...Option) *Logistics {
	return &Logistics{newBase(db, opts...)}
}

func (l *Logistics) Name() model.ServiceName { return model.ServiceLogistics }

func (l *Logistics) Execute(ctx context.Context, req model.ServiceRequest) model.ServiceResult {
	started := time.Now()
	tracking := lookup(req, model.CtxTrackingNumber, model.EntityTrackingNumber)
	orderID := lookup(req, model.CtxOrderID, model.EntityOrderID)
	userID := lookup(req, model.CtxUserID, model.EntityUserID)

	f := &filter{}
	switch {
	case req.Mode == model.ModeDirect && tracking != "":
		f.add("s.tracking_number = ?", tracking)
	case req.Mode == model.ModeDirect && orderID != "":
		f.add("s.order_id = ?", orderID)
	case req.Mode == model.ModeDirect:
		if userID != "" {
			f.add("o.user_id = ?", userID)
		}
	default:
		if tracking != "" {
			f.add("s.tracking_number = ?", tracking)
		}
		if orderID != "" {
			f.add("s.order_id = ?", orderID)
		}
		if userID != "" && tracking == "" && orderID == "" {
			f.add("o.user_id = ?", userID)
		}
		if s := statusFilter(req, shipmentStatuses); s != "" {
			f.add("s.status = ?", s)
		}
	}

	stmt := `SELECT s.id AS shipment_id, s.tracking_number, s.order_id, s.status, s.current_location,
		s.carrier, s.estimated_arrival FROM shipments s LEFT JOIN orders o ON o.id = s.order_id` +
		f.where() + ` ORDER BY s.estimated_arrival DESC LIMIT ?`

	rows, err := query(ctx, l.db, stmt, append(f.args, limitOf(req))...)
	if err != nil {
		logx.Error().Err(err).Str("service", string(model.ServiceLogistics)).Msg("shipment lookup failed")
		return dbFailure(model.ServiceLogistics, err, started)
	}
	if len(rows) == 0 {
		return emptyResult(model.ServiceLogistics, req, f, started)
	}

	if req.Mode != model.ModeSimple && req.Mode != model.ModeCached {
		for _, r := range rows {
			events, err := l.events(ctx, r.Get("shipment_id"))
			if err != nil {
				return dbFailure(model.ServiceLogistics, err, started)
			}
			r["tracking_events"] = events
		}
	}
	return model.ServiceResult{Service: model.ServiceLogistics, Success: true, Data: rows, Latency: time.Since(started)}
}

// events renders a shipment's tracking history oldest first.
func (l *Logistics) events(ctx context.Context, shipmentID string) (string, error) {
	rows, err := query(ctx, l.db,
		`SELECT at, status, IFNULL(location, '') AS location FROM tracking_events
		WHERE shipment_id = ? ORDER BY at`, shipmentID)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		line := r.Get("at") + " " + r.Get("status")
		if loc := r.Get("location"); loc != "" {
			line += " @ " + loc
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "; "), nil
}
