package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
)

// Migrations create the reference schema. Statements are idempotent.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id    TEXT PRIMARY KEY,
		name  TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL REFERENCES users(id),
		product_name TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'pending',
		quantity     INTEGER NOT NULL DEFAULT 1,
		total_amount REAL NOT NULL,
		order_date   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS shipments (
		id                TEXT PRIMARY KEY,
		order_id          TEXT NOT NULL,
		tracking_number   TEXT NOT NULL UNIQUE,
		status            TEXT NOT NULL DEFAULT 'created',
		current_location  TEXT,
		carrier           TEXT NOT NULL DEFAULT 'OmniShip',
		estimated_arrival TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tracking_events (
		shipment_id TEXT NOT NULL REFERENCES shipments(id),
		at          TEXT NOT NULL,
		status      TEXT NOT NULL,
		location    TEXT,
		UNIQUE (shipment_id, at, status)
	)`,
	`CREATE TABLE IF NOT EXISTS wallets (
		user_id  TEXT PRIMARY KEY,
		balance  REAL NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT 'USD'
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id        TEXT PRIMARY KEY,
		user_id   TEXT NOT NULL,
		order_id  TEXT,
		type      TEXT NOT NULL,
		status    TEXT NOT NULL DEFAULT 'pending',
		amount    REAL NOT NULL,
		date      TEXT NOT NULL,
		reference TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		order_id    TEXT,
		reference   TEXT,
		subject     TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'open',
		priority    TEXT NOT NULL DEFAULT 'medium',
		assigned_to TEXT,
		created_at  TEXT NOT NULL
	)`,
}

const defaultLimit = 10

// filter accumulates WHERE clauses with their positional arguments.
type filter struct {
	clauses []string
	args    []any
	shown   []string
}

func (f *filter) add(clause string, args ...any) {
	f.clauses = append(f.clauses, clause)
	f.args = append(f.args, args...)
	f.shown = append(f.shown, fmt.Sprintf("%s %v", clause, args))
}

func (f *filter) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

func (f *filter) String() string {
	if len(f.shown) == 0 {
		return "no filters"
	}
	return strings.Join(f.shown, ", ")
}

// scanRecords reads every row into a Record keyed by column name.
func scanRecords(rows *sql.Rows) ([]model.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []model.Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(model.Record, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				rec[c] = string(b)
				continue
			}
			rec[c] = vals[i]
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func query(ctx context.Context, db *sql.DB, stmt string, args ...any) ([]model.Record, error) {
	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func limitOf(req model.ServiceRequest) int {
	if req.Limit > 0 {
		return req.Limit
	}
	if req.Mode == model.ModeSimple {
		return 5
	}
	return defaultLimit
}

// lookup reads an identifier from the folded context first, then from the
// extracted entities.
func lookup(req model.ServiceRequest, key string, t model.EntityType) string {
	if v := strings.TrimSpace(req.Context[key]); v != "" {
		return v
	}
	if e, ok := model.FirstEntity(req.Entities, t); ok {
		return e.Value
	}
	return ""
}

// statusFilter picks a status mentioned in the context or query text. Broad
// and simple requests never filter by status.
func statusFilter(req model.ServiceRequest, known []string) string {
	if req.Mode == model.ModeBroad || req.Mode == model.ModeSimple {
		return ""
	}
	if v := req.Context[model.CtxStatus]; v != "" {
		return strings.ToLower(v)
	}
	lower := strings.ToLower(req.Query)
	for _, s := range known {
		if strings.Contains(lower, s) {
			return s
		}
	}
	return ""
}

// sinceFilter turns a date context value ("last 7 days", "past month", or an
// ISO date) into a lower bound.
func sinceFilter(req model.ServiceRequest, now time.Time) (time.Time, bool) {
	if req.Mode == model.ModeBroad || req.Mode == model.ModeSimple {
		return time.Time{}, false
	}
	v := strings.ToLower(strings.TrimSpace(req.Context[model.CtxDate]))
	if v == "" {
		if e, ok := model.FirstEntity(req.Entities, model.EntityDateRange); ok {
			v = strings.ToLower(e.Value)
		}
	}
	if v == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, true
	}

	n := 1
	for _, f := range strings.Fields(v) {
		var k int
		if _, err := fmt.Sscanf(f, "%d", &k); err == nil && k > 0 {
			n = k
		}
	}
	switch {
	case strings.Contains(v, "day"):
		return now.AddDate(0, 0, -n), true
	case strings.Contains(v, "week"):
		return now.AddDate(0, 0, -7*n), true
	case strings.Contains(v, "month"):
		return now.AddDate(0, -n, 0), true
	case strings.Contains(v, "year"):
		return now.AddDate(-n, 0, 0), true
	}
	return time.Time{}, false
}

// emptyResult reports a zero-row lookup. Targeted lookups that find nothing
// fail so recovery can broaden them; broad and simple lookups succeed empty.
func emptyResult(s model.ServiceName, req model.ServiceRequest, f *filter, started time.Time) model.ServiceResult {
	if req.Mode == model.ModeBroad || req.Mode == model.ModeSimple || len(f.clauses) == 0 {
		return model.ServiceResult{Service: s, Success: true, Data: []model.Record{}, Latency: time.Since(started)}
	}
	return model.Failed(s, "no results found for "+f.String(), time.Since(started))
}

func dbFailure(s model.ServiceName, err error, started time.Time) model.ServiceResult {
	return model.Failed(s, err.Error(), time.Since(started))
}

// base carries what every SQLite-backed service shares.
type base struct {
	db  *sql.DB
	now func() time.Time
}

func (b base) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Option configures the SQLite-backed services.
type Option func(*base)

// WithClock overrides time.Now for date filters.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

func newBase(db *sql.DB, opts ...Option) base {
	b := base{db: db, now: time.Now}
	for _, o := range opts {
		o(&b)
	}
	return b
}

// NewSQLite builds all four services over one database.
func NewSQLite(db *sql.DB, opts ...Option) []Service {
	return []Service{
		NewOrders(db, opts...),
		NewLogistics(db, opts...),
		NewPayments(db, opts...),
		NewSupport(db, opts...),
	}
}

var genericWords = map[string]bool{
	"order": true, "orders": true, "status": true, "where": true, "my": true, "the": true,
	"is": true, "for": true, "of": true, "delivery": true, "shipment": true, "package": true,
	"refund": true, "ticket": true, "track": true, "and": true, "with": true, "about": true,
}

func productTerms(value string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(value)) {
		w = strings.Trim(w, `'".,?!`)
		if len(w) < 3 || genericWords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// addProduct filters col by the product's significant words: all of them for
// targeted lookups, any of them for broad ones.
func addProduct(f *filter, col, value string, broad bool) {
	terms := productTerms(value)
	if len(terms) == 0 {
		return
	}
	parts := make([]string, len(terms))
	args := make([]any, len(terms))
	for i, t := range terms {
		parts[i] = "LOWER(" + col + ") LIKE ?"
		args[i] = "%" + t + "%"
	}
	joiner := " AND "
	if broad {
		joiner = " OR "
	}
	f.add("("+strings.Join(parts, joiner)+")", args...)
}
