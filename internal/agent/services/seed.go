package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDemo inserts a small fixed dataset relative to now. Rows already
// present are left alone.
func SeedDemo(ctx context.Context, db *sql.DB, now time.Time) error {
	day := func(n int) string { return now.AddDate(0, 0, n).UTC().Format(time.RFC3339) }

	stmts := []struct {
		sql  string
		args []any
	}{
		{`INSERT OR IGNORE INTO users VALUES (?, ?, ?)`, []any{"USR-1001", "Ava Chen", "ava@example.com"}},
		{`INSERT OR IGNORE INTO users VALUES (?, ?, ?)`, []any{"USR-1002", "Ben Ortiz", "ben@example.com"}},

		{`INSERT OR IGNORE INTO orders VALUES (?, ?, ?, ?, ?, ?, ?)`, []any{"ORD-20001", "USR-1001", "Gaming Monitor 27in", "shipped", 1, 329.99, day(-6)}},
		{`INSERT OR IGNORE INTO orders VALUES (?, ?, ?, ?, ?, ?, ?)`, []any{"ORD-20002", "USR-1001", "Mechanical Keyboard", "delivered", 1, 89.50, day(-40)}},
		{`INSERT OR IGNORE INTO orders VALUES (?, ?, ?, ?, ?, ?, ?)`, []any{"ORD-20003", "USR-1002", "Wireless Headphones", "processing", 2, 158.00, day(-2)}},

		{`INSERT OR IGNORE INTO shipments VALUES (?, ?, ?, ?, ?, ?, ?)`, []any{"SHP-1", "ORD-20001", "OSH12345678", "in_transit", "Denver Hub", "OmniShip", day(2)}},
		{`INSERT OR IGNORE INTO shipments VALUES (?, ?, ?, ?, ?, ?, ?)`, []any{"SHP-2", "ORD-20002", "OSH87654321", "delivered", "Customer Door", "OmniShip", day(-35)}},
		{`INSERT OR IGNORE INTO tracking_events VALUES (?, ?, ?, ?)`, []any{"SHP-1", day(-5), "picked_up", "Austin Warehouse"}},
		{`INSERT OR IGNORE INTO tracking_events VALUES (?, ?, ?, ?)`, []any{"SHP-1", day(-3), "in_transit", "Denver Hub"}},

		{`INSERT OR IGNORE INTO wallets VALUES (?, ?, ?)`, []any{"USR-1001", 42.75, "USD"}},
		{`INSERT OR IGNORE INTO transactions VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, []any{"TXN-30001", "USR-1001", "ORD-20001", "payment", "completed", 329.99, day(-6), "REF-900001"}},
		{`INSERT OR IGNORE INTO transactions VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, []any{"TXN-30002", "USR-1001", "ORD-20002", "refund", "pending", 89.50, day(-3), "REF-900002"}},
		{`INSERT OR IGNORE INTO transactions VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, []any{"TXN-30003", "USR-1002", "ORD-20003", "payment", "completed", 158.00, day(-2), "REF-900003"}},

		{`INSERT OR IGNORE INTO tickets VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, []any{"TCK-5001", "USR-1001", "ORD-20001", nil, "Monitor delivery is late", "open", "high", "Maya Patel", day(-1)}},
		{`INSERT OR IGNORE INTO tickets VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, []any{"TCK-5002", "USR-1001", "ORD-20002", "REF-900002", "Refund not received", "in_progress", "medium", nil, day(-2)}},
	}

	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s.sql, s.args...); err != nil {
			return fmt.Errorf("seed statement %d: %w", i, err)
		}
	}
	return nil
}
