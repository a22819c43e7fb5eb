package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/orchestrator/internal/core/error"
	"github.com/Chative-core-poc-v1/orchestrator/pkg/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:", Migrations)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, SeedDemo(ctx, db, fixedNow))
	return db
}

func request(q string, mode model.RequestMode, ctx map[string]string, entities ...model.ExtractedEntity) model.ServiceRequest {
	if ctx == nil {
		ctx = map[string]string{}
	}
	return model.ServiceRequest{Query: q, Context: ctx, Entities: entities, Mode: mode}
}

func TestRegistry(t *testing.T) {
	db := newDB(t)
	reg, err := NewRegistry(NewSQLite(db, WithClock(func() time.Time { return fixedNow }))...)
	require.NoError(t, err)
	assert.Equal(t, model.AllServices(), reg.Names())

	s, ok := reg.Get(model.ServiceLogistics)
	require.True(t, ok)
	assert.Equal(t, model.ServiceLogistics, s.Name())

	for _, rd := range reg.Ping(context.Background()) {
		assert.True(t, rd.Ready, rd.Service)
	}
}

func TestRegistryRejectsUnknownAndDuplicate(t *testing.T) {
	ok := func(context.Context, model.ServiceRequest) model.ServiceResult { return model.ServiceResult{} }

	_, err := NewRegistry(Func{N: "inventory", Run: ok})
	assert.ErrorIs(t, err, errx.ErrUnknownService)

	_, err = NewRegistry(Func{N: model.ServiceOrder, Run: ok}, Func{N: model.ServiceOrder, Run: ok})
	assert.Error(t, err)
}

func TestOrdersByProductAndUser(t *testing.T) {
	o := NewOrders(newDB(t))

	res := o.Execute(context.Background(), request("status of my gaming monitor", model.ModeStandard, nil,
		model.ExtractedEntity{Type: model.EntityProductName, Value: "gaming monitor order"}))
	require.True(t, res.Success, res.Error)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "ORD-20001", res.Data[0].Get("order_id"))
	assert.Equal(t, "Ava Chen", res.Data[0].Get("user_name"))

	res = o.Execute(context.Background(), request("my orders", model.ModeStandard,
		map[string]string{model.CtxUserID: "USR-1001"}))
	require.True(t, res.Success)
	assert.Len(t, res.Data, 2)
	assert.Equal(t, "ORD-20001", res.Data[0].Get("order_id"), "newest first")
}

func TestOrdersEmptyTargetedLookupFailsAndBroadSucceeds(t *testing.T) {
	o := NewOrders(newDB(t))
	ctx := map[string]string{model.CtxUserID: "USR-1001"}

	res := o.Execute(context.Background(), request("my cancelled orders", model.ModeStandard, ctx))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "no results")

	res = o.Execute(context.Background(), request("my cancelled orders", model.ModeBroad, ctx))
	require.True(t, res.Success)
	assert.Len(t, res.Data, 2)
}

func TestOrdersDateRange(t *testing.T) {
	o := NewOrders(newDB(t), WithClock(func() time.Time { return fixedNow }))
	res := o.Execute(context.Background(), request("orders from last 7 days", model.ModeStandard, nil,
		model.ExtractedEntity{Type: model.EntityDateRange, Value: "last 7 days"}))
	require.True(t, res.Success, res.Error)
	assert.Len(t, res.Data, 2)
}

func TestLogisticsFoldsFromOrder(t *testing.T) {
	l := NewLogistics(newDB(t))
	res := l.Execute(context.Background(), request("where is it", model.ModeStandard,
		map[string]string{model.CtxOrderID: "ORD-20001"}))
	require.True(t, res.Success, res.Error)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "OSH12345678", res.Data[0].Get("tracking_number"))
	assert.Equal(t, "Denver Hub", res.Data[0].Get("current_location"))
	assert.Contains(t, res.Data[0].Get("tracking_events"), "picked_up @ Austin Warehouse")
}

func TestLogisticsDirectByTracking(t *testing.T) {
	l := NewLogistics(newDB(t))
	res := l.Execute(context.Background(), request("track OSH87654321", model.ModeDirect, nil,
		model.ExtractedEntity{Type: model.EntityTrackingNumber, Value: "OSH87654321"}))
	require.True(t, res.Success)
	assert.Equal(t, "delivered", res.Data[0].Get("status"))
}

func TestPaymentsRefundAndWallet(t *testing.T) {
	p := NewPayments(newDB(t))

	res := p.Execute(context.Background(), request("where is my refund", model.ModeStandard,
		map[string]string{model.CtxUserID: "USR-1001"}))
	require.True(t, res.Success, res.Error)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "refund", res.Data[0].Get("type"))

	res = p.Execute(context.Background(), request("wallet balance", model.ModeStandard,
		map[string]string{model.CtxUserID: "USR-1001"}))
	require.True(t, res.Success)
	assert.Equal(t, "wallet", res.Data[0].Get("type"))
	assert.Equal(t, "42.75", res.Data[0].Get("amount"))
}

func TestSupportByOrder(t *testing.T) {
	s := NewSupport(newDB(t))
	res := s.Execute(context.Background(), request("my ticket", model.ModeStandard,
		map[string]string{model.CtxOrderID: "ORD-20001"}))
	require.True(t, res.Success, res.Error)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "TCK-5001", res.Data[0].Get("ticket_id"))
	assert.Equal(t, "Maya Patel", res.Data[0].Get("assigned_to"))
}

func TestClosedDatabaseFails(t *testing.T) {
	db := newDB(t)
	s := NewSupport(db)
	require.NoError(t, db.Close())

	res := s.Execute(context.Background(), request("tickets", model.ModeStandard, nil))
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.Error(t, s.Ping(context.Background()))
}

func TestProductTerms(t *testing.T) {
	assert.Equal(t, []string{"gaming", "monitor"}, productTerms("Gaming Monitor order"))
	assert.Empty(t, productTerms("my order"))
}
