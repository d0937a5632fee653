package ledger_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/ledger"
)

func TestApplyDelta(t *testing.T) {
	tests := []struct {
		name        string
		current     int
		quantity    int
		eventType   entity.EventType
		want        int
		wantClamped bool
	}{
		{"llegada suma", 3, 7, entity.EventArrival, 10, false},
		{"salida resta", 10, 4, entity.EventDeparture, 6, false},
		{"salida exacta deja cero", 5, 5, entity.EventDeparture, 0, false},
		{"salida mayor trunca en cero", 3, 5, entity.EventDeparture, 0, true},
		{"cantidad cero no cambia", 3, 0, entity.EventDeparture, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clamped := ledger.ApplyDelta(tt.current, tt.quantity, tt.eventType)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantClamped, clamped)
		})
	}
}

func TestApplyDelta_SecuenciaNuncaNegativa(t *testing.T) {
	deltas := []struct {
		q int
		e entity.EventType
	}{
		{5, entity.EventArrival}, {8, entity.EventDeparture}, {2, entity.EventArrival},
		{1, entity.EventDeparture}, {10, entity.EventDeparture}, {4, entity.EventArrival},
	}
	qty := 0
	for _, d := range deltas {
		qty, _ = ledger.ApplyDelta(qty, d.q, d.e)
		require.GreaterOrEqual(t, qty, 0)
	}
	assert.Equal(t, 4, qty)
}

func TestInitialQuantity(t *testing.T) {
	q, empty := ledger.InitialQuantity(7, entity.EventArrival)
	assert.Equal(t, 7, q)
	assert.False(t, empty)

	q, empty = ledger.InitialQuantity(7, entity.EventDeparture)
	assert.Equal(t, 0, q)
	assert.True(t, empty)

	q, empty = ledger.InitialQuantity(0, entity.EventDeparture)
	assert.Equal(t, 0, q)
	assert.False(t, empty)
}

func TestReconcile_ParCompleto(t *testing.T) {
	whA, whB := uuid.New(), uuid.New()
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(26 * time.Hour)

	stats := ledger.Reconcile([]*entity.Movement{
		{EventType: entity.EventArrival, WarehouseID: &whB, Quantity: 10, Timestamp: t1},
		{EventType: entity.EventDeparture, WarehouseID: &whA, Quantity: 10, Timestamp: t0},
	})

	require.NotNil(t, stats)
	assert.Equal(t, whA, *stats.SenderWarehouse)
	assert.Equal(t, whB, *stats.RecipientWarehouse)
	assert.Equal(t, 26*time.Hour, stats.TimeDiff)
	assert.Equal(t, 0, stats.DiffInQuantity)
}

func TestReconcile_Incompleto(t *testing.T) {
	assert.Nil(t, ledger.Reconcile(nil))
	assert.Nil(t, ledger.Reconcile([]*entity.Movement{{EventType: entity.EventDeparture, Quantity: 3}}))
}

func TestReconcile_DiferenciaDeCantidad(t *testing.T) {
	stats := ledger.Reconcile([]*entity.Movement{
		{EventType: entity.EventDeparture, Quantity: 10},
		{EventType: entity.EventArrival, Quantity: 8},
	})
	require.NotNil(t, stats)
	assert.Equal(t, -2, stats.DiffInQuantity)
	assert.Nil(t, stats.SenderWarehouse)
}
