package stream_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/interfaces/stream"
)

func payload(mutate func(m map[string]any)) []byte {
	m := map[string]any{
		"id":          "6f1c2f4e-8a57-4c4b-9a1e-2b1f3c4d5e60",
		"source":      "WH-0001",
		"specversion": "1.0",
		"type":        "ru.retail.warehouses.movement",
		"time":        1709280000,
		"subject":     "WH-0001:ARRIVAL",
		"destination": "ru.retail.warehouses",
		"data": map[string]any{
			"movement_id":  "c6290746-790e-43fa-8270-014dc90e02e0",
			"warehouse_id": "25718f55-ba7f-4c7b-8a8b-f8e1a6f9d4b9",
			"product_id":   "4705204f-498f-4f96-b4ba-df17fb56bf55",
			"timestamp":    "2024-03-01T08:00:00+03:00",
			"event":        "arrival",
			"quantity":     100,
		},
	}
	if mutate != nil {
		mutate(m)
	}
	raw, _ := json.Marshal(m)
	return raw
}

func data(m map[string]any) map[string]any { return m["data"].(map[string]any) }

func TestDecodeEnvelope_Valido(t *testing.T) {
	env, err := stream.DecodeEnvelope(payload(func(m map[string]any) { m["extra"] = true }))
	require.NoError(t, err)
	assert.Equal(t, "WH-0001", env.Source)
	assert.Equal(t, "1.0", env.SpecVersion.String())
	assert.Equal(t, "1709280000", env.Time.String())
	assert.Equal(t, "WH-0001:ARRIVAL", env.Subject.String())

	ev, err := env.ToEvent()
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse("c6290746-790e-43fa-8270-014dc90e02e0"), ev.MovementID)
	assert.Equal(t, entity.EventArrival, ev.Type)
	assert.Equal(t, 100, ev.Quantity)
	assert.True(t, ev.Timestamp.Equal(time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC)))
}

func TestDecodeEnvelope_SinAtributosCloudEvents(t *testing.T) {
	env, err := stream.DecodeEnvelope(payload(func(m map[string]any) {
		for _, k := range []string{"specversion", "type", "time", "subject", "destination"} {
			delete(m, k)
		}
	}))
	require.NoError(t, err)
	assert.Empty(t, env.Time)
	assert.Equal(t, "", env.SpecVersion.String())
}

func TestDecodeEnvelope_AtributosCloudEventsDeCualquierTipo(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(m map[string]any)
		check  func(t *testing.T, env *stream.Envelope)
	}{
		{"time RFC 3339", func(m map[string]any) { m["time"] = "2024-03-01T08:00:00Z" },
			func(t *testing.T, env *stream.Envelope) { assert.Equal(t, "2024-03-01T08:00:00Z", env.Time.String()) }},
		{"specversion numérico", func(m map[string]any) { m["specversion"] = 1.0 },
			func(t *testing.T, env *stream.Envelope) { assert.Equal(t, "1", env.SpecVersion.String()) }},
		{"subject objeto", func(m map[string]any) { m["subject"] = map[string]any{"code": "WH-0001"} },
			func(t *testing.T, env *stream.Envelope) { assert.JSONEq(t, `{"code":"WH-0001"}`, env.Subject.String()) }},
		{"type null", func(m map[string]any) { m["type"] = nil },
			func(t *testing.T, env *stream.Envelope) { assert.Empty(t, env.Type) }},
		{"dataschema y destination como lista", func(m map[string]any) {
			m["dataschema"] = []any{"a", 1}
			m["destination"] = true
		}, func(t *testing.T, env *stream.Envelope) { assert.Equal(t, "true", env.Destination.String()) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := stream.DecodeEnvelope(payload(tc.mutate))
			require.NoError(t, err)
			tc.check(t, env)

			ev, err := env.ToEvent()
			require.NoError(t, err)
			assert.Equal(t, 100, ev.Quantity)
		})
	}
}

func TestDecodeEnvelope_UUIDEnMayusculas(t *testing.T) {
	env, err := stream.DecodeEnvelope(payload(func(m map[string]any) {
		m["id"] = "6F1C2F4E-8A57-4C4B-9A1E-2B1F3C4D5E60"
		data(m)["movement_id"] = "C6290746-790E-43FA-8270-014DC90E02E0"
		data(m)["warehouse_id"] = "25718F55-BA7F-4C7B-8A8B-F8E1A6F9D4B9"
		data(m)["product_id"] = "4705204F-498F-4F96-B4BA-DF17FB56BF55"
	}))
	require.NoError(t, err)

	ev, err := env.ToEvent()
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse("6f1c2f4e-8a57-4c4b-9a1e-2b1f3c4d5e60"), ev.ID)
	assert.Equal(t, uuid.MustParse("c6290746-790e-43fa-8270-014dc90e02e0"), ev.MovementID)
	assert.Equal(t, uuid.MustParse("25718f55-ba7f-4c7b-8a8b-f8e1a6f9d4b9"), ev.WarehouseID)
	assert.Equal(t, uuid.MustParse("4705204f-498f-4f96-b4ba-df17fb56bf55"), ev.ProductID)
}

func TestDecodeEnvelope_Rechazos(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(m map[string]any)
	}{
		{"sin id", func(m map[string]any) { delete(m, "id") }},
		{"id no uuid", func(m map[string]any) { m["id"] = "123" }},
		{"source fuera de patrón", func(m map[string]any) { m["source"] = "wh-01" }},
		{"source demasiado largo", func(m map[string]any) { m["source"] = "WH-ABCDEFGHIJKLMNOPQ" }},
		{"sin data", func(m map[string]any) { delete(m, "data") }},
		{"movement_id inválido", func(m map[string]any) { data(m)["movement_id"] = "x" }},
		{"product_id vacío", func(m map[string]any) { data(m)["product_id"] = "" }},
		{"warehouse_id no uuid", func(m map[string]any) { data(m)["warehouse_id"] = "ZZ718f55-ba7f-4c7b-8a8b-f8e1a6f9d4b9" }},
		{"evento desconocido", func(m map[string]any) { data(m)["event"] = "transfer" }},
		{"cantidad negativa", func(m map[string]any) { data(m)["quantity"] = -1 }},
		{"cantidad decimal", func(m map[string]any) { data(m)["quantity"] = 1.5 }},
		{"sin cantidad", func(m map[string]any) { delete(data(m), "quantity") }},
		{"timestamp sin zona", func(m map[string]any) { data(m)["timestamp"] = "2024-03-01T08:00:00" }},
		{"timestamp basura", func(m map[string]any) { data(m)["timestamp"] = "ayer" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := stream.DecodeEnvelope(payload(tc.mutate))
			assert.ErrorIs(t, err, domain.ErrInvalidEnvelope)
		})
	}
}

func TestDecodeEnvelope_CantidadCeroEsValida(t *testing.T) {
	env, err := stream.DecodeEnvelope(payload(func(m map[string]any) { data(m)["quantity"] = 0 }))
	require.NoError(t, err)
	assert.Equal(t, 0, *env.Data.Quantity)
}

func TestDecodeEnvelope_JSONMalformado(t *testing.T) {
	_, err := stream.DecodeEnvelope([]byte(`{"id": `))
	assert.ErrorIs(t, err, domain.ErrInvalidEnvelope)
}

func TestCodec_RegistraPayloadCrudo(t *testing.T) {
	var buf bytes.Buffer
	c := stream.NewCodec(zerolog.New(&buf))

	_, ok := c.Decode([]byte("no-json"))
	assert.False(t, ok)
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "no-json")

	env, ok := c.Decode(payload(nil))
	assert.True(t, ok)
	assert.NotNil(t, env)
}
