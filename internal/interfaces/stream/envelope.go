// Package stream adapta el tópico de Kafka de movimientos al procesador del ledger:
// decodifica el sobre JSON y reparte los mensajes con concurrencia acotada.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// SourcePattern formato del código externo de bodega que viaja en "source".
var SourcePattern = regexp.MustCompile(`^WH-[A-Z0-9]{2,16}$`)

var validate = validator.New()

func init() {
	_ = validate.RegisterValidation("warehouse_code", func(fl validator.FieldLevel) bool {
		return SourcePattern.MatchString(fl.Field().String())
	})
}

// Envelope mensaje del tópico. Los atributos CloudEvents son informativos y opcionales:
// aceptan cualquier valor JSON y nunca hacen fallar la decodificación. Los campos desconocidos
// se ignoran. Los UUID se validan con uuid.Parse (admite mayúsculas).
type Envelope struct {
	ID     string        `json:"id" validate:"required"`
	Source string        `json:"source" validate:"required,warehouse_code"`
	Data   *EnvelopeData `json:"data" validate:"required"`

	SpecVersion     Attribute `json:"specversion,omitempty"`
	Type            Attribute `json:"type,omitempty"`
	DataContentType Attribute `json:"datacontenttype,omitempty"`
	DataSchema      Attribute `json:"dataschema,omitempty"`
	Time            Attribute `json:"time,omitempty"` // epoch o RFC 3339, según el productor
	Subject         Attribute `json:"subject,omitempty"`
	Destination     Attribute `json:"destination,omitempty"`
}

// EnvelopeData cuerpo del movimiento.
type EnvelopeData struct {
	MovementID  string `json:"movement_id" validate:"required"`
	WarehouseID string `json:"warehouse_id" validate:"required"`
	ProductID   string `json:"product_id" validate:"required"`
	Timestamp   string `json:"timestamp" validate:"required"`
	Event       string `json:"event" validate:"required,oneof=arrival departure"`
	Quantity    *int   `json:"quantity" validate:"required,min=0"`
}

// Attribute valor JSON crudo de un atributo informativo.
type Attribute []byte

// UnmarshalJSON guarda el valor tal cual; no falla con ningún tipo JSON.
func (a *Attribute) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*a = nil
		return nil
	}
	*a = append((*a)[:0], b...)
	return nil
}

// MarshalJSON reproduce el valor recibido.
func (a Attribute) MarshalJSON() ([]byte, error) {
	if len(a) == 0 {
		return []byte("null"), nil
	}
	return a, nil
}

// String devuelve el texto si el valor es un string JSON y el literal en otro caso ("1.0", "1709280000").
func (a Attribute) String() string {
	if len(a) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(a, &s); err == nil {
		return s
	}
	return string(a)
}

// DecodeEnvelope decodifica y valida un mensaje crudo. Todo error envuelve domain.ErrInvalidEnvelope.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("json: %v: %w", err, domain.ErrInvalidEnvelope)
	}
	if err := validate.Struct(&env); err != nil {
		return nil, fmt.Errorf("%s: %w", describe(err), domain.ErrInvalidEnvelope)
	}
	if _, err := env.ToEvent(); err != nil {
		return nil, err
	}
	return &env, nil
}

// describe resume los errores del validador como "campo:regla".
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Namespace()+":"+fe.Tag())
	}
	return "campos inválidos " + strings.Join(parts, ", ")
}

// timestamp exige RFC 3339 con zona horaria.
func (e *Envelope) timestamp() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, e.Data.Timestamp)
}

// ToEvent convierte un sobre ya validado en el evento del procesador.
func (e *Envelope) ToEvent() (ledger.Event, error) {
	ts, err := e.timestamp()
	if err != nil {
		return ledger.Event{}, fmt.Errorf("data.timestamp: %v: %w", err, domain.ErrInvalidEnvelope)
	}
	fields := []struct{ name, value string }{
		{"id", e.ID},
		{"data.movement_id", e.Data.MovementID},
		{"data.warehouse_id", e.Data.WarehouseID},
		{"data.product_id", e.Data.ProductID},
	}
	ids := make([]uuid.UUID, len(fields))
	for i, f := range fields {
		if ids[i], err = uuid.Parse(f.value); err != nil {
			return ledger.Event{}, fmt.Errorf("%s %q: %w", f.name, f.value, domain.ErrInvalidEnvelope)
		}
	}
	return ledger.Event{
		ID:          ids[0],
		Source:      e.Source,
		MovementID:  ids[1],
		WarehouseID: ids[2],
		ProductID:   ids[3],
		Timestamp:   ts,
		Type:        entity.EventType(e.Data.Event),
		Quantity:    *e.Data.Quantity,
	}, nil
}

// Codec envoltorio no fatal usado por el consumidor: registra el rechazo con el payload crudo.
type Codec struct {
	log zerolog.Logger
}

// NewCodec construye el codec.
func NewCodec(log zerolog.Logger) *Codec {
	return &Codec{log: log}
}

// Decode devuelve false si el mensaje se descarta.
func (c *Codec) Decode(raw []byte) (*Envelope, bool) {
	env, err := DecodeEnvelope(raw)
	if err != nil {
		c.log.Error().Err(err).Bytes("raw", raw).Msg("mensaje inválido, se descarta")
		return nil, false
	}
	return env, true
}
