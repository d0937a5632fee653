package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stock-ledger/internal/application/ports"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domledger "github.com/jhoicas/stock-ledger/internal/domain/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Event un movimiento de stock ya decodificado y validado.
type Event struct {
	ID          uuid.UUID
	Source      string // código externo de la bodega
	MovementID  uuid.UUID
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	Timestamp   time.Time
	Type        entity.EventType
	Quantity    int
}

// Validate comprueba las invariantes mínimas antes de abrir la transacción.
func (e Event) Validate() error {
	if e.MovementID == uuid.Nil || e.WarehouseID == uuid.Nil || e.ProductID == uuid.Nil {
		return fmt.Errorf("ids requeridos: %w", domain.ErrInvalidInput)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("event_type %q: %w", e.Type, domain.ErrInvalidInput)
	}
	if e.Quantity < 0 {
		return fmt.Errorf("quantity %d: %w", e.Quantity, domain.ErrInvalidInput)
	}
	return nil
}

// Result efecto de un evento sobre el ledger.
type Result struct {
	Duplicate      bool // el movimiento ya existía; no se tocó el stock
	Quantity       int  // cantidad del StockItem tras aplicar el evento
	Clamped        bool // la salida superaba el stock y se truncó en cero
	EmptyDeparture bool // salida sobre un par sin StockItem previo
}

// Processor aplica cada evento al ledger de forma atómica e idempotente y luego invalida
// las consultas cacheadas que dependen de él.
type Processor struct {
	txRunner TxRunner
	cache    ports.CacheInvalidator
	log      zerolog.Logger
	tracer   trace.Tracer
}

// NewProcessor construye el procesador. cache puede ser nil (sin invalidación).
func NewProcessor(txRunner TxRunner, cache ports.CacheInvalidator, log zerolog.Logger) *Processor {
	return &Processor{
		txRunner: txRunner,
		cache:    cache,
		log:      log,
		tracer:   otel.Tracer("stock-ledger/ledger"),
	}
}

// Process ejecuta en una sola transacción: alta idempotente de bodega, producto y movimiento,
// y actualización del StockItem con bloqueo de fila. Un movimiento repetido (misma clave
// movement_id + event_type) no vuelve a aplicar la cantidad. Cualquier error revierte todo.
func (p *Processor) Process(ctx context.Context, ev Event) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "ledger.process", trace.WithAttributes(
		attribute.String("movement.id", ev.MovementID.String()),
		attribute.String("movement.event_type", string(ev.Type)),
		attribute.String("warehouse.id", ev.WarehouseID.String()),
		attribute.String("product.id", ev.ProductID.String()),
		attribute.Int("movement.quantity", ev.Quantity),
	))
	defer span.End()

	if err := ev.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var res Result
	err := p.txRunner.Run(ctx, func(
		warehouseRepo repository.WarehouseRepository,
		productRepo repository.ProductRepository,
		movRepo repository.MovementRepository,
		stockRepo repository.StockItemRepository,
	) error {
		res = Result{}
		if _, _, err := warehouseRepo.FindOrCreate(ctx, &entity.Warehouse{ID: ev.WarehouseID, Code: ev.Source}); err != nil {
			return err
		}
		if _, _, err := productRepo.FindOrCreate(ctx, &entity.Product{ID: ev.ProductID}); err != nil {
			return err
		}
		whID := ev.WarehouseID
		_, created, err := movRepo.FindOrCreate(ctx, &entity.Movement{
			MovementID:  ev.MovementID,
			WarehouseID: &whID,
			ProductID:   ev.ProductID,
			Quantity:    ev.Quantity,
			EventType:   ev.Type,
			Timestamp:   ev.Timestamp,
		})
		if err != nil {
			return err
		}
		if !created {
			res.Duplicate = true
			return nil
		}
		return p.applyStock(ctx, stockRepo, ev, &res)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger rollback")
		return nil, fmt.Errorf("aplicar movimiento %s/%s: %w", ev.MovementID, ev.Type, err)
	}

	if res.Duplicate {
		p.log.Info().
			Str("movement_id", ev.MovementID.String()).
			Str("event_type", string(ev.Type)).
			Msg("movimiento duplicado, stock sin cambios")
	}
	span.SetAttributes(attribute.Bool("movement.duplicate", res.Duplicate), attribute.Int("stock.quantity", res.Quantity))

	p.invalidate(ctx, ev)
	return &res, nil
}

// applyStock bloquea (o crea) el StockItem del par y aplica el delta.
func (p *Processor) applyStock(ctx context.Context, stockRepo repository.StockItemRepository, ev Event, res *Result) error {
	key := repository.StockKey{WarehouseID: ev.WarehouseID, ProductID: ev.ProductID}

	item, err := stockRepo.GetForUpdate(ctx, key)
	if err != nil {
		return err
	}
	if item == nil {
		initial, emptyDeparture := domledger.InitialQuantity(ev.Quantity, ev.Type)
		created, inserted, err := stockRepo.FindOrCreate(ctx, &entity.StockItem{
			WarehouseID: ev.WarehouseID,
			ProductID:   ev.ProductID,
			Quantity:    initial,
		})
		if err != nil {
			return err
		}
		if inserted {
			if emptyDeparture {
				res.EmptyDeparture = true
				p.log.Warn().
					Str("warehouse_id", ev.WarehouseID.String()).
					Str("product_id", ev.ProductID.String()).
					Int("quantity", ev.Quantity).
					Msg("salida de producto desde stock vacío")
			}
			res.Quantity = created.Quantity
			return nil
		}
		// Otra transacción creó la fila entre la lectura y el insert: se bloquea y se aplica el delta.
		if item, err = stockRepo.GetForUpdate(ctx, key); err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("stock_item %s/%s: %w", ev.WarehouseID, ev.ProductID, domain.ErrConflict)
		}
	}

	next, clamped := domledger.ApplyDelta(item.Quantity, ev.Quantity, ev.Type)
	if clamped {
		res.Clamped = true
		p.log.Warn().
			Str("warehouse_id", ev.WarehouseID.String()).
			Str("product_id", ev.ProductID.String()).
			Int("stock", item.Quantity).
			Int("quantity", ev.Quantity).
			Msg("la salida supera el stock registrado, se trunca en cero")
	}
	item.Quantity = next
	if err := stockRepo.UpdateQuantity(ctx, item); err != nil {
		return err
	}
	res.Quantity = next
	return nil
}

// invalidate borra las entradas de caché de las dos consultas afectadas. El ledger ya está
// confirmado: los errores solo se registran.
func (p *Processor) invalidate(ctx context.Context, ev Event) {
	if p.cache == nil {
		return
	}
	keys := [][]string{
		{ports.CacheNamespaceStock, ev.WarehouseID.String(), ev.ProductID.String()},
		{ports.CacheNamespaceMovement, ev.MovementID.String()},
	}
	for _, k := range keys {
		if _, err := p.cache.InvalidateByKey(ctx, k[0], k[1:]...); err != nil {
			p.log.Warn().Err(err).Strs("key", k).Msg("no se pudo invalidar la caché")
		}
	}
}
