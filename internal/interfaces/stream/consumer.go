package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/semaphore"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
)

// Reader fuente de mensajes; en producción un kafka.Reader instrumentado con otelkafka.
type Reader interface {
	ReadMessage(ctx context.Context) (*kafka.Message, error)
	Close() error
}

// ReaderFactory abre un Reader nuevo en cada arranque del ciclo de supervisión.
type ReaderFactory func() (Reader, error)

// EventProcessor aplica un evento al ledger.
type EventProcessor interface {
	Process(ctx context.Context, ev ledger.Event) (*ledger.Result, error)
}

// DeadLetter publica los mensajes cuyo procesamiento falló.
type DeadLetter interface {
	Publish(ctx context.Context, msg kafka.Message, cause error) error
}

// Options parámetros del consumidor.
type Options struct {
	MaxConcurrentTasks int
	RestartBackoff     time.Duration
	DeadLetter         DeadLetter // nil = sin dead-letter
}

const deadLetterTimeout = 5 * time.Second

// Consumer lee el tópico en un ciclo supervisado y procesa cada mensaje en su propia goroutine,
// con a lo sumo MaxConcurrentTasks en vuelo.
type Consumer struct {
	newReader ReaderFactory
	processor EventProcessor
	codec     *Codec
	dlq       DeadLetter
	sem       *semaphore.Weighted
	backoff   time.Duration
	log       zerolog.Logger

	handlerCtx     context.Context
	cancelHandlers context.CancelFunc

	mu       sync.Mutex
	stopped  bool
	stopCh   chan struct{}
	reader   Reader
	stopLoop context.CancelFunc

	wg sync.WaitGroup
}

// NewConsumer construye el consumidor.
func NewConsumer(newReader ReaderFactory, processor EventProcessor, opts Options, log zerolog.Logger) *Consumer {
	if opts.MaxConcurrentTasks < 1 {
		opts.MaxConcurrentTasks = 1
	}
	handlerCtx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		newReader:      newReader,
		processor:      processor,
		codec:          NewCodec(log),
		dlq:            opts.DeadLetter,
		sem:            semaphore.NewWeighted(int64(opts.MaxConcurrentTasks)),
		backoff:        opts.RestartBackoff,
		log:            log,
		handlerCtx:     handlerCtx,
		cancelHandlers: cancel,
		stopCh:         make(chan struct{}),
	}
}

// Start ejecuta el ciclo de supervisión hasta Stop o hasta que ctx se cancele. Ante un fallo
// del lector espera RestartBackoff y vuelve a abrirlo desde cero.
func (c *Consumer) Start(ctx context.Context) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.stopLoop = cancel
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()
	defer cancel()

	for {
		c.log.Info().Msg("iniciando consumidor de kafka")
		err := c.consume(ctx)
		if c.isStopped() || ctx.Err() != nil {
			c.log.Info().Msg("consumidor de kafka detenido")
			return
		}
		c.log.Error().Err(err).Dur("backoff", c.backoff).Msg("consumidor de kafka caído, se reinicia")
		select {
		case <-time.After(c.backoff):
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	reader, err := c.newReader()
	if err != nil {
		return fmt.Errorf("open reader: %w", err)
	}
	if !c.attach(reader) {
		_ = reader.Close()
		return nil
	}
	defer c.detach(reader)

	for {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			c.sem.Release(1)
			return fmt.Errorf("read message: %w", err)
		}
		if msg == nil {
			c.sem.Release(1)
			continue
		}
		c.wg.Add(1)
		go c.handle(*msg)
	}
}

func (c *Consumer) attach(r Reader) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return false
	}
	c.reader = r
	return true
}

// detach cierra el lector salvo que Stop ya lo haya hecho.
func (c *Consumer) detach(r Reader) {
	c.mu.Lock()
	owned := c.reader == r
	if owned {
		c.reader = nil
	}
	c.mu.Unlock()
	if !owned {
		return
	}
	if err := r.Close(); err != nil {
		c.log.Warn().Err(err).Msg("error cerrando el lector de kafka")
	}
}

// handle libera el permiso del semáforo al terminar, con o sin error.
func (c *Consumer) handle(msg kafka.Message) {
	defer c.wg.Done()
	defer c.sem.Release(1)

	ctx := messageContext(c.handlerCtx, msg)
	env, ok := c.codec.Decode(msg.Value)
	if !ok {
		return
	}
	ev, err := env.ToEvent()
	if err != nil {
		c.log.Error().Err(err).Bytes("raw", msg.Value).Msg("mensaje inválido, se descarta")
		return
	}

	res, err := c.processor.Process(ctx, ev)
	if err != nil {
		c.log.Error().Err(err).
			Str("movement_id", ev.MovementID.String()).
			Str("event_type", string(ev.Type)).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Bytes("raw", msg.Value).
			Msg("no se pudo procesar el mensaje")
		c.deadLetter(ctx, msg, err)
		return
	}
	c.log.Debug().
		Str("movement_id", ev.MovementID.String()).
		Str("event_type", string(ev.Type)).
		Bool("duplicate", res.Duplicate).
		Int("quantity", res.Quantity).
		Msg("movimiento aplicado")
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) {
	if c.dlq == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deadLetterTimeout)
	defer cancel()
	if err := c.dlq.Publish(ctx, msg, cause); err != nil {
		c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("no se pudo publicar en dead-letter")
	}
}

// messageContext recupera el contexto de traza que el productor dejó en las cabeceras.
func messageContext(parent context.Context, msg kafka.Message) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range msg.Headers {
		carrier[h.Key] = string(h.Value)
	}
	return otel.GetTextMapPropagator().Extract(parent, carrier)
}

func (c *Consumer) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Stop impide nuevos reinicios y cierra el lector activo. Es idempotente.
func (c *Consumer) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	close(c.stopCh)
	reader, stopLoop := c.reader, c.stopLoop
	c.reader = nil
	c.mu.Unlock()

	if stopLoop != nil {
		stopLoop()
	}
	if reader != nil {
		if err := reader.Close(); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Warn().Err(err).Msg("error cerrando el lector de kafka")
		}
	}
}

// Wait espera a que terminen el ciclo y los mensajes en vuelo. Si ctx vence antes, cancela el
// contexto de los manejadores y devuelve el error de ctx.
func (c *Consumer) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		c.cancelHandlers()
		return nil
	case <-ctx.Done():
		c.cancelHandlers()
		return ctx.Err()
	}
}
