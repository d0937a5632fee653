package stream_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/interfaces/stream"
)

// fakeReader entrega los mensajes de un canal; failWith hace fallar la primera lectura.
type fakeReader struct {
	msgs     chan kafka.Message
	failWith error
	reads    atomic.Int32
	closed   chan struct{}
	once     sync.Once
}

func newFakeReader(msgs chan kafka.Message) *fakeReader {
	return &fakeReader{msgs: msgs, closed: make(chan struct{})}
}

func (r *fakeReader) ReadMessage(ctx context.Context) (*kafka.Message, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	select {
	case m := <-r.msgs:
		r.reads.Add(1)
		return &m, nil
	case <-r.closed:
		return nil, errors.New("reader closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *fakeReader) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

// fakeProcessor cuenta llamadas y concurrencia; si block no es nil espera a que se cierre.
type fakeProcessor struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	block    chan struct{}
	err      error
	ctxDone  atomic.Bool
}

func (p *fakeProcessor) Process(ctx context.Context, ev ledger.Event) (*ledger.Result, error) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		seen := p.maxSeen.Load()
		if n <= seen || p.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	p.calls.Add(1)
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			p.ctxDone.Store(true)
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return &ledger.Result{Quantity: ev.Quantity}, nil
}

type fakeDLQ struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	causes []error
}

func (d *fakeDLQ) Publish(_ context.Context, msg kafka.Message, cause error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, msg)
	d.causes = append(d.causes, cause)
	return nil
}

func (d *fakeDLQ) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.msgs)
}

func factoryOf(readers ...*fakeReader) (stream.ReaderFactory, *atomic.Int32) {
	var opened atomic.Int32
	return func() (stream.Reader, error) {
		i := int(opened.Add(1)) - 1
		if i >= len(readers) {
			i = len(readers) - 1
		}
		return readers[i], nil
	}, &opened
}

func startConsumer(t *testing.T, c *stream.Consumer) chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()
	t.Cleanup(func() {
		c.Stop()
		<-done
	})
	return done
}

func TestConsumer_ProcesaYDescartaInvalidos(t *testing.T) {
	msgs := make(chan kafka.Message, 3)
	msgs <- kafka.Message{Value: payload(nil)}
	msgs <- kafka.Message{Value: []byte("basura")}
	msgs <- kafka.Message{Value: payload(func(m map[string]any) { data(m)["event"] = "departure" })}

	proc := &fakeProcessor{}
	factory, _ := factoryOf(newFakeReader(msgs))
	c := stream.NewConsumer(factory, proc, stream.Options{MaxConcurrentTasks: 2, RestartBackoff: time.Millisecond}, zerolog.Nop())
	startConsumer(t, c)

	assert.Eventually(t, func() bool { return proc.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestConsumer_RespetaLimiteDeConcurrencia(t *testing.T) {
	msgs := make(chan kafka.Message, 10)
	for i := 0; i < 10; i++ {
		msgs <- kafka.Message{Value: payload(nil)}
	}
	proc := &fakeProcessor{block: make(chan struct{})}
	reader := newFakeReader(msgs)
	factory, _ := factoryOf(reader)
	c := stream.NewConsumer(factory, proc, stream.Options{MaxConcurrentTasks: 3, RestartBackoff: time.Millisecond}, zerolog.Nop())
	startConsumer(t, c)

	require.Eventually(t, func() bool { return proc.inFlight.Load() == 3 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return proc.inFlight.Load() > 3 }, 50*time.Millisecond, 5*time.Millisecond)
	// los mensajes que exceden el límite esperan en el consumidor, sin leerse
	assert.EqualValues(t, 3, reader.reads.Load())

	close(proc.block)
	assert.Eventually(t, func() bool { return proc.calls.Load() == 10 }, time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, proc.maxSeen.Load(), int32(3))
}

func TestConsumer_ReiniciaTrasFallo(t *testing.T) {
	broken := newFakeReader(nil)
	broken.failWith = errors.New("broker no disponible")
	msgs := make(chan kafka.Message, 1)
	msgs <- kafka.Message{Value: payload(nil)}

	proc := &fakeProcessor{}
	factory, opened := factoryOf(broken, newFakeReader(msgs))
	c := stream.NewConsumer(factory, proc, stream.Options{MaxConcurrentTasks: 1, RestartBackoff: 10 * time.Millisecond}, zerolog.Nop())
	startConsumer(t, c)

	assert.Eventually(t, func() bool { return proc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, opened.Load(), int32(2))
	// el lector fallido se cerró antes de reabrir
	select {
	case <-broken.closed:
	default:
		t.Fatal("el lector fallido no se cerró")
	}
}

func TestConsumer_StopDetieneSinReiniciar(t *testing.T) {
	reader := newFakeReader(make(chan kafka.Message))
	factory, opened := factoryOf(reader)
	c := stream.NewConsumer(factory, &fakeProcessor{}, stream.Options{MaxConcurrentTasks: 1, RestartBackoff: time.Millisecond}, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return opened.Load() == 1 }, time.Second, time.Millisecond)

	c.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start no terminó tras Stop")
	}
	assert.EqualValues(t, 1, opened.Load())
	require.NoError(t, c.Wait(context.Background()))

	// Stop es idempotente y Start tras Stop no arranca nada
	c.Stop()
	c.Start(context.Background())
	assert.EqualValues(t, 1, opened.Load())
}

func TestConsumer_FalloVaADeadLetter(t *testing.T) {
	msgs := make(chan kafka.Message, 1)
	msgs <- kafka.Message{Value: payload(nil), Offset: 42}
	boom := errors.New("deadlock detectado")
	proc := &fakeProcessor{err: boom}
	dlq := &fakeDLQ{}
	factory, _ := factoryOf(newFakeReader(msgs))
	c := stream.NewConsumer(factory, proc, stream.Options{MaxConcurrentTasks: 1, DeadLetter: dlq}, zerolog.Nop())
	startConsumer(t, c)

	require.Eventually(t, func() bool { return dlq.count() == 1 }, time.Second, 5*time.Millisecond)
	dlq.mu.Lock()
	defer dlq.mu.Unlock()
	assert.EqualValues(t, 42, dlq.msgs[0].Offset)
	assert.ErrorIs(t, dlq.causes[0], boom)
}

func TestConsumer_WaitCancelaManejadoresAlVencer(t *testing.T) {
	msgs := make(chan kafka.Message, 1)
	msgs <- kafka.Message{Value: payload(nil)}
	proc := &fakeProcessor{block: make(chan struct{})}
	factory, _ := factoryOf(newFakeReader(msgs))
	c := stream.NewConsumer(factory, proc, stream.Options{MaxConcurrentTasks: 1}, zerolog.Nop())
	done := startConsumer(t, c)
	require.Eventually(t, func() bool { return proc.inFlight.Load() == 1 }, time.Second, time.Millisecond)

	c.Stop()
	<-done
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Eventually(t, proc.ctxDone.Load, time.Second, time.Millisecond)
}
