package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/bricklayer/internal/logging"
)

// AsyncPublisher отдаёт события в шину из собственной горутины.
// Offer никогда не ждёт шину: при переполнении очереди событие отбрасывается.
type AsyncPublisher struct {
	bus     EventBus
	timeout time.Duration
	logger  *logging.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan *Envelope
	done   chan struct{}

	dropped atomic.Int64
	failed  atomic.Int64
}

// NewAsyncPublisher запускает горутину публикации. timeout ограничивает
// одну публикацию (ожидание ack JetStream).
func NewAsyncPublisher(bus EventBus, size int, timeout time.Duration) *AsyncPublisher {
	if size <= 0 {
		size = 1024
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	p := &AsyncPublisher{
		bus:     bus,
		timeout: timeout,
		logger:  logging.GetComponentLogger("eventbus"),
		queue:   make(chan *Envelope, size),
		done:    make(chan struct{}),
	}
	go p.loop()
	return p
}

// Offer ставит событие в очередь; false если очередь полна или закрыта
func (p *AsyncPublisher) Offer(ev *Envelope) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.queue <- ev:
		return true
	default:
		p.dropped.Add(1)
		return false
	}
}

// Dropped сколько событий не поместилось в очередь
func (p *AsyncPublisher) Dropped() int64 { return p.dropped.Load() }

// Failed сколько публикаций вернули ошибку
func (p *AsyncPublisher) Failed() int64 { return p.failed.Load() }

// Close дожидается отправки уже принятых событий
func (p *AsyncPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	<-p.done
}

func (p *AsyncPublisher) loop() {
	defer close(p.done)
	for ev := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.bus.Publish(ctx, ev); err != nil {
			p.failed.Add(1)
			p.logger.Warn("⚠️ Публикация %s не удалась: %v", ev.EventType, err)
		}
		cancel()
	}
}
