package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_DeliversInOrder(t *testing.T) {
	bus := NewMemoryBus(16)

	got := make(chan *Envelope, 4)
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		got <- ev
	})
	require.NoError(t, err)

	for _, ev := range []GameEvent{
		PlayerJoined{Map: "main", PlayerID: 1, Username: "alice"},
		ChatPosted{Map: "main", PlayerID: 1, Username: "alice", Message: "привет"},
	} {
		env, err := Wrap("test", ev)
		require.NoError(t, err)
		require.NoError(t, bus.Publish(context.Background(), env))
	}

	first := <-got
	second := <-got
	assert.Equal(t, TypePlayerJoined, first.EventType)
	assert.Equal(t, TypeChatPosted, second.EventType)
	assert.Equal(t, "main", second.Map)

	require.NoError(t, bus.Close())
	stats := bus.Metrics()
	assert.Equal(t, uint64(2), stats.Published)
	assert.Equal(t, uint64(2), stats.Consumed)
}

func TestMemoryBus_Filter(t *testing.T) {
	bus := NewMemoryBus(16)

	var blocks []BlockPlaced
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{TypeBlockPlaced}}, func(ctx context.Context, env *Envelope) {
		ev, err := Decode(env)
		if assert.NoError(t, err) {
			blocks = append(blocks, ev.(BlockPlaced))
		}
	})
	require.NoError(t, err)

	chat, _ := Wrap("test", ChatPosted{Map: "main", Message: "x"})
	block, _ := Wrap("test", BlockPlaced{Map: "main", PlayerID: 2, X: 10, Y: 10, Z: 1, Old: 0, New: 5})
	require.NoError(t, bus.Publish(context.Background(), chat))
	require.NoError(t, bus.Publish(context.Background(), block))

	// Close дожидается доставки
	require.NoError(t, bus.Close())
	require.Len(t, blocks, 1, "подписчик получает только блоки")
	assert.Equal(t, BlockPlaced{Map: "main", PlayerID: 2, X: 10, Y: 10, Z: 1, Old: 0, New: 5}, blocks[0])
}

func TestMemoryBus_DropsLowPriorityWhenFull(t *testing.T) {
	bus := NewMemoryBus(1)
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})
	require.NoError(t, err)

	// Первое событие занимает подписчика, второе заполняет буфер
	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "a"}))
	<-started
	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "b"}))
	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "c", Priority: 0}))

	assert.Equal(t, uint64(1), bus.Metrics().Dropped, "низкий приоритет отбрасывается при полном буфере")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = bus.Publish(ctx, &Envelope{EventType: "d", Priority: 9})
	assert.ErrorIs(t, err, context.DeadlineExceeded, "высокий приоритет ждёт места до отмены контекста")

	close(release)
	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(context.Background(), &Envelope{}), ErrClosed)
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	calls := 0
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) { calls++ })
	require.NoError(t, err)
	sub.Unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "x"}))
	require.NoError(t, bus.Close())
	assert.Equal(t, 0, calls)
}

func TestWrapDecode(t *testing.T) {
	env, err := Wrap("srv", PlayerLeft{Map: "main", PlayerID: 3, Username: "bob", Reason: "timeout"})
	require.NoError(t, err)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, "srv", env.Source)
	assert.Equal(t, 5, env.Priority)

	ev, err := Decode(env)
	require.NoError(t, err)
	assert.Equal(t, PlayerLeft{Map: "main", PlayerID: 3, Username: "bob", Reason: "timeout"}, ev)

	_, err = Decode(&Envelope{EventType: "Unknown"})
	assert.Error(t, err)
}

func TestRegisterMetrics(t *testing.T) {
	bus := NewMemoryBus(4)
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterMetrics(bus, reg))

	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "x"}))
	require.NoError(t, bus.Close())

	count, err := testutil.GatherAndCount(reg, "eventbus_messages_published_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// gateBus держит каждую публикацию до закрытия gate
type gateBus struct {
	gate chan struct{}
	got  chan *Envelope
}

func (b *gateBus) Publish(ctx context.Context, ev *Envelope) error {
	select {
	case <-b.gate:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.got <- ev
	return nil
}

func (b *gateBus) Subscribe(context.Context, Filter, Handler) (Subscription, error) { return nil, nil }
func (b *gateBus) Metrics() Stats                                                     { return Stats{} }
func (b *gateBus) Close() error                                                       { return nil }

func TestAsyncPublisher_OfferDoesNotWait(t *testing.T) {
	bus := &gateBus{gate: make(chan struct{}), got: make(chan *Envelope, 8)}
	p := NewAsyncPublisher(bus, 2, time.Minute)

	start := time.Now()
	accepted := 0
	for i := 0; i < 8; i++ {
		env, err := Wrap("test", ChatPosted{Map: "main", Message: "hi"})
		require.NoError(t, err)
		if p.Offer(env) {
			accepted++
		}
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond, "Offer не ждёт шину")
	assert.LessOrEqual(t, accepted, 3, "в работе не больше одного события и очередь на два")
	assert.EqualValues(t, 8-accepted, p.Dropped())

	close(bus.gate)
	p.Close()
	assert.Len(t, bus.got, accepted, "Close дожидается всех принятых событий")
	assert.Zero(t, p.Failed())

	env, err := Wrap("test", ChatPosted{Map: "main"})
	require.NoError(t, err)
	assert.False(t, p.Offer(env), "после Close события не принимаются")
	p.Close()
}

func TestAsyncPublisher_PublishTimeoutIsCounted(t *testing.T) {
	bus := &gateBus{gate: make(chan struct{}), got: make(chan *Envelope, 1)}
	p := NewAsyncPublisher(bus, 4, 10*time.Millisecond)

	env, err := Wrap("test", PlayerJoined{Map: "main", PlayerID: 1, Username: "alice"})
	require.NoError(t, err)
	require.True(t, p.Offer(env))
	p.Close()

	assert.EqualValues(t, 1, p.Failed())
	assert.Empty(t, bus.got)
}

func TestAsyncPublisher_DeliversToMemoryBus(t *testing.T) {
	bus := NewMemoryBus(16)
	got := make(chan *Envelope, 4)
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		got <- ev
	})
	require.NoError(t, err)

	p := NewAsyncPublisher(bus, 0, 0)
	for _, name := range []string{"a", "b", "c"} {
		env, err := Wrap("test", PlayerJoined{Map: "main", Username: name})
		require.NoError(t, err)
		require.True(t, p.Offer(env))
	}
	p.Close()

	var names []string
	for i := 0; i < 3; i++ {
		select {
		case env := <-got:
			ev, err := Decode(env)
			require.NoError(t, err)
			names = append(names, ev.(PlayerJoined).Username)
		case <-time.After(time.Second):
			t.Fatal("событие не доставлено")
		}
	}
	assert.Equal(t, []string{"a", "b", "c"}, names, "порядок сохраняется")
	require.NoError(t, bus.Close())
}
