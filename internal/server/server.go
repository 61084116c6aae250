// Package server реализует авторитетный игровой цикл: одобрение подключений,
// обработку сообщений игроков и рассылку изменений по карте.
package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/bricklayer/internal/config"
	"github.com/annel0/bricklayer/internal/eventbus"
	"github.com/annel0/bricklayer/internal/logging"
	"github.com/annel0/bricklayer/internal/network"
	"github.com/annel0/bricklayer/internal/protocol"
	"github.com/annel0/bricklayer/internal/world"
)

// eventQueueSize сколько игровых событий ждут публикации в шину
const eventQueueSize = 1024

// Options параметры игрового цикла
type Options struct {
	Name       string // источник в событиях шины
	TickRate   int
	MaxPlayers int
	MOTD       string
	BlockEdits config.Limiter
	Chat       config.Limiter
	SaveEvery  time.Duration
}

// OptionsFrom собирает параметры из конфигурации
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Name:       "bricklayer-" + cfg.World.Name,
		TickRate:   cfg.Server.TickRate,
		MaxPlayers: cfg.Server.MaxPlayers,
		MOTD:       cfg.Server.MOTD,
		BlockEdits: cfg.Limits.BlockEdits,
		Chat:       cfg.Limits.Chat,
		SaveEvery:  cfg.Storage.SaveEvery.Duration,
	}
}

// MapSaver сохраняет карту и сбрасывает её флаг Dirty
type MapSaver interface {
	SaveMap(m *world.Map) error
}

// Server игровой сервер. Всё игровое состояние меняется только из Run.
type Server struct {
	opts     Options
	inbox    *network.Inbox
	registry *Registry
	logger   *logging.Logger
	metrics  *Metrics
	events   *eventbus.AsyncPublisher
	store    MapSaver

	lastTick time.Time
	lastSave time.Time

	// отключения, накопленные при рассылке; выполняются после текущего события
	pendingDrops []pendingDrop

	statusMu sync.RWMutex
	status   Status
}

type pendingDrop struct {
	channel network.Channel
	reason  string
}

// New создаёт сервер. События транспорта читаются из inbox.
func New(opts Options, inbox *network.Inbox) *Server {
	if opts.TickRate <= 0 {
		opts.TickRate = 60
	}
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = 64
	}
	if opts.Name == "" {
		opts.Name = "bricklayer"
	}
	s := &Server{
		opts:     opts,
		inbox:    inbox,
		registry: NewRegistry(opts.MaxPlayers),
		logger:   logging.GetServerLogger(),
	}
	s.refreshStatus()
	return s
}

// AddMap регистрирует карту. Первая карта принимает новых игроков.
func (s *Server) AddMap(m *world.Map) {
	s.registry.AddMap(m)
	s.refreshStatus()
}

// SetMetrics подключает метрики Prometheus
func (s *Server) SetMetrics(m *Metrics) { s.metrics = m }

// SetEventBus подключает шину игровых событий. Публикация идёт из отдельной
// горутины, тик её не ждёт.
func (s *Server) SetEventBus(bus eventbus.EventBus) {
	if s.events != nil {
		s.events.Close()
	}
	s.events = eventbus.NewAsyncPublisher(bus, eventQueueSize, time.Second)
}

// SetStore подключает хранилище карт
func (s *Server) SetStore(store MapSaver) { s.store = store }

// Registry возвращает реестр сессий; только для использования из игрового цикла
func (s *Server) Registry() *Registry { return s.registry }

// Run крутит игровой цикл с частотой TickRate до отмены ctx.
// При остановке сохраняет изменённые карты и закрывает все соединения.
func (s *Server) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(s.opts.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.lastTick = time.Now()
	s.lastSave = s.lastTick
	s.logger.Info("🎮 Игровой цикл запущен: %d тиков/с, карт: %d", s.opts.TickRate, len(s.registry.Maps()))

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case now := <-ticker.C:
			s.Step(now)
		}
	}
}

// Step выполняет один тик: разбирает очередь событий, затем продвигает карты
func (s *Server) Step(now time.Time) {
	start := time.Now()
	elapsed := now.Sub(s.lastTick).Seconds()
	if s.lastTick.IsZero() || elapsed < 0 {
		elapsed = 0
	}
	s.lastTick = now

	s.Drain()

	for _, m := range s.registry.Maps() {
		m.Tick(elapsed)
	}

	if s.opts.SaveEvery > 0 && now.Sub(s.lastSave) >= s.opts.SaveEvery {
		s.lastSave = now
		s.saveDirty()
	}

	s.refreshStatus()
	s.metrics.tick(time.Since(start).Seconds(), s.registry.Count())
}

// Drain обрабатывает все события, накопившиеся в очереди, без ожидания
func (s *Server) Drain() int {
	n := 0
	for {
		ev, ok := s.inbox.Poll()
		if !ok {
			return n
		}
		s.handleEvent(ev)
		n++
	}
}

func (s *Server) saveDirty() {
	if s.store == nil {
		return
	}
	for _, m := range s.registry.Maps() {
		if !m.Dirty {
			continue
		}
		if err := s.store.SaveMap(m); err != nil {
			s.logger.Error("❌ Не удалось сохранить карту %s: %v", m.Name, err)
			continue
		}
		s.logger.Debug("💾 Карта %s сохранена", m.Name)
	}
}

func (s *Server) shutdown() {
	s.logger.Info("🛑 Остановка игрового цикла...")
	for _, sess := range s.registry.Sessions() {
		s.removeSession(sess, "shutdown", false)
		sess.Channel.Close()
	}
	s.saveDirty()
	s.refreshStatus()
	if s.events != nil {
		s.events.Close()
	}
	s.logger.Info("✅ Игровой цикл остановлен")
}

func (s *Server) publish(ev eventbus.GameEvent) {
	if s.events == nil {
		return
	}
	env, err := eventbus.Wrap(s.opts.Name, ev)
	if err != nil {
		s.logger.Warn("EventBus: %v", err)
		return
	}
	if !s.events.Offer(env) {
		s.metrics.dropped("event_queue_full")
		s.logger.Debug("EventBus: очередь заполнена, %s отброшено", env.EventType)
	}
}

// CheckInitFrame проверяет, что снимок карты помещается в один кадр транспорта
func CheckInitFrame(m *world.Map) error {
	frame, err := protocol.Encode(protocol.InitOf(m))
	if err != nil {
		return err
	}
	if len(frame) > network.MaxFrameSize {
		return fmt.Errorf("server: init for map %q is %d bytes, frame limit %d", m.Name, len(frame), network.MaxFrameSize)
	}
	return nil
}
