package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/bricklayer/internal/api"
	"github.com/annel0/bricklayer/internal/config"
	"github.com/annel0/bricklayer/internal/eventbus"
	"github.com/annel0/bricklayer/internal/logging"
	"github.com/annel0/bricklayer/internal/network"
	"github.com/annel0/bricklayer/internal/observability"
	"github.com/annel0/bricklayer/internal/server"
	"github.com/annel0/bricklayer/internal/storage"
	"github.com/annel0/bricklayer/internal/world"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "", "путь к config.yaml или config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	logging.Configure(loggingOptions(cfg.Logging))
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🎮 Запуск Bricklayer Server...")
	logging.Info("📡 Конфигурация: KCP=%s, WS=%s, API=%s, tick=%dHz",
		cfg.Server.GetKCPAddr(), cfg.Server.GetWSAddr(), cfg.Server.GetAPIAddr(), cfg.Server.TickRate)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(ctx context.Context, cfg *config.Config) error {
	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("⚠️ Ошибка остановки OpenTelemetry: %v", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// === ХРАНИЛИЩЕ И КАРТА ===
	var store *storage.MapStore
	if cfg.Storage.Path != "" {
		store, err = storage.NewMapStore(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer store.Close()
	}
	m, err := loadOrGenerate(store, cfg.World)
	if err != nil {
		return err
	}
	if err := server.CheckInitFrame(m); err != nil {
		return err
	}

	// === ШИНА СОБЫТИЙ ===
	bus, err := newEventBus(cfg.EventBus)
	if err != nil {
		return err
	}
	defer bus.Close()
	if _, err := eventbus.StartLoggingListener(bus); err != nil {
		return err
	}
	if err := eventbus.RegisterMetrics(bus, reg); err != nil {
		return err
	}

	// === ИГРОВОЙ СЕРВЕР ===
	inbox := network.NewInbox(0)
	srv := server.New(server.OptionsFrom(cfg), inbox)
	srv.AddMap(m)
	srv.SetMetrics(server.NewMetrics(reg))
	srv.SetEventBus(bus)
	if store != nil {
		srv.SetStore(store)
	}

	netOpts := network.DefaultOptions()
	netOpts.SendBuffer = cfg.Server.SendBuffer
	netOpts.IdleTimeout = cfg.Server.IdleTimeout.Duration
	netOpts.Metrics = network.NewMetrics(reg)

	kcpServer := network.NewKCPServer(cfg.Server.GetKCPAddr(), inbox, netOpts)
	if err := kcpServer.Start(); err != nil {
		return err
	}
	defer kcpServer.Stop()

	wsMux := http.NewServeMux()
	wsMux.Handle("/ws", network.NewWSHandler(inbox, netOpts))
	wsServer := &http.Server{Addr: cfg.Server.GetWSAddr(), Handler: wsMux, ReadHeaderTimeout: 5 * time.Second}

	restServer, err := api.NewRestServer(api.Options{
		Addr:        cfg.Server.GetAPIAddr(),
		ServiceName: cfg.Telemetry.ServiceName,
		Registry:    reg,
	}, srv)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		logging.Info("🔌 WebSocket транспорт на %s/ws", wsServer.Addr)
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := restServer.Start(); err != nil {
			errCh <- err
		}
	}()

	loopCtx, cancelLoop := context.WithCancel(ctx)
	loopDone := make(chan error, 1)
	go func() { loopDone <- srv.Run(loopCtx) }()

	logging.Info("✅ Все сервисы запущены и готовы принимать соединения")
	logging.Info("   🎮 KCP %s, карта %q %dx%d", kcpServer.Addr(), m.Name, m.Grid.Width(), m.Grid.Height())
	logging.Info("   ❤️  Health check: http://localhost%s/health", cfg.Server.GetAPIAddr())

	var runErr error
	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал завершения, остановка...")
	case runErr = <-errCh:
		logging.Error("❌ Ошибка транспорта: %v", runErr)
	}

	// === GRACEFUL SHUTDOWN ===
	cancelLoop()
	if err := <-loopDone; err != nil && runErr == nil {
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logging.Warn("⚠️ Ошибка остановки WebSocket: %v", err)
	}
	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logging.Warn("⚠️ Ошибка остановки REST API: %v", err)
	}
	return runErr
}

// loadOrGenerate берёт карту из хранилища, а при её отсутствии генерирует новую
func loadOrGenerate(store *storage.MapStore, wc config.WorldConfig) (*world.Map, error) {
	if store != nil {
		m, meta, err := store.Load(wc.Name)
		if err == nil {
			logging.Info("💾 Карта %q загружена (сохранена %s)", meta.Name, meta.SavedAt.Format(time.RFC3339))
			return m, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}

	grid, spawn, err := world.Generate(wc.Generator, wc.Width, wc.Height, wc.Seed)
	if err != nil {
		return nil, err
	}
	logging.Info("🌍 Сгенерирована карта %q (%s, seed=%d)", wc.Name, wc.Generator, wc.Seed)
	m := world.NewMap(wc.Name, grid, spawn)
	m.Dirty = store != nil
	return m, nil
}

func newEventBus(ec config.EventBusConfig) (eventbus.EventBus, error) {
	if ec.URL == "" {
		return eventbus.NewMemoryBus(1024), nil
	}
	jb, err := eventbus.NewJetStreamBus(ec.URL, ec.Stream, time.Duration(ec.Retention)*time.Hour)
	if err != nil {
		return nil, err
	}
	logging.Info("📨 JetStream шина подключена: %s (stream=%s)", ec.URL, ec.Stream)
	return jb, nil
}

func loggingOptions(lc config.LoggingConfig) logging.Options {
	opts := logging.DefaultOptions()
	opts.Dir = lc.Dir
	if lvl, err := logging.ParseLevel(lc.ConsoleLevel); err == nil {
		opts.ConsoleLevel = lvl
	}
	if lvl, err := logging.ParseLevel(lc.FileLevel); err == nil {
		opts.FileLevel = lvl
	}
	if lc.MaxSizeMB > 0 {
		opts.MaxSizeMB = lc.MaxSizeMB
	}
	if lc.MaxBackups > 0 {
		opts.MaxBackups = lc.MaxBackups
	}
	if lc.MaxAgeDays > 0 {
		opts.MaxAgeDays = lc.MaxAgeDays
	}
	return opts
}
