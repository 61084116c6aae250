// Package api поднимает HTTP API состояния сервера: ping, health, список
// игроков и метрики Prometheus.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/bricklayer/internal/logging"
	"github.com/annel0/bricklayer/internal/middleware"
	"github.com/annel0/bricklayer/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// StatusProvider источник снимка состояния игрового сервера
type StatusProvider interface {
	Status() server.Status
}

// GenericResponse общий формат ответа API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PingData ответ /ping
type PingData struct {
	Online     int `json:"online"`
	MaxPlayers int `json:"max_players"`
}

// Options параметры RestServer
type Options struct {
	Addr        string
	ServiceName string
	// Registry источник метрик для /metrics; туда же пишутся HTTP-метрики
	Registry *prometheus.Registry
}

// RestServer HTTP API состояния
type RestServer struct {
	router  *gin.Engine
	http    *http.Server
	status  StatusProvider
	process *ProcessMetrics
	logger  *logging.Logger
}

// NewRestServer создаёт сервер и настраивает маршруты
func NewRestServer(opts Options, status StatusProvider) (*RestServer, error) {
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "bricklayer_api"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	rs := &RestServer{
		router:  router,
		status:  status,
		process: NewProcessMetrics(),
		logger:  logging.GetComponentLogger("api"),
	}
	if err := rs.setupRoutes(opts); err != nil {
		return nil, err
	}
	rs.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return rs, nil
}

func (rs *RestServer) setupRoutes(opts Options) error {
	rs.router.Use(otelgin.Middleware(opts.ServiceName))
	rs.router.Use(middleware.NewRequestLogger(rs.logger).Handler())

	prom, err := middleware.NewPrometheusMiddleware("bricklayer_api", opts.Registry)
	if err != nil {
		return err
	}
	rs.router.Use(prom.Handler())
	prom.RegisterMetricsEndpoint(rs.router, opts.Registry)

	rs.router.GET("/ping", rs.handlePing)
	rs.router.GET("/health", rs.handleHealth)
	rs.router.GET("/players", rs.handlePlayers)
	rs.router.GET("/maps/:name", rs.handleMap)
	return nil
}

// Handler корневой http.Handler
func (rs *RestServer) Handler() http.Handler { return rs.router }

func (rs *RestServer) handlePing(c *gin.Context) {
	st := rs.status.Status()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: st.MOTD,
		Data:    PingData{Online: st.Online, MaxPlayers: st.MaxPlayers},
	})
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, rs.process.Snapshot())
}

func (rs *RestServer) handlePlayers(c *gin.Context) {
	st := rs.status.Status()
	maps := st.Maps
	if maps == nil {
		maps = []server.MapStatus{}
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "ok", Data: maps})
}

func (rs *RestServer) handleMap(c *gin.Context) {
	name := c.Param("name")
	for _, m := range rs.status.Status().Maps {
		if m.Name == name {
			c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "ok", Data: m})
			return
		}
	}
	c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "карта не найдена"})
}

// Start слушает адрес до вызова Shutdown
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 HTTP API запущен на %s", rs.http.Addr)
	if err := rs.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown дожидается завершения активных запросов
func (rs *RestServer) Shutdown(ctx context.Context) error {
	return rs.http.Shutdown(ctx)
}
