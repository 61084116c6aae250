package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics метрики игрового цикла. Все методы безопасны для nil.
type Metrics struct {
	ticks         prometheus.Counter
	tickDuration  prometheus.Histogram
	playersOnline prometheus.Gauge
	messagesIn    *prometheus.CounterVec
	messagesOut   *prometheus.CounterVec
	droppedEdits  *prometheus.CounterVec
	disconnects   *prometheus.CounterVec
}

// NewMetrics создаёт метрики и регистрирует их в reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bricklayer",
			Name:      "ticks_total",
			Help:      "Количество тиков игрового цикла.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bricklayer",
			Name:      "tick_duration_seconds",
			Help:      "Время обработки одного тика.",
			Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .0166, .025, .05},
		}),
		playersOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bricklayer",
			Name:      "players_online",
			Help:      "Игроков в сети.",
		}),
		messagesIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bricklayer",
			Name:      "messages_in_total",
			Help:      "Принятые сообщения по типу.",
		}, []string{"type"}),
		messagesOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bricklayer",
			Name:      "messages_out_total",
			Help:      "Отправленные сообщения по типу.",
		}, []string{"type"}),
		droppedEdits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bricklayer",
			Name:      "dropped_messages_total",
			Help:      "Молча отброшенные сообщения игроков по причине.",
		}, []string{"reason"}),
		disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bricklayer",
			Name:      "disconnects_total",
			Help:      "Отключения по причине.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.ticks, m.tickDuration, m.playersOnline,
			m.messagesIn, m.messagesOut, m.droppedEdits, m.disconnects)
	}
	return m
}

func (m *Metrics) tick(seconds float64, online int) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(seconds)
	m.playersOnline.Set(float64(online))
}

func (m *Metrics) messageIn(t string) {
	if m != nil {
		m.messagesIn.WithLabelValues(t).Inc()
	}
}

func (m *Metrics) messageOut(t string) {
	if m != nil {
		m.messagesOut.WithLabelValues(t).Inc()
	}
}

func (m *Metrics) dropped(reason string) {
	if m != nil {
		m.droppedEdits.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) disconnect(reason string) {
	if m != nil {
		m.disconnects.WithLabelValues(reason).Inc()
	}
}
