package network

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics счётчики транспорта по типу канала
type Metrics struct {
	framesSent     *prometheus.CounterVec
	framesReceived *prometheus.CounterVec
	framesDropped  *prometheus.CounterVec
	bytesSent      *prometheus.CounterVec
	bytesReceived  *prometheus.CounterVec
	activeChannels *prometheus.GaugeVec
}

// NewMetrics регистрирует метрики транспорта в reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bricklayer_network_frames_sent_total",
			Help: "Frames written to peers",
		}, []string{"transport"}),
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bricklayer_network_frames_received_total",
			Help: "Frames read from peers",
		}, []string{"transport"}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bricklayer_network_frames_dropped_total",
			Help: "Unreliable frames dropped on a full send buffer",
		}, []string{"transport"}),
		bytesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bricklayer_network_bytes_sent_total",
			Help: "Payload bytes written to peers",
		}, []string{"transport"}),
		bytesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bricklayer_network_bytes_received_total",
			Help: "Payload bytes read from peers",
		}, []string{"transport"}),
		activeChannels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bricklayer_network_active_channels",
			Help: "Open channels",
		}, []string{"transport"}),
	}
	reg.MustRegister(m.framesSent, m.framesReceived, m.framesDropped, m.bytesSent, m.bytesReceived, m.activeChannels)
	return m
}

func (m *Metrics) frameSent(t ChannelType, size int) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(t.String()).Inc()
	m.bytesSent.WithLabelValues(t.String()).Add(float64(size))
}

func (m *Metrics) frameReceived(t ChannelType, size int) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(t.String()).Inc()
	m.bytesReceived.WithLabelValues(t.String()).Add(float64(size))
}

func (m *Metrics) frameDropped(t ChannelType) {
	if m == nil {
		return
	}
	m.framesDropped.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) channelOpened(t ChannelType) {
	if m == nil {
		return
	}
	m.activeChannels.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) channelClosed(t ChannelType) {
	if m == nil {
		return
	}
	m.activeChannels.WithLabelValues(t.String()).Dec()
}
