// Package network предоставляет унифицированный интерфейс для сетевых каналов
package network

import (
	"errors"
	"time"

	"github.com/annel0/bricklayer/internal/protocol"
)

var (
	// ErrSendBufferFull очередь отправки переполнена для надёжного кадра
	ErrSendBufferFull = errors.New("network: send buffer full")
	// ErrClosed канал закрыт
	ErrClosed = errors.New("network: channel closed")
	// ErrFrameTooLarge кадр превышает MaxFrameSize
	ErrFrameTooLarge = errors.New("network: frame too large")
)

// MaxFrameSize максимальный размер одного кадра
const MaxFrameSize = 1 << 20

// ChannelType определяет тип канала связи
type ChannelType int

const (
	ChannelKCP ChannelType = iota
	ChannelWebSocket
	ChannelPipe
)

// String возвращает имя транспорта для логов и метрик
func (t ChannelType) String() string {
	switch t {
	case ChannelKCP:
		return "kcp"
	case ChannelWebSocket:
		return "websocket"
	case ChannelPipe:
		return "pipe"
	default:
		return "unknown"
	}
}

// ConnectionStats содержит статистику соединения
type ConnectionStats struct {
	PacketsSent     uint64    // Отправлено кадров
	PacketsReceived uint64    // Получено кадров
	PacketsDropped  uint64    // Отброшено ненадёжных кадров
	BytesSent       uint64    // Отправлено байт
	BytesReceived   uint64    // Получено байт
	LastActivity    time.Time // Последняя активность
	Connected       bool      // Статус соединения
	RemoteAddr      string    // Адрес удалённого узла
}

// Channel двунаправленный канал кадров с одним удалённым узлом
type Channel interface {
	// ID уникальный идентификатор соединения
	ID() string
	RemoteAddr() string
	Type() ChannelType
	// Send ставит кадр в очередь и никогда не блокирует. При переполнении
	// ненадёжные кадры отбрасываются, надёжные возвращают ErrSendBufferFull.
	Send(frame []byte, reliability protocol.Reliability) error
	Stats() ConnectionStats
	Close() error
}

// Options настройки каналов
type Options struct {
	SendBuffer   int           // размер очереди отправки в кадрах
	WriteTimeout time.Duration // таймаут записи одного кадра
	IdleTimeout  time.Duration // 0 — без таймаута чтения
	Metrics      *Metrics      // может быть nil
}

// DefaultOptions возвращает настройки по умолчанию
func DefaultOptions() Options {
	return Options{
		SendBuffer:   1024,
		WriteTimeout: 5 * time.Second,
	}
}

func (o Options) normalized() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = DefaultOptions().SendBuffer
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultOptions().WriteTimeout
	}
	return o
}
