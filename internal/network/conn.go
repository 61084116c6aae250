package network

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/bricklayer/internal/logging"
	"github.com/annel0/bricklayer/internal/protocol"
)

// frameConn транспорт, умеющий читать и писать целые кадры
type frameConn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte, timeout time.Duration) error
	Close() error
	RemoteAddr() string
}

// conn общая часть всех каналов: очередь отправки, горутины чтения и записи, статистика
type conn struct {
	id     string
	kind   ChannelType
	fc     frameConn
	opts   Options
	logger *logging.Logger

	sendQ     chan []byte
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	packetsSent     atomic.Uint64
	packetsReceived atomic.Uint64
	packetsDropped  atomic.Uint64
	bytesSent       atomic.Uint64
	bytesReceived   atomic.Uint64
	lastActivity    atomic.Int64
}

func newConn(fc frameConn, kind ChannelType, opts Options) *conn {
	opts = opts.normalized()
	c := &conn{
		id:     uuid.NewString(),
		kind:   kind,
		fc:     fc,
		opts:   opts,
		logger: logging.GetNetworkLogger(),
		sendQ:  make(chan []byte, opts.SendBuffer),
		done:   make(chan struct{}),
	}
	c.lastActivity.Store(time.Now().UnixNano())
	return c
}

// start запускает горутины. Серверные соединения (approved=false) отдают
// первый кадр как EventConnect, клиентские сразу публикуют EventConnect без данных.
func (c *conn) start(inbox *Inbox, approved bool) {
	c.opts.Metrics.channelOpened(c.kind)
	if approved {
		inbox.Push(Event{Kind: EventConnect, Channel: c})
	}

	c.wg.Add(2)
	go c.sendLoop()
	go c.receiveLoop(inbox, approved)
}

func (c *conn) ID() string         { return c.id }
func (c *conn) RemoteAddr() string { return c.fc.RemoteAddr() }
func (c *conn) Type() ChannelType  { return c.kind }

// Send ставит кадр в очередь отправки без блокировки
func (c *conn) Send(frame []byte, reliability protocol.Reliability) error {
	if len(frame) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.sendQ <- frame:
		return nil
	default:
		if reliability == protocol.Unreliable {
			c.packetsDropped.Add(1)
			c.opts.Metrics.frameDropped(c.kind)
			return nil
		}
		return ErrSendBufferFull
	}
}

// Stats возвращает статистику соединения
func (c *conn) Stats() ConnectionStats {
	connected := true
	select {
	case <-c.done:
		connected = false
	default:
	}
	return ConnectionStats{
		PacketsSent:     c.packetsSent.Load(),
		PacketsReceived: c.packetsReceived.Load(),
		PacketsDropped:  c.packetsDropped.Load(),
		BytesSent:       c.bytesSent.Load(),
		BytesReceived:   c.bytesReceived.Load(),
		LastActivity:    time.Unix(0, c.lastActivity.Load()),
		Connected:       connected,
		RemoteAddr:      c.RemoteAddr(),
	}
}

// Close закрывает канал. Уже поставленные в очередь кадры дописываются.
func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

// Wait ждёт завершения горутин канала
func (c *conn) Wait() {
	c.wg.Wait()
}

// sendLoop обрабатывает отправку кадров; только он закрывает транспорт
func (c *conn) sendLoop() {
	defer c.wg.Done()
	defer func() {
		if err := c.fc.Close(); err != nil {
			c.logger.Debug("close %s: %v", c.id, err)
		}
		c.opts.Metrics.channelClosed(c.kind)
	}()

	for {
		select {
		case frame := <-c.sendQ:
			if err := c.write(frame); err != nil {
				c.logger.Debug("Failed to send frame to %s: %v", c.RemoteAddr(), err)
				c.Close()
				return
			}
		case <-c.done:
			// дописываем то, что уже в очереди (например, PlayerLeave перед выходом)
			for {
				select {
				case frame := <-c.sendQ:
					if err := c.write(frame); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (c *conn) write(frame []byte) error {
	if err := c.fc.WriteFrame(frame, c.opts.WriteTimeout); err != nil {
		return err
	}
	c.packetsSent.Add(1)
	c.bytesSent.Add(uint64(len(frame)))
	c.lastActivity.Store(time.Now().UnixNano())
	c.opts.Metrics.frameSent(c.kind, len(frame))
	return nil
}

// receiveLoop читает кадры и публикует их в inbox
func (c *conn) receiveLoop(inbox *Inbox, approved bool) {
	defer c.wg.Done()

	var reason error
	defer func() {
		c.Close()
		inbox.Push(Event{Kind: EventDisconnect, Channel: c, Err: reason})
	}()

	first := !approved
	for {
		frame, err := c.fc.ReadFrame()
		if err != nil {
			select {
			case <-c.done:
				// закрыто локально
			default:
				reason = err
			}
			return
		}

		c.packetsReceived.Add(1)
		c.bytesReceived.Add(uint64(len(frame)))
		c.lastActivity.Store(time.Now().UnixNano())
		c.opts.Metrics.frameReceived(c.kind, len(frame))

		kind := EventData
		if first {
			kind = EventConnect
			first = false
		}
		if !inbox.Push(Event{Kind: kind, Channel: c, Payload: frame}) {
			return
		}
	}
}
