package network

import (
	"context"
	"fmt"
	"sync"

	"github.com/xtaci/kcp-go/v5"

	"github.com/annel0/bricklayer/internal/logging"
)

// tuneSession настраивает KCP параметры для игрового трафика
func tuneSession(conn *kcp.UDPSession) {
	conn.SetStreamMode(true)
	conn.SetWriteDelay(false)
	conn.SetNoDelay(1, 20, 2, 1) // Агрессивные настройки для игр
	conn.SetWindowSize(512, 512) // Увеличиваем окно для пропускной способности
	conn.SetMtu(1400)            // Стандартный MTU для интернета
}

// KCPServer принимает KCP соединения и публикует их события в Inbox
type KCPServer struct {
	addr     string
	opts     Options
	inbox    *Inbox
	listener *kcp.Listener
	logger   *logging.Logger

	mu      sync.Mutex
	clients map[string]*conn

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewKCPServer создаёт сервер; прослушивание начинается в Start
func NewKCPServer(addr string, inbox *Inbox, opts Options) *KCPServer {
	return &KCPServer{
		addr:    addr,
		opts:    opts,
		inbox:   inbox,
		logger:  logging.GetNetworkLogger(),
		clients: make(map[string]*conn),
	}
}

// Start запускает сервер
func (s *KCPServer) Start() error {
	listener, err := kcp.ListenWithOptions(s.addr, nil, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("🚀 KCP server started on %s", listener.Addr())
	return nil
}

// Addr фактический адрес прослушивания
func (s *KCPServer) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop останавливает сервер и закрывает все соединения
func (s *KCPServer) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}

	s.mu.Lock()
	for _, c := range s.clients {
		c.Close()
	}
	s.mu.Unlock()

	// Ждем завершения горутин
	s.wg.Wait()

	s.logger.Info("🛑 KCP server stopped")
	return err
}

// acceptLoop принимает входящие соединения
func (s *KCPServer) acceptLoop() {
	defer s.wg.Done()

	for {
		sess, err := s.listener.AcceptKCP()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return // Сервер останавливается
			default:
				s.logger.Error("Failed to accept connection: %v", err)
				continue
			}
		}

		tuneSession(sess)
		c := newConn(newStreamConn(sess, s.opts.IdleTimeout), ChannelKCP, s.opts)

		s.mu.Lock()
		s.clients[c.id] = c
		s.mu.Unlock()

		s.logger.Debug("KCP connection from %s: id=%s", sess.RemoteAddr(), c.id)
		c.start(s.inbox, false)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			c.Wait()
			s.mu.Lock()
			delete(s.clients, c.id)
			s.mu.Unlock()
		}()
	}
}

// DialKCP подключается к KCP серверу. События соединения приходят в inbox,
// первым из них EventConnect без данных.
func DialKCP(addr string, inbox *Inbox, opts Options) (Channel, error) {
	sess, err := kcp.DialWithOptions(addr, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	tuneSession(sess)

	c := newConn(newStreamConn(sess, opts.IdleTimeout), ChannelKCP, opts)
	c.start(inbox, true)
	logging.GetNetworkLogger().Info("KCP channel connected: addr=%s", addr)
	return c, nil
}
