package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/bricklayer/internal/logging"
	"github.com/annel0/bricklayer/internal/network"
	"github.com/annel0/bricklayer/internal/prediction"
	"github.com/annel0/bricklayer/internal/protocol"
	"github.com/annel0/bricklayer/internal/world"
)

// ErrDisconnected сервер закрыл соединение
var ErrDisconnected = errors.New("client: disconnected")

// Session связывает Game с сетевым каналом
type Session struct {
	Game *Game

	channel network.Channel
	inbox   *network.Inbox
	logger  *logging.Logger
	closed  bool
}

// NewSession отправляет Login по уже открытому каналу. Кадры сервера
// должны приходить в inbox.
func NewSession(ch network.Channel, inbox *network.Inbox, username string, color world.Color) (*Session, error) {
	s := &Session{
		Game:    NewGame(),
		channel: ch,
		inbox:   inbox,
		logger:  logging.GetNetworkLogger(),
	}
	if err := s.send(protocol.Login{Username: username, Color: color}); err != nil {
		ch.Close()
		return nil, fmt.Errorf("client: login: %w", err)
	}
	return s, nil
}

// DialKCP подключается к серверу по KCP и входит в игру
func DialKCP(addr, username string, color world.Color, opts network.Options) (*Session, error) {
	inbox := network.NewInbox(0)
	ch, err := network.DialKCP(addr, inbox, opts)
	if err != nil {
		return nil, err
	}
	return NewSession(ch, inbox, username, color)
}

// DialWS подключается к серверу по WebSocket и входит в игру
func DialWS(ctx context.Context, url, username string, color world.Color, opts network.Options) (*Session, error) {
	inbox := network.NewInbox(0)
	ch, err := network.DialWS(ctx, url, inbox, opts)
	if err != nil {
		return nil, err
	}
	return NewSession(ch, inbox, username, color)
}

// Channel сетевой канал сессии
func (s *Session) Channel() network.Channel { return s.channel }

// Poll применяет все полученные сообщения без ожидания
func (s *Session) Poll() error {
	for {
		ev, ok := s.inbox.Poll()
		if !ok {
			return nil
		}
		if err := s.handleEvent(ev); err != nil {
			return err
		}
	}
}

func (s *Session) handleEvent(ev network.Event) error {
	switch ev.Kind {
	case network.EventConnect:
		return nil
	case network.EventDisconnect:
		s.closed = true
		if ev.Err != nil {
			return fmt.Errorf("%w: %v", ErrDisconnected, ev.Err)
		}
		return ErrDisconnected
	}

	msg, err := protocol.Decode(ev.Payload)
	if err != nil {
		logging.LogProtocolError(s.logger, s.channel.ID(), err, ev.Payload)
		s.Close()
		return err
	}
	return s.Game.Handle(msg)
}

// Wait блокируется до следующего события или отмены ctx и применяет его
func (s *Session) Wait(ctx context.Context) error {
	select {
	case ev := <-s.inbox.C():
		return s.handleEvent(ev)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush отправляет исходящую очередь Game
func (s *Session) Flush() error {
	for _, msg := range s.Game.Drain() {
		if err := s.send(msg); err != nil {
			return err
		}
	}
	return nil
}

// Tick один кадр клиента: входящие, симуляция, исходящие
func (s *Session) Tick(elapsed float64, in prediction.Input) error {
	if err := s.Poll(); err != nil {
		return err
	}
	s.Game.Update(elapsed, in)
	return s.Flush()
}

// Close отправляет уведомление о выходе и закрывает канал
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.Game.Leave()
	if err := s.Flush(); err != nil {
		s.logger.Debug("client: leave: %v", err)
	}
	return s.channel.Close()
}

func (s *Session) send(msg protocol.Message) error {
	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return s.channel.Send(frame, protocol.ReliabilityOf(msg.Type()))
}
