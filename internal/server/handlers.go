package server

import (
	"errors"
	"strings"

	"github.com/annel0/bricklayer/internal/eventbus"
	"github.com/annel0/bricklayer/internal/logging"
	"github.com/annel0/bricklayer/internal/network"
	"github.com/annel0/bricklayer/internal/physics"
	"github.com/annel0/bricklayer/internal/prediction"
	"github.com/annel0/bricklayer/internal/protocol"
	"github.com/annel0/bricklayer/internal/world"
	"github.com/annel0/bricklayer/internal/world/block"
)

// ErrNoSession кадр данных от соединения без одобренной сессии
var ErrNoSession = errors.New("server: no session for connection")

// handleEvent обрабатывает одно событие транспорта, затем выполняет
// отключения, накопленные при рассылке
func (s *Server) handleEvent(ev network.Event) {
	switch ev.Kind {
	case network.EventConnect:
		s.handleConnect(ev.Channel, ev.Payload)
	case network.EventData:
		s.handleData(ev.Channel, ev.Payload)
	case network.EventDisconnect:
		s.handleDisconnect(ev.Channel, ev.Err)
	}
	s.flushDrops()
}

// handleConnect одобряет подключение по первому кадру (Login) и
// отправляет новому игроку состояние карты
func (s *Server) handleConnect(ch network.Channel, payload []byte) {
	msg, err := protocol.Decode(payload)
	if err != nil {
		logging.LogProtocolError(s.logger, ch.ID(), err, payload)
		s.reject(ch, "malformed")
		return
	}
	login, ok := msg.(protocol.Login)
	if !ok {
		s.logger.Warn("🚫 %s: первое сообщение %s вместо login", ch.ID(), msg.Type())
		s.reject(ch, "no_login")
		return
	}
	s.metrics.messageIn(protocol.MsgLogin.String())

	username := strings.TrimSpace(login.Username)
	if username == "" {
		s.logger.Warn("🚫 %s: пустое имя пользователя", ch.ID())
		s.reject(ch, "bad_username")
		return
	}

	m := s.registry.DefaultMap()
	if m == nil {
		s.logger.Error("❌ %s: нет карты для входа", ch.ID())
		s.reject(ch, "no_map")
		return
	}

	id, ok := s.registry.AllocateID(m)
	if !ok {
		s.logger.Warn("⚠️ Свободных ID на карте %s нет (max %d), выдаём 0", m.Name, s.opts.MaxPlayers)
	}

	player := world.NewPlayer(id, username, login.Color, m.Spawn, false)
	player.ConnID = ch.ID()
	sess := &Session{
		Channel:      ch,
		Player:       player,
		Map:          m,
		blockLimiter: s.opts.BlockEdits.Limiter(),
		chatLimiter:  s.opts.Chat.Limiter(),
	}
	existing := s.registry.InMap(m)

	// Порядок важен: своё подтверждение, рассылка остальным, затем
	// существующие игроки и в конце снимок карты
	s.send(sess, protocol.JoinOf(player, true))
	s.broadcast(m, protocol.JoinOf(player, false), sess)
	for _, other := range existing {
		op := other.Player
		s.send(sess, protocol.JoinOf(op, false))
		s.send(sess, protocol.StateOf(op.ID, op.Body))
		if op.Mode() != physics.ModeNormal {
			s.send(sess, protocol.PlayerMode{ID: op.ID, Mode: op.Mode()})
		}
		if op.Smiley != block.DefaultSmiley {
			s.send(sess, protocol.PlayerSmiley{ID: op.ID, Smiley: op.Smiley})
		}
	}
	s.send(sess, protocol.InitOf(m))

	m.AddPlayer(player)
	s.registry.Add(sess)
	s.logger.Info("🔗 %s вошёл на карту %s: id=%d index=%d (%s, %s)",
		username, m.Name, player.ID, player.Index, ch.Type(), ch.RemoteAddr())
	s.publish(eventbus.PlayerJoined{Map: m.Name, PlayerID: player.ID, Username: username, Remote: ch.RemoteAddr()})
}

// handleData разбирает кадр одобренной сессии
func (s *Server) handleData(ch network.Channel, payload []byte) {
	sess, ok := s.registry.Session(ch.ID())
	if !ok {
		s.logger.Warn("🚫 %s: %v, соединение закрывается", ch.ID(), ErrNoSession)
		s.reject(ch, "no_session")
		return
	}

	msg, err := protocol.Decode(payload)
	if err != nil {
		logging.LogProtocolError(s.logger, ch.ID(), err, payload)
		s.drop(sess.Channel, "malformed")
		return
	}
	s.metrics.messageIn(msg.Type().String())

	switch m := msg.(type) {
	case protocol.PlayerState:
		s.handleState(sess, m)
	case protocol.Block:
		s.handleBlock(sess, m)
	case protocol.Chat:
		s.handleChat(sess, m)
	case protocol.PlayerSmiley:
		s.handleSmiley(sess, m)
	case protocol.PlayerMode:
		s.handleMode(sess, m)
	case protocol.PlayerLeave:
		s.logger.Info("👋 %s покидает игру", sess.Player.Username)
		s.drop(sess.Channel, "leave")
	case protocol.Login:
		s.logger.Warn("⚠️ %s: повторный login проигнорирован", sess.Player.Username)
		s.metrics.dropped("login_after_approval")
	default:
		s.logger.Warn("⚠️ %s: неожиданное сообщение %s", sess.Player.Username, msg.Type())
		s.metrics.dropped("unexpected_type")
	}
}

// handleState принимает состояние клиента как новое состояние симуляции.
// ID всегда берётся из сессии, позиция вписывается в мир.
func (s *Server) handleState(sess *Session, msg protocol.PlayerState) {
	p := sess.Player
	k := prediction.ClampState(msg.Kinematics(), sess.Map)

	p.Body.Previous = p.Body.Simulation
	p.Body.Simulation = k
	p.Body.Display = k
	p.Body.IsJumping = msg.IsJumping
	p.Body.IdleTime = 0

	s.broadcast(sess.Map, protocol.StateOf(p.ID, p.Body), sess)
}

func (s *Server) handleBlock(sess *Session, msg protocol.Block) {
	if !sess.Map.InBounds(msg.X, msg.Y, msg.Layer) {
		s.metrics.dropped("block_out_of_bounds")
		return
	}
	if !sess.blockLimiter.Allow() {
		s.metrics.dropped("block_rate_limited")
		return
	}

	change, err := sess.Map.PlaceBlock(msg.X, msg.Y, msg.Layer, msg.Block)
	switch {
	case err == nil:
	case errors.Is(err, world.ErrNoChange):
		s.metrics.dropped("block_no_change")
		return
	case errors.Is(err, world.ErrUnknownBlock):
		s.metrics.dropped("block_unknown")
		return
	case errors.Is(err, world.ErrWrongLayer):
		s.metrics.dropped("block_wrong_layer")
		return
	default:
		s.logger.Debug("%s: правка блока отклонена: %v", sess.Player.Username, err)
		s.metrics.dropped("block_invalid")
		return
	}

	s.broadcast(sess.Map, msg, sess)
	s.publish(eventbus.BlockPlaced{
		Map:      sess.Map.Name,
		PlayerID: sess.Player.ID,
		X:        change.Position.X,
		Y:        change.Position.Y,
		Z:        change.Position.Z,
		Old:      uint8(change.Old),
		New:      uint8(change.New),
	})
}

func (s *Server) handleChat(sess *Session, msg protocol.Chat) {
	text := strings.TrimSpace(protocol.TruncateRunes(msg.Message, protocol.MaxChatLength))
	if text == "" {
		s.metrics.dropped("chat_empty")
		return
	}
	if !sess.chatLimiter.Allow() {
		s.metrics.dropped("chat_rate_limited")
		return
	}

	p := sess.Player
	s.broadcast(sess.Map, protocol.Chat{ID: p.ID, Message: text}, sess)
	s.publish(eventbus.ChatPosted{Map: sess.Map.Name, PlayerID: p.ID, Username: p.Username, Message: text})
}

func (s *Server) handleSmiley(sess *Session, msg protocol.PlayerSmiley) {
	if !block.IsValidSmiley(msg.Smiley) {
		s.metrics.dropped("smiley_invalid")
		return
	}
	p := sess.Player
	if p.Smiley == msg.Smiley {
		return
	}
	p.Smiley = msg.Smiley
	s.broadcast(sess.Map, protocol.PlayerSmiley{ID: p.ID, Smiley: p.Smiley}, sess)
}

func (s *Server) handleMode(sess *Session, msg protocol.PlayerMode) {
	if !msg.Mode.IsValid() {
		s.metrics.dropped("mode_invalid")
		return
	}
	p := sess.Player
	if p.Body.Mode == msg.Mode {
		return
	}
	p.Body.Mode = msg.Mode
	s.broadcast(sess.Map, protocol.PlayerMode{ID: p.ID, Mode: p.Body.Mode}, sess)
}

// handleDisconnect убирает игрока закрытого соединения
func (s *Server) handleDisconnect(ch network.Channel, cause error) {
	sess, ok := s.registry.Session(ch.ID())
	if !ok {
		return
	}
	reason := "closed"
	if cause != nil {
		s.logger.Debug("%s: соединение закрыто: %v", ch.ID(), cause)
		reason = "error"
	}
	s.removeSession(sess, reason, true)
}

// removeSession удаляет игрока с карты, перенумеровывает оставшихся и
// рассылает уход
func (s *Server) removeSession(sess *Session, reason string, notify bool) {
	if _, ok := s.registry.Remove(sess.ConnID()); !ok {
		return
	}
	p := sess.Player
	sess.Map.RemovePlayer(p.ID)
	s.metrics.disconnect(reason)
	s.logger.Info("👋 %s покинул карту %s (id=%d, %s)", p.Username, sess.Map.Name, p.ID, reason)

	if notify {
		s.broadcast(sess.Map, protocol.PlayerLeave{ID: p.ID}, sess)
	}
	s.publish(eventbus.PlayerLeft{Map: sess.Map.Name, PlayerID: p.ID, Username: p.Username, Reason: reason})
}

// reject закрывает соединение без сессии
func (s *Server) reject(ch network.Channel, reason string) {
	s.metrics.disconnect(reason)
	if err := ch.Close(); err != nil {
		s.logger.Debug("%s: закрытие: %v", ch.ID(), err)
	}
}

// drop откладывает отключение до конца обработки текущего события
func (s *Server) drop(ch network.Channel, reason string) {
	for _, d := range s.pendingDrops {
		if d.channel.ID() == ch.ID() {
			return
		}
	}
	s.pendingDrops = append(s.pendingDrops, pendingDrop{channel: ch, reason: reason})
}

func (s *Server) flushDrops() {
	for len(s.pendingDrops) > 0 {
		d := s.pendingDrops[0]
		s.pendingDrops = s.pendingDrops[1:]
		if sess, ok := s.registry.Session(d.channel.ID()); ok {
			s.removeSession(sess, d.reason, true)
		} else {
			s.metrics.disconnect(d.reason)
		}
		d.channel.Close()
	}
}

// send кодирует и ставит сообщение в очередь сессии. Ошибка отправки
// приводит к отключению только этой сессии.
func (s *Server) send(sess *Session, msg protocol.Message) {
	frame, err := protocol.Encode(msg)
	if err != nil {
		s.logger.Error("❌ Кодирование %s: %v", msg.Type(), err)
		return
	}
	s.sendFrame(sess, msg.Type(), frame)
}

func (s *Server) sendFrame(sess *Session, t protocol.MsgType, frame []byte) {
	if err := sess.Channel.Send(frame, protocol.ReliabilityOf(t)); err != nil {
		s.logger.Warn("⚠️ %s: отправка %s не удалась: %v", sess.Player.Username, t, err)
		reason := "send_failed"
		if errors.Is(err, network.ErrSendBufferFull) {
			reason = "send_overflow"
		}
		s.drop(sess.Channel, reason)
		return
	}
	s.metrics.messageOut(t.String())
}

// broadcast рассылает сообщение всем сессиям карты, кроме except
func (s *Server) broadcast(m *world.Map, msg protocol.Message, except *Session) {
	frame, err := protocol.Encode(msg)
	if err != nil {
		s.logger.Error("❌ Кодирование %s: %v", msg.Type(), err)
		return
	}
	for _, other := range s.registry.InMap(m) {
		if other == except {
			continue
		}
		s.sendFrame(other, msg.Type(), frame)
	}
}
