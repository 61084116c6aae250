// Package client содержит клиентскую сторону синхронизации: предсказание
// своего игрока, сглаживание чужих и применение входящих сообщений.
package client

import (
	"errors"
	"strings"

	"github.com/annel0/bricklayer/internal/logging"
	"github.com/annel0/bricklayer/internal/physics"
	"github.com/annel0/bricklayer/internal/prediction"
	"github.com/annel0/bricklayer/internal/protocol"
	"github.com/annel0/bricklayer/internal/vec"
	"github.com/annel0/bricklayer/internal/world"
	"github.com/annel0/bricklayer/internal/world/block"
)

// MaxChatLines сколько последних строк чата хранится
const MaxChatLines = 50

// ChatLine строка чата
type ChatLine struct {
	PlayerID uint8
	Username string
	Message  string
}

// Game состояние клиента. Не потокобезопасно: Handle и Update вызываются
// из одного цикла.
type Game struct {
	MyID uint8
	Me   *world.Player
	Map  *world.Map

	// игроки, объявленные до прихода Init
	pending []*world.Player
	chat    []ChatLine
	outbox  []protocol.Message
	tracker prediction.Tracker
	logger  *logging.Logger
}

// NewGame создаёт пустое состояние клиента
func NewGame() *Game {
	return &Game{logger: logging.GetGameLogger()}
}

// Ready карта получена и свой игрок известен
func (g *Game) Ready() bool {
	return g.Map != nil && g.Me != nil
}

// Players возвращает всех известных игроков в порядке входа
func (g *Game) Players() []*world.Player {
	if g.Map == nil {
		return append([]*world.Player(nil), g.pending...)
	}
	return g.Map.Players()
}

// Player ищет игрока по ID
func (g *Game) Player(id uint8) (*world.Player, bool) {
	if g.Map != nil {
		return g.Map.PlayerByID(id)
	}
	for _, p := range g.pending {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Chat возвращает копию журнала чата
func (g *Game) Chat() []ChatLine {
	return append([]ChatLine(nil), g.chat...)
}

// Handle применяет входящее сообщение сервера
func (g *Game) Handle(msg protocol.Message) error {
	switch m := msg.(type) {
	case protocol.Init:
		return g.handleInit(m)
	case protocol.PlayerJoin:
		g.handleJoin(m)
	case protocol.PlayerLeave:
		g.removePlayer(m.ID)
	case protocol.PlayerState:
		g.handleState(m)
	case protocol.Block:
		g.handleBlock(m)
	case protocol.Chat:
		g.handleChat(m)
	case protocol.PlayerMode:
		if p, ok := g.Player(m.ID); ok && m.Mode.IsValid() {
			p.Body.Mode = m.Mode
		}
	case protocol.PlayerSmiley:
		if p, ok := g.Player(m.ID); ok && block.IsValidSmiley(m.Smiley) {
			p.Smiley = m.Smiley
		}
	default:
		g.logger.Debug("клиент: неожиданное сообщение %s", msg.Type())
	}
	return nil
}

func (g *Game) handleInit(m protocol.Init) error {
	grid, err := world.LoadTiles(m.Width, m.Height, m.Tiles)
	if err != nil {
		return err
	}
	g.Map = world.NewMap("remote", grid, m.Spawn)
	for _, p := range g.pending {
		g.Map.AddPlayer(p)
	}
	g.pending = nil
	g.tracker.Reset()
	return nil
}

func (g *Game) spawn() vec.Vec2Float {
	if g.Map != nil {
		return g.Map.Spawn
	}
	return world.DefaultSpawn()
}

func (g *Game) handleJoin(m protocol.PlayerJoin) {
	// повторное объявление того же ID заменяет игрока
	g.removePlayer(m.ID)

	p := world.NewPlayer(m.ID, m.Username, m.Color, g.spawn(), m.IsSelf)
	if m.IsSelf {
		g.MyID = m.ID
		g.Me = p
	}
	if g.Map != nil {
		g.Map.AddPlayer(p)
	} else {
		g.pending = append(g.pending, p)
	}
}

func (g *Game) removePlayer(id uint8) {
	if g.Map != nil {
		g.Map.RemovePlayer(id)
	} else {
		for i, p := range g.pending {
			if p.ID == id {
				g.pending = append(g.pending[:i], g.pending[i+1:]...)
				break
			}
		}
	}
	if g.Me != nil && g.Me.ID == id {
		g.Me = nil
	}
}

// handleState принимает состояние чужого игрока; своё состояние клиент
// предсказывает сам и присланное игнорирует
func (g *Game) handleState(m protocol.PlayerState) {
	if g.Me != nil && m.ID == g.MyID {
		return
	}
	p, ok := g.Player(m.ID)
	if !ok {
		return
	}
	p.Body.Simulation = m.Kinematics()
	p.Body.IsJumping = m.IsJumping
	p.Body.IdleTime = 0
}

func (g *Game) handleBlock(m protocol.Block) {
	if g.Map == nil {
		return
	}
	if err := g.Map.Grid.Set(m.X, m.Y, m.Layer, m.Block); err != nil {
		g.logger.Warn("клиент: блок (%d,%d,%d)=%d не применён: %v", m.X, m.Y, m.Layer, m.Block, err)
	}
}

func (g *Game) handleChat(m protocol.Chat) {
	name := "?"
	if p, ok := g.Player(m.ID); ok {
		name = p.Username
	}
	g.appendChat(ChatLine{PlayerID: m.ID, Username: name, Message: protocol.TruncateRunes(m.Message, protocol.MaxChatLength)})
}

func (g *Game) appendChat(line ChatLine) {
	g.chat = append(g.chat, line)
	if len(g.chat) > MaxChatLines {
		g.chat = g.chat[len(g.chat)-MaxChatLines:]
	}
}

// Update продвигает симуляцию на elapsed секунд.
// Свой игрок предсказывается по вводу, состояние отправляется только на
// границах ввода и событиях прыжка. Чужие игроки экстраполируются и сглаживаются.
func (g *Game) Update(elapsed float64, in prediction.Input) []physics.Event {
	if g.Map == nil {
		return nil
	}

	var events []physics.Event
	if g.Me != nil {
		body := g.Me.Body
		if g.tracker.Apply(body, in) {
			g.queue(protocol.StateOf(g.MyID, body))
		}
		events = physics.Step(body, g.Map.Grid, elapsed)
		for _, ev := range events {
			state := protocol.StateOf(g.MyID, body)
			switch ev {
			case physics.EventJumpStarted:
				state.IsJumping = true
			case physics.EventJumpStopped:
				state.IsJumping = false
			}
			g.queue(state)
		}
		prediction.Interpolate(body, elapsed)
	}

	for _, p := range g.Map.Players() {
		if p == g.Me {
			continue
		}
		physics.Step(p.Body, g.Map.Grid, elapsed)
		prediction.Interpolate(p.Body, elapsed)
	}
	return events
}

// PlaceBlock меняет клетку локально и отправляет правку серверу
func (g *Game) PlaceBlock(x, y, z int, id block.BlockID) error {
	if g.Map == nil {
		return errors.New("client: map not loaded")
	}
	if _, err := g.Map.PlaceBlock(x, y, z, id); err != nil {
		return err
	}
	g.queue(protocol.Block{X: x, Y: y, Layer: z, Block: id})
	return nil
}

// Say отправляет сообщение в чат и сразу показывает его у себя
func (g *Game) Say(text string) {
	text = strings.TrimSpace(protocol.TruncateRunes(text, protocol.MaxChatLength))
	if text == "" || g.Me == nil {
		return
	}
	g.appendChat(ChatLine{PlayerID: g.MyID, Username: g.Me.Username, Message: text})
	g.queue(protocol.Chat{ID: g.MyID, Message: text})
}

// CycleSmiley переключает свой смайлик на step позиций по кругу
func (g *Game) CycleSmiley(step int) {
	if g.Me == nil {
		return
	}
	g.Me.Smiley = block.CycleSmiley(g.Me.Smiley, step)
	g.queue(protocol.PlayerSmiley{ID: g.MyID, Smiley: g.Me.Smiley})
}

// ToggleMode переключает обычный режим и режим бога
func (g *Game) ToggleMode() {
	if g.Me == nil {
		return
	}
	body := g.Me.Body
	if body.Mode == physics.ModeGod {
		body.Mode = physics.ModeNormal
	} else {
		body.Mode = physics.ModeGod
	}
	body.Simulation.Velocity = vec.Zero
	body.IsJumping = false
	body.JumpTime = 0
	g.queue(protocol.PlayerMode{ID: g.MyID, Mode: body.Mode})
}

// Leave ставит в очередь уведомление о выходе
func (g *Game) Leave() {
	if g.Me != nil {
		g.queue(protocol.PlayerLeave{ID: g.MyID})
	}
}

func (g *Game) queue(msg protocol.Message) {
	g.outbox = append(g.outbox, msg)
}

// Drain возвращает накопленные исходящие сообщения и очищает очередь
func (g *Game) Drain() []protocol.Message {
	out := g.outbox
	g.outbox = nil
	return out
}
