package client

import (
	"fmt"
	"testing"

	"github.com/annel0/bricklayer/internal/physics"
	"github.com/annel0/bricklayer/internal/prediction"
	"github.com/annel0/bricklayer/internal/protocol"
	"github.com/annel0/bricklayer/internal/vec"
	"github.com/annel0/bricklayer/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = 1.0 / 60

func initFor(m *world.Map) protocol.Init {
	return protocol.InitOf(m)
}

// readyGame игра после стандартной последовательности входа: свой игрок с id=1,
// чужой с id=2, карта 10x10 с рамкой
func readyGame(t *testing.T) *Game {
	t.Helper()
	g := NewGame()
	require.NoError(t, g.Handle(protocol.PlayerJoin{Username: "me", ID: 1, IsSelf: true}))
	require.NoError(t, g.Handle(protocol.PlayerJoin{Username: "other", ID: 2}))
	require.NoError(t, g.Handle(initFor(world.NewMap("main", world.Bordered(10, 10), world.DefaultSpawn()))))
	require.True(t, g.Ready())
	return g
}

func states(msgs []protocol.Message) []protocol.PlayerState {
	var out []protocol.PlayerState
	for _, m := range msgs {
		if s, ok := m.(protocol.PlayerState); ok {
			out = append(out, s)
		}
	}
	return out
}

func TestGame_JoinBeforeInitIsBuffered(t *testing.T) {
	g := NewGame()
	require.NoError(t, g.Handle(protocol.PlayerJoin{Username: "me", ID: 3, IsSelf: true}))
	require.NoError(t, g.Handle(protocol.PlayerJoin{Username: "other", ID: 0}))

	assert.False(t, g.Ready(), "без Init игра не готова")
	assert.Len(t, g.Players(), 2)

	require.NoError(t, g.Handle(initFor(world.NewMap("main", world.Bordered(12, 8), world.DefaultSpawn()))))
	require.True(t, g.Ready())
	assert.Equal(t, uint8(3), g.MyID)
	assert.True(t, g.Me.Body.Owned, "свой игрок предсказывается локально")

	players := g.Map.Players()
	require.Len(t, players, 2)
	assert.Equal(t, "me", players[0].Username)
	assert.Equal(t, 1, players[1].Index)
}

func TestGame_BadInit(t *testing.T) {
	g := NewGame()
	err := g.Handle(protocol.Init{Width: 4, Height: 4, Tiles: []byte{1, 2}})
	assert.ErrorIs(t, err, world.ErrBadTiles)
}

func TestGame_SendsOnlyInputEdges(t *testing.T) {
	g := readyGame(t)

	// Приземляемся, чтобы не было событий прыжка
	for i := 0; i < 120; i++ {
		g.Update(tick, prediction.Input{})
	}
	require.Empty(t, g.Drain())

	g.Update(tick, prediction.Input{Right: true})
	for i := 0; i < 30; i++ {
		g.Update(tick, prediction.Input{})
	}

	sent := states(g.Drain())
	require.Len(t, sent, 2, "нажатие и отпускание — ровно два состояния")
	assert.Equal(t, 1.0, sent[0].Movement.X)
	assert.Equal(t, 0.0, sent[1].Movement.X)
	assert.Equal(t, uint8(1), sent[0].ID)
}

func TestGame_JumpEventsAreSent(t *testing.T) {
	g := readyGame(t)
	for i := 0; i < 120; i++ {
		g.Update(tick, prediction.Input{})
	}
	require.True(t, g.Me.Body.IsOnGround)
	g.Drain()

	for i := 0; i < 30; i++ {
		g.Update(tick, prediction.Input{Jump: true})
	}

	sent := states(g.Drain())
	require.GreaterOrEqual(t, len(sent), 2)
	assert.True(t, sent[0].IsJumping, "начало прыжка")
	assert.False(t, sent[1].IsJumping, "конец подъёма")
}

func TestGame_RemoteStateAndSmoothing(t *testing.T) {
	g := readyGame(t)
	other, ok := g.Player(2)
	require.True(t, ok)
	assert.False(t, other.Body.Owned)

	require.NoError(t, g.Handle(protocol.PlayerState{ID: 2, Position: vec.Vec2Float{X: 64, Y: 64}}))
	assert.Equal(t, vec.Vec2Float{X: 64, Y: 64}, other.Body.Simulation.Position)

	g.Update(tick, prediction.Input{})
	assert.Equal(t, other.Body.Simulation.Position.X, other.Body.Display.Position.X, "по X отображение не сглаживается")
	assert.Less(t, other.Body.Display.Position.Y, other.Body.Simulation.Position.Y, "по Y отображение догоняет симуляцию")
	assert.Empty(t, g.Drain(), "чужие игроки не порождают отправок")

	// своё состояние от сервера игнорируется
	before := g.Me.Body.Simulation
	require.NoError(t, g.Handle(protocol.PlayerState{ID: 1, Position: vec.Vec2Float{X: 100, Y: 100}}))
	assert.Equal(t, before, g.Me.Body.Simulation)
}

func TestGame_BlocksAndEdits(t *testing.T) {
	g := readyGame(t)

	require.NoError(t, g.Handle(protocol.Block{X: 5, Y: 5, Layer: world.LayerIndexForeground, Block: 5}))
	id, err := g.Map.Grid.ID(5, 5, world.LayerIndexForeground)
	require.NoError(t, err)
	assert.EqualValues(t, 5, id)

	require.NoError(t, g.PlaceBlock(4, 4, world.LayerIndexForeground, 3))
	assert.ErrorIs(t, g.PlaceBlock(4, 4, world.LayerIndexForeground, 3), world.ErrNoChange)
	assert.ErrorIs(t, g.PlaceBlock(40, 4, world.LayerIndexForeground, 3), world.ErrOutOfBounds)

	msgs := g.Drain()
	require.Len(t, msgs, 1, "только успешная правка уходит на сервер")
	assert.Equal(t, protocol.Block{X: 4, Y: 4, Layer: world.LayerIndexForeground, Block: 3}, msgs[0])
}

func TestGame_ChatLog(t *testing.T) {
	g := readyGame(t)

	for i := 0; i < MaxChatLines+5; i++ {
		require.NoError(t, g.Handle(protocol.Chat{ID: 2, Message: fmt.Sprintf("msg %d", i)}))
	}
	log := g.Chat()
	require.Len(t, log, MaxChatLines)
	assert.Equal(t, "msg 5", log[0].Message)
	assert.Equal(t, "other", log[0].Username)

	g.Say("  привет  ")
	log = g.Chat()
	assert.Equal(t, "привет", log[len(log)-1].Message)
	assert.Equal(t, []protocol.Message{protocol.Chat{ID: 1, Message: "привет"}}, g.Drain())

	g.Say("   ")
	assert.Empty(t, g.Drain(), "пустое сообщение не отправляется")
}

func TestGame_SmileyModeAndLeave(t *testing.T) {
	g := readyGame(t)

	g.CycleSmiley(-1)
	assert.EqualValues(t, 11, g.Me.Smiley)
	g.ToggleMode()
	assert.Equal(t, physics.ModeGod, g.Me.Body.Mode)
	g.Leave()

	assert.Equal(t, []protocol.Message{
		protocol.PlayerSmiley{ID: 1, Smiley: 11},
		protocol.PlayerMode{ID: 1, Mode: physics.ModeGod},
		protocol.PlayerLeave{ID: 1},
	}, g.Drain())

	require.NoError(t, g.Handle(protocol.PlayerMode{ID: 2, Mode: physics.ModeGod}))
	require.NoError(t, g.Handle(protocol.PlayerSmiley{ID: 2, Smiley: 4}))
	other, _ := g.Player(2)
	assert.Equal(t, physics.ModeGod, other.Mode())
	assert.EqualValues(t, 4, other.Smiley)

	require.NoError(t, g.Handle(protocol.PlayerLeave{ID: 2}))
	_, ok := g.Player(2)
	assert.False(t, ok)
	assert.Equal(t, 0, g.Me.Index, "оставшиеся игроки перенумерованы")
}
