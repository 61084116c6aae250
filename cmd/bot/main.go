// Бот без графики: входит на сервер по KCP или WebSocket, ходит
// влево-вправо, подпрыгивает и иногда пишет в чат.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/bricklayer/internal/client"
	"github.com/annel0/bricklayer/internal/logging"
	"github.com/annel0/bricklayer/internal/network"
	"github.com/annel0/bricklayer/internal/physics"
	"github.com/annel0/bricklayer/internal/prediction"
	"github.com/annel0/bricklayer/internal/world"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:7777", "адрес KCP сервера")
	wsURL := flag.String("ws", "", "URL WebSocket (ws://host:7778/ws); если задан, KCP не используется")
	name := flag.String("name", "", "имя бота")
	duration := flag.Duration("duration", 0, "время работы; 0 — до сигнала")
	flag.Parse()

	if err := logging.InitDefaultLogger("bot"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	if *name == "" {
		*name = fmt.Sprintf("bot%03d", rand.Intn(1000))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	color := world.Color{R: uint8(rand.Intn(256)), G: uint8(rand.Intn(256)), B: uint8(rand.Intn(256))}
	var session *client.Session
	var err error
	if *wsURL != "" {
		session, err = client.DialWS(ctx, *wsURL, *name, color, network.DefaultOptions())
	} else {
		session, err = client.DialKCP(*addr, *name, color, network.DefaultOptions())
	}
	if err != nil {
		logging.Error("❌ Не удалось подключиться: %v", err)
		return
	}
	defer session.Close()

	if err := run(ctx, session); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logging.Error("❌ %v", err)
	}
}

func run(ctx context.Context, s *client.Session) error {
	// ждём карту
	for !s.Game.Ready() {
		if err := s.Wait(ctx); err != nil {
			return err
		}
	}
	me := s.Game.Me
	logging.Info("✅ %s вошёл как #%d (индекс %d), игроков: %d", me.Username, me.ID, me.Index, len(s.Game.Players()))

	const tickRate = 60
	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

	var w walker
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			elapsed := now.Sub(last).Seconds()
			last = now
			in := w.next(elapsed)
			if err := s.Tick(elapsed, in); err != nil {
				return err
			}
			for _, line := range w.say(s.Game) {
				s.Game.Say(line)
			}
		}
	}
}

// walker меняет направление каждые несколько секунд и прыгает, упираясь в стену
type walker struct {
	dir      int
	left     float64
	lastX    float64
	stuck    float64
	chatWait float64
}

func (w *walker) next(elapsed float64) prediction.Input {
	w.left -= elapsed
	if w.left <= 0 {
		w.dir = rand.Intn(3) - 1
		w.left = 1 + rand.Float64()*3
	}
	return prediction.Input{Left: w.dir < 0, Right: w.dir > 0, Jump: w.stuck > 0.25}
}

func (w *walker) say(g *client.Game) []string {
	if g.Me == nil {
		return nil
	}
	x := g.Me.Body.Simulation.Position.X
	if w.dir != 0 && x == w.lastX {
		w.stuck += 1.0 / 60
	} else {
		w.stuck = 0
	}
	w.lastX = x

	w.chatWait -= 1.0 / 60
	if w.chatWait > 0 {
		return nil
	}
	w.chatWait = 20 + rand.Float64()*20
	if g.Me.Body.Mode == physics.ModeGod {
		return []string{"лечу!"}
	}
	return []string{fmt.Sprintf("я на (%.0f, %.0f)", x, g.Me.Body.Simulation.Position.Y)}
}
