package eventbus

import (
	"context"

	"github.com/annel0/bricklayer/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог компонента "eventbus".
// Функция неблокирующая.
func StartLoggingListener(bus EventBus) (Subscription, error) {
	logger := logging.GetComponentLogger("eventbus")
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, env *Envelope) {
		ev, err := Decode(env)
		if err != nil {
			logger.Warn("[EventBus] %s: %v", env.ID, err)
			return
		}
		switch e := ev.(type) {
		case ChatPosted:
			logger.Info("[%s] <%s> %s", e.Map, e.Username, e.Message)
		case BlockPlaced:
			logger.Debug("[%s] игрок %d: блок (%d,%d,%d) %d -> %d", e.Map, e.PlayerID, e.X, e.Y, e.Z, e.Old, e.New)
		default:
			logger.Debug("[EventBus] %s %s src=%s map=%s", env.ID, env.EventType, env.Source, env.Map)
		}
	})
	if err != nil {
		return nil, err
	}
	logger.Info("LoggingListener: подписка на все события активирована")
	return sub, nil
}
