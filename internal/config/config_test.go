package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultsWithoutPath(t *testing.T) {
	t.Setenv("GAME_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Server.TickRate)
	assert.Equal(t, 150, cfg.World.Width)
	assert.Equal(t, 75, cfg.World.Height)
	assert.Equal(t, "bordered", cfg.World.Generator)
	assert.Equal(t, time.Minute, cfg.Storage.SaveEvery.Duration)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "server.yaml", `
server:
  kcp_addr: "127.0.0.1:9000"
  tick_rate: 30
  max_players: 8
  motd: "Привет"
world:
  name: lobby
  width: 40
  height: 20
  generator: perlin
  seed: 42
limits:
  chat:
    every: 2s
    n: 3
storage:
  path: /tmp/maps
  save_every: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.GetKCPAddr())
	assert.Equal(t, 30, cfg.Server.TickRate)
	assert.Equal(t, 8, cfg.Server.MaxPlayers)
	assert.Equal(t, "Привет", cfg.Server.MOTD)
	assert.Equal(t, "lobby", cfg.World.Name)
	assert.Equal(t, int64(42), cfg.World.Seed)
	assert.Equal(t, 2*time.Second, cfg.Limits.Chat.Every.Duration)
	assert.Equal(t, 3, cfg.Limits.Chat.N)
	assert.Equal(t, 30*time.Second, cfg.Storage.SaveEvery.Duration)
	// Не заданное в файле остаётся по умолчанию
	assert.Equal(t, 50, cfg.Limits.BlockEdits.N)
	assert.Equal(t, time.Second/30, cfg.Server.TickInterval())
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "server.toml", `
[server]
ws_addr = ":9100"
max_players = 16

[world]
width = 64
height = 32

[limits.block_edits]
every = "100ms"
n = 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.GetWSAddr())
	assert.Equal(t, 16, cfg.Server.MaxPlayers)
	assert.Equal(t, 64, cfg.World.Width)
	assert.Equal(t, 100*time.Millisecond, cfg.Limits.BlockEdits.Every.Duration)
	assert.Equal(t, 10, cfg.Limits.BlockEdits.N)
}

func TestLoadFromEnv(t *testing.T) {
	path := writeFile(t, "env.yaml", "world:\n  name: from-env\n")
	t.Setenv("GAME_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.World.Name)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "отсутствующий файл должен давать ошибку")

	bad := writeFile(t, "bad.yaml", "world:\n  width: 2\n  height: 2\n")
	_, err = Load(bad)
	assert.Error(t, err, "карта меньше 3x3 недопустима")

	broken := writeFile(t, "broken.toml", "[server\n")
	_, err = Load(broken)
	assert.Error(t, err, "битый TOML должен давать ошибку")

	badDuration := writeFile(t, "dur.yaml", "storage:\n  save_every: сразу\n")
	_, err = Load(badDuration)
	assert.Error(t, err, "некорректная длительность должна давать ошибку")
}

func TestAddrEnvFallback(t *testing.T) {
	var s ServerConfig
	t.Setenv("GAME_API_ADDR", ":9999")
	t.Setenv("GAME_KCP_ADDR", "")

	assert.Equal(t, ":9999", s.GetAPIAddr(), "адрес из окружения")
	assert.Equal(t, ":7777", s.GetKCPAddr(), "адрес по умолчанию")

	s.APIAddr = ":1234"
	assert.Equal(t, ":1234", s.GetAPIAddr(), "конфиг имеет приоритет над окружением")
}

func TestLimiter(t *testing.T) {
	l := Limiter{Every: Duration{time.Hour}, N: 2}.Limiter()
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow(), "третье событие сверх бакета отклоняется")

	unlimited := Limiter{}.Limiter()
	for i := 0; i < 100; i++ {
		assert.True(t, unlimited.Allow())
	}
}
