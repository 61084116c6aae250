package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/annel0/bricklayer/internal/world"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера.
// Формат файла выбирается по расширению: .toml или YAML во всех остальных случаях.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	World     WorldConfig     `yaml:"world" toml:"world"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Limits    LimitsConfig    `yaml:"limits" toml:"limits"`
	EventBus  EventBusConfig  `yaml:"eventbus" toml:"eventbus"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

type ServerConfig struct {
	KCPAddr     string   `yaml:"kcp_addr" toml:"kcp_addr"`
	WSAddr      string   `yaml:"ws_addr" toml:"ws_addr"`
	APIAddr     string   `yaml:"api_addr" toml:"api_addr"`
	TickRate    int      `yaml:"tick_rate" toml:"tick_rate"`
	MaxPlayers  int      `yaml:"max_players" toml:"max_players"`
	MOTD        string   `yaml:"motd" toml:"motd"`
	SendBuffer  int      `yaml:"send_buffer" toml:"send_buffer"`
	IdleTimeout Duration `yaml:"idle_timeout" toml:"idle_timeout"`
}

type WorldConfig struct {
	Name      string `yaml:"name" toml:"name"`
	Width     int    `yaml:"width" toml:"width"`
	Height    int    `yaml:"height" toml:"height"`
	Generator string `yaml:"generator" toml:"generator"`
	Seed      int64  `yaml:"seed" toml:"seed"`
}

type StorageConfig struct {
	// Path пустой — карты не сохраняются.
	Path      string   `yaml:"path" toml:"path"`
	SaveEvery Duration `yaml:"save_every" toml:"save_every"`
}

type LimitsConfig struct {
	BlockEdits Limiter `yaml:"block_edits" toml:"block_edits"`
	Chat       Limiter `yaml:"chat" toml:"chat"`
}

type EventBusConfig struct {
	// URL пустой — используется шина в памяти.
	URL       string `yaml:"url" toml:"url"`
	Stream    string `yaml:"stream" toml:"stream"`
	Retention int    `yaml:"retention_hours" toml:"retention_hours"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
	ServiceName string `yaml:"service_name" toml:"service_name"`
	Endpoint    string `yaml:"endpoint" toml:"endpoint"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir" toml:"dir"`
	ConsoleLevel string `yaml:"console_level" toml:"console_level"`
	FileLevel    string `yaml:"file_level" toml:"file_level"`
	MaxSizeMB    int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups   int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays   int    `yaml:"max_age_days" toml:"max_age_days"`
}

// Limiter описывает токен-бакет: N событий подряд, затем одно событие раз в Every.
type Limiter struct {
	Every Duration `yaml:"every" toml:"every"`
	N     int      `yaml:"n" toml:"n"`
}

// Limiter создаёт новый rate.Limiter. Every == 0 снимает ограничение.
func (l Limiter) Limiter() *rate.Limiter {
	if l.Every.Duration <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := l.N
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(l.Every.Duration), burst)
}

// Duration принимает строки вида "5s" или "250ms" в обоих форматах.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) (err error) {
	d.Duration, err = time.ParseDuration(string(text))
	return
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// Default возвращает конфигурацию со значениями по умолчанию.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			TickRate:   60,
			MaxPlayers: 64,
			MOTD:       "Bricklayer Server",
			SendBuffer: 1024,
		},
		World: WorldConfig{
			Name:      "main",
			Width:     150,
			Height:    75,
			Generator: "bordered",
		},
		Storage: StorageConfig{
			SaveEvery: Duration{time.Minute},
		},
		Limits: LimitsConfig{
			BlockEdits: Limiter{Every: Duration{20 * time.Millisecond}, N: 50},
			Chat:       Limiter{Every: Duration{time.Second}, N: 5},
		},
		EventBus: EventBusConfig{
			Stream:    "BRICKLAYER",
			Retention: 24,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "bricklayer-server",
		},
		Logging: LoggingConfig{
			Dir:          "logs",
			ConsoleLevel: "INFO",
			FileLevel:    "DEBUG",
			MaxSizeMB:    100,
			MaxBackups:   3,
			MaxAgeDays:   28,
		},
	}
}

// GetKCPAddr возвращает адрес KCP с приоритетом: config -> env -> default
func (s *ServerConfig) GetKCPAddr() string {
	return getAddrWithEnvFallback(s.KCPAddr, "GAME_KCP_ADDR", ":7777")
}

// GetWSAddr возвращает адрес WebSocket транспорта
func (s *ServerConfig) GetWSAddr() string {
	return getAddrWithEnvFallback(s.WSAddr, "GAME_WS_ADDR", ":7778")
}

// GetAPIAddr возвращает адрес REST API
func (s *ServerConfig) GetAPIAddr() string {
	return getAddrWithEnvFallback(s.APIAddr, "GAME_API_ADDR", ":8088")
}

// getAddrWithEnvFallback возвращает адрес с приоритетом: config -> env -> default
func getAddrWithEnvFallback(configAddr, envVar, defaultAddr string) string {
	if configAddr != "" {
		return configAddr
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultAddr
}

// TickInterval длительность одного тика сервера.
func (s *ServerConfig) TickInterval() time.Duration {
	if s.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(s.TickRate)
}

// Load читает файл конфигурации поверх значений по умолчанию.
// Если path == "", берётся ENV GAME_CONFIG; если и он пуст, возвращаются дефолты.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("GAME_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("разбор TOML %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("разбор YAML %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения, без которых сервер не запустится.
func (c *Config) Validate() error {
	if c.Server.TickRate <= 0 {
		return fmt.Errorf("server.tick_rate должен быть > 0, получено %d", c.Server.TickRate)
	}
	if c.Server.MaxPlayers <= 0 || c.Server.MaxPlayers > 255 {
		return fmt.Errorf("server.max_players вне диапазона 1..255: %d", c.Server.MaxPlayers)
	}
	if c.World.Width < 3 || c.World.Height < 3 {
		return fmt.Errorf("world: размер %dx%d меньше 3x3", c.World.Width, c.World.Height)
	}
	if c.World.Width > world.MaxDimension || c.World.Height > world.MaxDimension {
		return fmt.Errorf("world: размер %dx%d больше %dx%d", c.World.Width, c.World.Height, world.MaxDimension, world.MaxDimension)
	}
	return nil
}
