package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del dashboard.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Chart    ChartConfig    `yaml:"chart"`
	Backtest BacktestConfig `yaml:"backtest"`
	Poll     PollConfig     `yaml:"poll"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Log      LogConfig      `yaml:"log"`
}

// APIConfig apunta al backend REST.
type APIConfig struct {
	BaseURL        string  `yaml:"base_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RatePerSec     float64 `yaml:"rate_per_sec"`
}

// OverlayConfig es una media móvil del gráfico.
type OverlayConfig struct {
	Window  int    `yaml:"window"`
	Color   string `yaml:"color"`
	Enabled bool   `yaml:"enabled"`
}

// ChartConfig controla el gráfico y la ventana de foco.
type ChartConfig struct {
	DefaultSymbol   string          `yaml:"default_symbol"`
	DefaultInterval string          `yaml:"default_interval"` // daily | minute
	Overlays        []OverlayConfig `yaml:"overlays"`
	FocusBeforeDays int             `yaml:"focus_before_days"`
	FocusAfterDays  int             `yaml:"focus_after_days"`
	Output          string          `yaml:"output"` // directorio del HTML; vacío = no escribir
}

// BacktestConfig contiene los valores por defecto del formulario de backtest.
type BacktestConfig struct {
	InitialBalance  float64 `yaml:"initial_balance"`
	DefaultStrategy string  `yaml:"default_strategy"`
	Start           string  `yaml:"start"`
	End             string  `yaml:"end"`
}

// PollConfig controla el refresco de los paneles de estado.
type PollConfig struct {
	KillSwitchSeconds int `yaml:"kill_switch_seconds"`
	SchedulerSeconds  int `yaml:"scheduler_seconds"`
}

// ArchiveConfig controla el archivo offline.
type ArchiveConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// Timeout devuelve el timeout HTTP como time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// FocusBefore devuelve el margen del foco antes del trade.
func (c *Config) FocusBefore() time.Duration {
	return time.Duration(c.Chart.FocusBeforeDays) * 24 * time.Hour
}

// FocusAfter devuelve el margen del foco después del trade.
func (c *Config) FocusAfter() time.Duration {
	return time.Duration(c.Chart.FocusAfterDays) * 24 * time.Hour
}

// KillSwitchEvery devuelve el intervalo de consulta del kill switch.
func (c *Config) KillSwitchEvery() time.Duration {
	return time.Duration(c.Poll.KillSwitchSeconds) * time.Second
}

// SchedulerEvery devuelve el intervalo de consulta del scheduler.
func (c *Config) SchedulerEvery() time.Duration {
	return time.Duration(c.Poll.SchedulerSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("ARCHIVE_DSN"); v != "" {
		cfg.Archive.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8080"
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 30
	}
	if cfg.API.RatePerSec <= 0 {
		cfg.API.RatePerSec = 20
	}
	if cfg.Chart.DefaultSymbol == "" {
		cfg.Chart.DefaultSymbol = "005930"
	}
	if cfg.Chart.DefaultInterval == "" {
		cfg.Chart.DefaultInterval = "daily"
	}
	if len(cfg.Chart.Overlays) == 0 {
		cfg.Chart.Overlays = []OverlayConfig{
			{Window: 5, Color: "#facc15"},
			{Window: 20, Color: "#4ade80", Enabled: true},
			{Window: 60, Color: "#c084fc", Enabled: true},
		}
	}
	if cfg.Chart.FocusBeforeDays <= 0 {
		cfg.Chart.FocusBeforeDays = 30
	}
	if cfg.Chart.FocusAfterDays <= 0 {
		cfg.Chart.FocusAfterDays = 10
	}
	if cfg.Backtest.InitialBalance <= 0 {
		cfg.Backtest.InitialBalance = 10_000_000
	}
	if cfg.Backtest.DefaultStrategy == "" {
		cfg.Backtest.DefaultStrategy = "S1"
	}
	if cfg.Poll.KillSwitchSeconds <= 0 {
		cfg.Poll.KillSwitchSeconds = 5
	}
	if cfg.Poll.SchedulerSeconds <= 0 {
		cfg.Poll.SchedulerSeconds = 10
	}
	if cfg.Archive.DSN == "" {
		cfg.Archive.DSN = "chartsync.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
