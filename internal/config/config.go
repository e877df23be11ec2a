package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Zones   ZonesConfig   `yaml:"zones" mapstructure:"zones"`
	Nearest NearestConfig `yaml:"nearest" mapstructure:"nearest"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	PostGIS PostGISConfig `yaml:"postgis" mapstructure:"postgis"`
	Redis   RedisConfig   `yaml:"redis" mapstructure:"redis"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ZonesConfig selects where zones come from and how they are buffered.
type ZonesConfig struct {
	Source             string  `yaml:"source" mapstructure:"source"`
	Path               string  `yaml:"path" mapstructure:"path"`
	BufferMeters       float64 `yaml:"buffer_meters" mapstructure:"buffer_meters"`
	ReloadIntervalSecs int     `yaml:"reload_interval_secs" mapstructure:"reload_interval_secs"`
	IDField            string  `yaml:"id_field" mapstructure:"id_field"`
	NameField          string  `yaml:"name_field" mapstructure:"name_field"`
	OperatorField      string  `yaml:"operator_field" mapstructure:"operator_field"`
	RegionField        string  `yaml:"region_field" mapstructure:"region_field"`
}

// NearestConfig configures nearest-zone search.
type NearestConfig struct {
	InitialRadiusMeters float64 `yaml:"initial_radius_meters" mapstructure:"initial_radius_meters"`
	MaxDistanceMeters   float64 `yaml:"max_distance_meters" mapstructure:"max_distance_meters"`
}

// BatchConfig configures batch checks.
type BatchConfig struct {
	Workers  int `yaml:"workers" mapstructure:"workers"`
	MaxItems int `yaml:"max_items" mapstructure:"max_items"`
}

// PostGISConfig configures the PostGIS zone source.
type PostGISConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Table       string `yaml:"table" mapstructure:"table"`
}

// RedisConfig configures the reload trigger channel. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	Channel  string `yaml:"channel" mapstructure:"channel"`
}

// MetricsConfig configures the Prometheus endpoint served by watch. An
// empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch c.Zones.Source {
	case "geojson", "shapefile", "gob":
		if c.Zones.Path == "" {
			return eris.Errorf("config: zones.path is required for source %q", c.Zones.Source)
		}
	case "postgis":
		if c.PostGIS.DatabaseURL == "" {
			return eris.New("config: postgis.database_url is required for source postgis")
		}
	default:
		return eris.Errorf("config: unknown zones.source %q", c.Zones.Source)
	}
	if c.Zones.BufferMeters < 0 {
		return eris.Errorf("config: zones.buffer_meters must be >= 0, got %v", c.Zones.BufferMeters)
	}
	if c.Nearest.MaxDistanceMeters < 0 {
		return eris.Errorf("config: nearest.max_distance_meters must be >= 0, got %v", c.Nearest.MaxDistanceMeters)
	}
	return nil
}

// Load reads configuration from config.yaml (optional) and GEOFENCE_*
// environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOFENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("zones.source", "geojson")
	v.SetDefault("zones.path", "data/zones.geojson")
	v.SetDefault("zones.buffer_meters", 50.0)
	v.SetDefault("zones.reload_interval_secs", 0)
	v.SetDefault("zones.id_field", "")
	v.SetDefault("zones.name_field", "")
	v.SetDefault("zones.operator_field", "")
	v.SetDefault("zones.region_field", "")
	v.SetDefault("nearest.initial_radius_meters", 1000.0)
	v.SetDefault("nearest.max_distance_meters", 5000.0)
	v.SetDefault("batch.workers", 0)
	v.SetDefault("batch.max_items", 1000)
	v.SetDefault("postgis.database_url", "")
	v.SetDefault("postgis.table", "zones")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "geofence:reload")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
