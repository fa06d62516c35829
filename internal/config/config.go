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
	Data    DataConfig    `yaml:"data" mapstructure:"data"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	GovMap  GovMapConfig  `yaml:"govmap" mapstructure:"govmap"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Regions RegionsConfig `yaml:"regions" mapstructure:"regions"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// DataConfig configures the on-disk data directories.
type DataConfig struct {
	RawDir       string `yaml:"raw_dir" mapstructure:"raw_dir"`
	ProcessedDir string `yaml:"processed_dir" mapstructure:"processed_dir"`
	PublicDir    string `yaml:"public_dir" mapstructure:"public_dir"`
	// Legacy GovMap exports occasionally arrive Windows-1255 encoded.
	DecodeCP1255 bool `yaml:"decode_cp1255" mapstructure:"decode_cp1255"`
}

// ScoringConfig configures the composite scorer.
type ScoringConfig struct {
	// MaxDistanceKM maps category name to the distance at which its
	// sub-score reaches zero. Empty means use the built-in calibration.
	MaxDistanceKM map[string]float64 `yaml:"max_distance_km" mapstructure:"max_distance_km"`
	// CalibrationFile optionally points at a YAML calibration table that
	// overrides MaxDistanceKM entirely.
	CalibrationFile string `yaml:"calibration_file" mapstructure:"calibration_file"`
}

// StoreConfig configures run/snapshot persistence.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// GovMapConfig configures the GovMap WFS fetcher.
type GovMapConfig struct {
	BaseURL           string            `yaml:"base_url" mapstructure:"base_url"`
	PageSize          int               `yaml:"page_size" mapstructure:"page_size"`
	RequestsPerSecond float64           `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs       int               `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Layers            map[string]string `yaml:"layers" mapstructure:"layers"`
}

// GeocodeConfig configures the Nominatim geocoder.
type GeocodeConfig struct {
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent       string  `yaml:"user_agent" mapstructure:"user_agent"`
	Country         string  `yaml:"country" mapstructure:"country"`
	MinIntervalSecs float64 `yaml:"min_interval_secs" mapstructure:"min_interval_secs"`
	CheckpointEvery int     `yaml:"checkpoint_every" mapstructure:"checkpoint_every"`
}

// RegionsConfig configures the CBS statistical-areas loader.
type RegionsConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INSIGHTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.raw_dir", "data/raw")
	v.SetDefault("data.processed_dir", "data/processed")
	v.SetDefault("data.public_dir", "app/public/data")
	v.SetDefault("data.decode_cp1255", false)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "insights.db")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("govmap.base_url", "https://open.govmap.gov.il/geoserver/opendata/wfs")
	v.SetDefault("govmap.page_size", 5000)
	v.SetDefault("govmap.requests_per_second", 4)
	v.SetDefault("govmap.timeout_secs", 120)
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "neighborhood-insights-il/etl (+https://example.org)")
	v.SetDefault("geocode.country", "Israel")
	v.SetDefault("geocode.min_interval_secs", 1.1)
	v.SetDefault("geocode.checkpoint_every", 250)
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
