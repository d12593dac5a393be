// Package config loads okura settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is read when neither -config nor CONFIG_PATH names a file.
const DefaultPath = "./config.yaml"

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	Log        LogConfig        `yaml:"log"`
	SRS        SRSConfig        `yaml:"srs"`
	Upload     UploadConfig     `yaml:"upload"`
	Ingest     IngestConfig     `yaml:"ingest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8000" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"DATABASE_PATH" env-default:"okura.db" validate:"required"`
}

// DictionaryConfig locates the dictionary files of each language.
type DictionaryConfig struct {
	Dir          string `yaml:"dir"           env:"DICT_DIR"           env-default:"data"`
	JMdictPath   string `yaml:"jmdict_path"   env:"DICT_JMDICT_PATH"   env-default:"jmdict-eng.json"`
	JMdictURL    string `yaml:"jmdict_url"    env:"DICT_JMDICT_URL"`
	JLPTPath     string `yaml:"jlpt_path"     env:"DICT_JLPT_PATH"`
	CEDICTPath   string `yaml:"cedict_path"   env:"DICT_CEDICT_PATH"   env-default:"cedict_ts.u8"`
	CEDICTURL    string `yaml:"cedict_url"    env:"DICT_CEDICT_URL"`
	HSKPath      string `yaml:"hsk_path"      env:"DICT_HSK_PATH"`
	GSEDictPath  string `yaml:"gse_dict_path" env:"DICT_GSE_PATH"`
	// Offline disables downloading missing dictionaries.
	Offline bool `yaml:"offline" env:"DICT_OFFLINE"`
}

// Resolve joins a dictionary file name onto Dir unless it is absolute or empty.
func (d DictionaryConfig) Resolve(name string) string {
	if name == "" || filepath.IsAbs(name) || d.Dir == "" {
		return name
	}
	return filepath.Join(d.Dir, name)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json" validate:"oneof=json text"`
}

// SRSConfig holds spaced-repetition parameters.
type SRSConfig struct {
	InitialEase float64 `yaml:"initial_ease" env:"SRS_INITIAL_EASE" env-default:"2.5" validate:"gtefield=MinEase"`
	MinEase     float64 `yaml:"min_ease"     env:"SRS_MIN_EASE"     env-default:"1.3" validate:"gt=0"`
	MaxInterval int     `yaml:"max_interval" env:"SRS_MAX_INTERVAL" env-default:"36500" validate:"min=1,max=365000"`
	Timezone    string  `yaml:"timezone"     env:"SRS_TIMEZONE"     env-default:"UTC"`
	HeatmapDays int     `yaml:"heatmap_days" env:"SRS_HEATMAP_DAYS" env-default:"30" validate:"min=30"`
}

// Location resolves Timezone.
func (s SRSConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// UploadConfig limits file uploads.
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes" env:"UPLOAD_MAX_BYTES" env-default:"5242880" validate:"gt=0"`
}

// IngestConfig tunes bulk imports.
type IngestConfig struct {
	Workers   int `yaml:"workers"    env:"INGEST_WORKERS"    env-default:"4"  validate:"min=1"`
	BatchSize int `yaml:"batch_size" env:"INGEST_BATCH_SIZE" env-default:"50" validate:"min=1"`
}

var validate = validator.New()

// Load reads configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults. An empty path falls back to CONFIG_PATH,
// then DefaultPath. A missing file is an error only when it was named
// explicitly; otherwise ENV and defaults are used.
func Load(path string) (*Config, error) {
	var cfg Config

	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed on %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	if _, err := c.SRS.Location(); err != nil {
		return fmt.Errorf("srs.timezone: %w", err)
	}
	return nil
}
