// Package config loads gap-filling settings from an optional YAML file with
// GAPFILL_* environment overrides. A .env file in the working directory is
// loaded first when present.
//
//	GAPFILL_ORGANISM_TYPE:       gramnegative|grampositive (default gramnegative)
//	GAPFILL_REFERENCE_PATH:      reference bundle (YAML)
//	GAPFILL_ORACLE_DRIVER:       expansion|exec (default expansion)
//	GAPFILL_ORACLE_COMMAND:      solver command line when driver=exec
//	GAPFILL_ORACLE_CACHE_SIZE:   memoised feasibility probes (0 disables the cache)
//	GAPFILL_GROWTH_THRESHOLD:    minimum biomass flux (default 1.0)
//	GAPFILL_DEFAULT_PROBABILITY: weight of candidates without a probability (default 0)
//	GAPFILL_CONCURRENCY:         media processed in parallel (default 1)
//	GAPFILL_STORAGE_DRIVER:      memory|sqlite|postgres (default sqlite)
//	GAPFILL_SQLITE_PATH:         sqlite ledger file (default ./gapfill.db)
//	GAPFILL_POSTGRES_DSN:        postgres DSN when driver=postgres
//	GAPFILL_BLOB_DRIVER:         fs|s3|memory (default fs)
//	GAPFILL_BLOB_FS_ROOT:        artifact directory (default ./artifacts)
//	GAPFILL_BLOB_S3_BUCKET, GAPFILL_BLOB_S3_REGION, GAPFILL_BLOB_S3_ENDPOINT,
//	GAPFILL_BLOB_S3_PATH_STYLE, GAPFILL_BLOB_S3_ACCESS_KEY, GAPFILL_BLOB_S3_SECRET_KEY
//	GAPFILL_METRICS:             none|expvar|prometheus (default none)
//	GAPFILL_METRICS_ADDR:        listen address for /metrics and /debug/vars
//	GAPFILL_TRACING:             none|json|otel (default none)
//	GAPFILL_LOG_LEVEL:           debug|info|warn|error (default info)
//	GAPFILL_LOG_FORMAT:          text|json (default text)
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GAPFILL_"

// Config is the complete runtime configuration.
type Config struct {
	OrganismType       string  `yaml:"organism_type"`
	ReferencePath      string  `yaml:"reference_path"`
	Oracle             Oracle  `yaml:"oracle"`
	GrowthThreshold    float64 `yaml:"growth_threshold"`
	DefaultProbability float64 `yaml:"default_probability"`
	Concurrency        int     `yaml:"concurrency"`
	Storage            Storage `yaml:"storage"`
	Blob               Blob    `yaml:"blob"`
	Metrics            Metrics `yaml:"metrics"`
	Tracing            string  `yaml:"tracing"`
	LogLevel           string  `yaml:"log_level"`
	LogFormat          string  `yaml:"log_format"`
}

// Oracle selects the feasibility oracle.
type Oracle struct {
	Driver    string `yaml:"driver"`
	Command   string `yaml:"command"`
	CacheSize int    `yaml:"cache_size"`
}

// Storage selects the run ledger backend.
type Storage struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Blob selects the artifact backend.
type Blob struct {
	Driver string `yaml:"driver"`
	FSRoot string `yaml:"fs_root"`
	S3     S3     `yaml:"s3"`
}

// S3 configures the S3-compatible artifact backend.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Metrics selects the metrics exporter.
type Metrics struct {
	Exporter string `yaml:"exporter"`
	Addr     string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		OrganismType:    "gramnegative",
		Oracle:          Oracle{Driver: "expansion", CacheSize: 4096},
		GrowthThreshold: 1.0,
		Concurrency:     1,
		Storage:         Storage{Driver: "sqlite", SQLitePath: "gapfill.db"},
		Blob:            Blob{Driver: "fs", FSRoot: "artifacts", S3: S3{Region: "us-east-1"}},
		Metrics:         Metrics{Exporter: "none", Addr: ":9464"},
		Tracing:         "none",
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load builds a configuration from defaults, the YAML file at path (skipped
// when path is empty), and environment overrides, then validates it.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *float64) {
		var raw string
		str(key, &raw)
		if raw == "" {
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = v
	}
	integer := func(key string, dst *int) {
		var raw string
		str(key, &raw)
		if raw == "" {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = v
	}
	boolean := func(key string, dst *bool) {
		var raw string
		str(key, &raw)
		if raw == "" {
			return
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = v
	}

	str("ORGANISM_TYPE", &c.OrganismType)
	str("REFERENCE_PATH", &c.ReferencePath)
	str("ORACLE_DRIVER", &c.Oracle.Driver)
	str("ORACLE_COMMAND", &c.Oracle.Command)
	integer("ORACLE_CACHE_SIZE", &c.Oracle.CacheSize)
	num("GROWTH_THRESHOLD", &c.GrowthThreshold)
	num("DEFAULT_PROBABILITY", &c.DefaultProbability)
	integer("CONCURRENCY", &c.Concurrency)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("SQLITE_PATH", &c.Storage.SQLitePath)
	str("POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("BLOB_DRIVER", &c.Blob.Driver)
	str("BLOB_FS_ROOT", &c.Blob.FSRoot)
	str("BLOB_S3_BUCKET", &c.Blob.S3.Bucket)
	str("BLOB_S3_REGION", &c.Blob.S3.Region)
	str("BLOB_S3_ENDPOINT", &c.Blob.S3.Endpoint)
	boolean("BLOB_S3_PATH_STYLE", &c.Blob.S3.PathStyle)
	str("BLOB_S3_ACCESS_KEY", &c.Blob.S3.AccessKey)
	str("BLOB_S3_SECRET_KEY", &c.Blob.S3.SecretKey)
	str("METRICS", &c.Metrics.Exporter)
	str("METRICS_ADDR", &c.Metrics.Addr)
	str("TRACING", &c.Tracing)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	return errors.Join(errs...)
}

// Validate rejects unknown drivers and out-of-range numbers.
func (c Config) Validate() error {
	var errs []error
	oneOf := func(field, value string, allowed ...string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: %q not one of %s", field, value, strings.Join(allowed, "|")))
	}
	oneOf("organism_type", c.OrganismType, "gramnegative", "grampositive")
	oneOf("oracle.driver", c.Oracle.Driver, "expansion", "exec")
	oneOf("storage.driver", c.Storage.Driver, "memory", "sqlite", "postgres")
	oneOf("blob.driver", c.Blob.Driver, "fs", "s3", "memory")
	oneOf("metrics.exporter", c.Metrics.Exporter, "none", "expvar", "prometheus")
	oneOf("tracing", c.Tracing, "none", "json", "otel")
	oneOf("log_level", c.LogLevel, "debug", "info", "warn", "error")
	oneOf("log_format", c.LogFormat, "text", "json")

	if c.Oracle.Driver == "exec" && strings.TrimSpace(c.Oracle.Command) == "" {
		errs = append(errs, errors.New("oracle.command is required when oracle.driver=exec"))
	}
	if c.Oracle.CacheSize < 0 {
		errs = append(errs, errors.New("oracle.cache_size must not be negative"))
	}
	if c.GrowthThreshold <= 0 {
		errs = append(errs, fmt.Errorf("growth_threshold must be positive, got %g", c.GrowthThreshold))
	}
	if c.DefaultProbability < 0 || c.DefaultProbability > 1 {
		errs = append(errs, fmt.Errorf("default_probability must be within [0,1], got %g", c.DefaultProbability))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.Storage.Driver == "postgres" && c.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.postgres_dsn is required when storage.driver=postgres"))
	}
	if c.Blob.Driver == "s3" && c.Blob.S3.Bucket == "" {
		errs = append(errs, errors.New("blob.s3.bucket is required when blob.driver=s3"))
	}
	return errors.Join(errs...)
}
