package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gapfill.yaml")
	body := `
organism_type: grampositive
reference_path: ref.yaml
growth_threshold: 2.5
storage:
  driver: memory
blob:
  driver: s3
  s3:
    bucket: models
    path_style: true
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("GAPFILL_CONCURRENCY", "4")
	t.Setenv("GAPFILL_DEFAULT_PROBABILITY", "0.25")
	t.Setenv("GAPFILL_BLOB_S3_REGION", "eu-west-1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OrganismType != "grampositive" || cfg.GrowthThreshold != 2.5 || cfg.Storage.Driver != "memory" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Concurrency != 4 || cfg.DefaultProbability != 0.25 || cfg.Blob.S3.Region != "eu-west-1" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if !cfg.Blob.S3.PathStyle || cfg.Blob.S3.Bucket != "models" {
		t.Fatalf("nested s3 values lost: %+v", cfg.Blob.S3)
	}
	if cfg.LogFormat != "text" || cfg.Oracle.Driver != "expansion" {
		t.Fatalf("defaults should survive a partial file: %+v", cfg)
	}
}

func TestEnvParseErrors(t *testing.T) {
	t.Setenv("GAPFILL_CONCURRENCY", "many")
	t.Setenv("GAPFILL_GROWTH_THRESHOLD", "big")
	_, err := Load("")
	if err == nil {
		t.Fatalf("expected parse errors")
	}
	for _, key := range []string{"GAPFILL_CONCURRENCY", "GAPFILL_GROWTH_THRESHOLD"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error %q does not mention %s", err, key)
		}
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"organism":     func(c *Config) { c.OrganismType = "archaea" },
		"exec command": func(c *Config) { c.Oracle.Driver = "exec" },
		"threshold":    func(c *Config) { c.GrowthThreshold = 0 },
		"probability":  func(c *Config) { c.DefaultProbability = 1.5 },
		"concurrency":  func(c *Config) { c.Concurrency = 0 },
		"postgres dsn": func(c *Config) { c.Storage.Driver = "postgres" },
		"s3 bucket":    func(c *Config) { c.Blob.Driver = "s3" },
		"log format":   func(c *Config) { c.LogFormat = "xml" },
		"tracing":      func(c *Config) { c.Tracing = "zipkin" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
