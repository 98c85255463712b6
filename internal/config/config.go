// Package config loads the settings of the topoedit command from defaults,
// an optional YAML file and TOPOEDIT_ environment variables, in that order.
package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/topoedit/internal/logging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TOPOEDIT_"

// KeySize is the length of a decoded encryption key (AES-256).
const KeySize = 32

// Store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Config is the full command configuration.
type Config struct {
	LogLevel        string  `yaml:"log_level" env:"LOG_LEVEL"`
	Tolerance       float64 `yaml:"tolerance" env:"TOLERANCE"`
	SnapTolerance   float64 `yaml:"snap_tolerance" env:"SNAP_TOLERANCE"`
	MeshWorkers     int     `yaml:"mesh_workers" env:"MESH_WORKERS"`
	CheckInvariants bool    `yaml:"check_invariants" env:"CHECK_INVARIANTS"`
	HTTPAddr        string  `yaml:"http_addr" env:"HTTP_ADDR"`
	Store           Store   `yaml:"store" envPrefix:"STORE_"`
}

// Store selects and configures the snapshot store.
type Store struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	// DSN is the database path for the sqlite driver.
	DSN           string        `yaml:"dsn" env:"DSN"`
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env:"REDIS_DB"`
	Prefix        string        `yaml:"prefix" env:"PREFIX"`
	TTL           time.Duration `yaml:"ttl" env:"TTL"`
	// Lock enables distributed workspace locks; redis only.
	Lock bool `yaml:"lock" env:"LOCK"`
	// EncryptionKey seals stored snapshots when set. Base64, 32 bytes.
	EncryptionKey string   `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
	FallbackKeys  []string `yaml:"fallback_keys" env:"FALLBACK_KEYS" envSeparator:","`
	// Verify checks every snapshot on its way in and out of the store.
	Verify bool `yaml:"verify" env:"VERIFY"`
}

// Keys decodes the encryption keys. active is nil when encryption is off.
func (s Store) Keys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		if len(s.FallbackKeys) > 0 {
			return nil, nil, errors.New("fallback_keys need an encryption_key")
		}
		return nil, nil, nil
	}
	if active, err = decodeKey(s.EncryptionKey); err != nil {
		return nil, nil, fmt.Errorf("encryption_key: %w", err)
	}
	for i, k := range s.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("want %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:      "info",
		Tolerance:     1e-6,
		SnapTolerance: 1e-2,
		MeshWorkers:   4,
		HTTPAddr:      ":8080",
		Store: Store{
			Driver:    DriverMemory,
			DSN:       "topoedit.db",
			RedisAddr: "localhost:6379",
			Prefix:    "topoedit:",
		},
	}
}

// Load reads path, if not empty, over the defaults and then applies the
// environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(bytes.NewReader(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate rejects inconsistent settings.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Tolerance < 0 || c.SnapTolerance < 0 {
		return errors.New("tolerances must not be negative")
	}
	if c.MeshWorkers < 1 {
		return fmt.Errorf("mesh_workers must be at least 1, got %d", c.MeshWorkers)
	}
	switch c.Store.Driver {
	case DriverMemory, DriverSQLite:
		if c.Store.Lock {
			return fmt.Errorf("store %s does not support distributed locks", c.Store.Driver)
		}
	case DriverRedis:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if _, _, err := c.Store.Keys(); err != nil {
		return err
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() slog.Level {
	l, _ := logging.ParseLevel(c.LogLevel)
	return l
}
