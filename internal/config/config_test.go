package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "topoedit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
mesh_workers: 2
store:
  driver: redis
  ttl: 1h
`)
	t.Setenv("TOPOEDIT_MESH_WORKERS", "8")
	t.Setenv("TOPOEDIT_STORE_PREFIX", "test:")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8, cfg.MeshWorkers)
	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, time.Hour, cfg.Store.TTL)
	assert.Equal(t, "test:", cfg.Store.Prefix)
	assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "unknown field", body: "colour: blue\n"},
		{name: "bad level", body: "log_level: loud\n"},
		{name: "no workers", body: "mesh_workers: 0\n"},
		{name: "unknown driver", body: "store:\n  driver: etcd\n"},
		{name: "lock without redis", body: "store:\n  lock: true\n"},
		{name: "bad env", env: map[string]string{"TOPOEDIT_TOLERANCE": "tiny"}},
		{name: "short key", body: "store:\n  encryption_key: c2hvcnQ=\n"},
		{name: "fallback without key", env: map[string]string{"TOPOEDIT_STORE_FALLBACK_KEYS": testKey}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

const testKey = "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="

func TestStoreKeys(t *testing.T) {
	t.Setenv("TOPOEDIT_STORE_ENCRYPTION_KEY", testKey)
	t.Setenv("TOPOEDIT_STORE_FALLBACK_KEYS", testKey+","+testKey)

	cfg, err := Load("")
	require.NoError(t, err)
	active, fallback, err := cfg.Store.Keys()
	require.NoError(t, err)
	assert.Len(t, active, KeySize)
	assert.Equal(t, byte(31), active[31])
	assert.Len(t, fallback, 2)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
