package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "None", cfg.Scraping.VariationMode)
	assert.Equal(t, "Mfr Model", cfg.Scraping.ModelColumn)
	assert.Equal(t, 1, cfg.Scraping.StartRow)
	assert.True(t, cfg.Scraping.Headless)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "bad start row",
			mutate:  func(c *Config) { c.Scraping.StartRow = 0 },
			wantErr: "start row",
		},
		{
			name:    "bad timeout",
			mutate:  func(c *Config) { c.Scraping.TimeoutSecs = 0 },
			wantErr: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.json"))

	cfg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestStoreLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server": {"port": 9000}}`), 0o644))

	store := NewStore(path)
	cfg, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	// Untouched sections keep their defaults.
	assert.Equal(t, "Mfr Model", cfg.Scraping.ModelColumn)
}

func TestStoreLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server": {"port": -1}}`), 0o644))

	_, err := NewStore(path).Load()
	require.Error(t, err)
}

func TestStoreApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store := NewStore(path)

	cfg, err := store.Apply([]byte(`{"shopify": {"store_url": "example.myshopify.com"}}`))
	require.NoError(t, err)
	assert.Equal(t, "example.myshopify.com", cfg.Shopify.StoreURL)
	assert.Equal(t, 8090, cfg.Server.Port, "patch leaves other fields alone")

	// The patch was persisted: a fresh store reads it back.
	reloaded, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "example.myshopify.com", reloaded.Shopify.StoreURL)
}

func TestStoreApplyRejectsInvalidPatch(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "config.json"))

	_, err := store.Apply([]byte(`not json`))
	require.Error(t, err)

	_, err = store.Apply([]byte(`{"server": {"port": 99999}}`))
	require.Error(t, err)

	// Failed patches leave the stored config untouched.
	assert.Equal(t, 8090, store.Get().Server.Port)
}
