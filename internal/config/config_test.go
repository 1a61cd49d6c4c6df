package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10000, cfg.Harvest.MaxPage)
	assert.Equal(t, []string{"dog", "cat"}, cfg.Harvest.Categories)
	assert.Equal(t, 3, cfg.Harvest.RetryAttempts)
	assert.Equal(t, 3, cfg.Verify.FailureThreshold)
	assert.Equal(t, 15, cfg.Verify.ExpectedFields)
	assert.Equal(t, "data", cfg.Store.DataDir)
	assert.Equal(t, time.Second, cfg.Harvest.ItemDelay())
	assert.Equal(t, 5*time.Second, cfg.Harvest.RetryDelay())
	assert.Equal(t, 5*time.Minute, cfg.Dedup.TTL())
	assert.Equal(t, time.Minute, cfg.Loop.Cooldown())
	assert.Equal(t, time.Hour, cfg.Loop.RestartInterval())
	assert.Empty(t, cfg.Database.DSN)
	assert.Empty(t, cfg.Snapshot.Bucket)
}

func TestLoadFileOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
harvest:
  max_page: 25
  categories: ["rabbit"]
  item_delay_ms: 250
verify:
  failure_threshold: 5
store:
  data_dir: /var/lib/harvester
database:
  dsn: postgres://localhost/harvester
snapshot:
  bucket: pet-snapshots
pubsub:
  project_id: my-project
  topic_name: cycle-events
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Harvest.MaxPage)
	assert.Equal(t, []string{"rabbit"}, cfg.Harvest.Categories)
	assert.Equal(t, 250*time.Millisecond, cfg.Harvest.ItemDelay())
	assert.Equal(t, 5, cfg.Verify.FailureThreshold)
	assert.Equal(t, "/var/lib/harvester", cfg.Store.DataDir)
	assert.Equal(t, "postgres://localhost/harvester", cfg.Database.DSN)
	assert.Equal(t, "pet-snapshots", cfg.Snapshot.Bucket)
	assert.Equal(t, "my-project", cfg.PubSub.ProjectID)
	assert.Equal(t, "cycle-events", cfg.PubSub.TopicName)

	// Untouched knobs keep their defaults.
	assert.Equal(t, 3, cfg.Harvest.RetryAttempts)
	assert.Equal(t, "snapshots", cfg.Snapshot.Prefix)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"zero max page", func(c *Config) { c.Harvest.MaxPage = 0 }, "harvest.max_page"},
		{"no categories", func(c *Config) { c.Harvest.Categories = nil }, "harvest.categories"},
		{"zero threshold", func(c *Config) { c.Verify.FailureThreshold = 0 }, "verify.failure_threshold"},
		{"threshold above fields", func(c *Config) { c.Verify.ExpectedFields = 2 }, "verify.expected_fields"},
		{"empty data dir", func(c *Config) { c.Store.DataDir = "" }, "store.data_dir"},
		{"empty render url", func(c *Config) { c.Render.BaseURL = "" }, "render.base_url"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
