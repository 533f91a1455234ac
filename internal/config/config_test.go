package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/recrawler/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestWithConfigFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"pageDbPath": "/tmp/pages"}`)

	cfg, err := config.WithConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/pages", cfg.PageDBPath())
	assert.Empty(t, cfg.SchedulePath())
	assert.True(t, cfg.Persist())
	assert.Equal(t, -1.0, cfg.Margin())
	assert.Equal(t, uint64(0), cfg.MaxNCrawls())
	assert.Equal(t, 1<<30, cfg.MapSize())
	assert.InDelta(t, 1.0/86400.0, cfg.FreqDefault(), 1e-12)
	assert.Equal(t, 64, cfg.BatchSize())
}

func TestWithConfigFile_OverridesFields(t *testing.T) {
	path := writeConfig(t, `{
		"pageDbPath": "/tmp/pages",
		"schedulePath": "/tmp/sched",
		"persist": false,
		"margin": 0.1,
		"maxNCrawls": 5,
		"mapSize": 1048576,
		"freqDefault": 0.5,
		"freqScale": 2.0,
		"emitRate": 10,
		"hostDelaySeconds": 1.5,
		"batchSize": 8
	}`)

	cfg, err := config.WithConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/sched", cfg.SchedulePath())
	assert.False(t, cfg.Persist())
	assert.Equal(t, 0.1, cfg.Margin())
	assert.Equal(t, uint64(5), cfg.MaxNCrawls())
	assert.Equal(t, 1<<20, cfg.MapSize())
	assert.Equal(t, 0.5, cfg.FreqDefault())
	assert.Equal(t, 2.0, cfg.FreqScale())
	assert.Equal(t, 10.0, cfg.EmitRate())
	assert.Equal(t, 1.5, cfg.HostDelaySeconds())
	assert.Equal(t, 8, cfg.BatchSize())
}

func TestWithConfigFile_MissingFile(t *testing.T) {
	_, err := config.WithConfigFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, config.ErrFileDoesNotExist)
}

func TestWithConfigFile_MalformedJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)

	_, err := config.WithConfigFile(path)
	assert.ErrorIs(t, err, config.ErrConfigParsingFail)
}

func TestWithConfigFile_RequiresPageDBPath(t *testing.T) {
	path := writeConfig(t, `{}`)

	_, err := config.WithConfigFile(path)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestWithConfigFile_RejectsBadValues(t *testing.T) {
	cases := []string{
		`{"pageDbPath": "/p", "mapSize": 0}`,
		`{"pageDbPath": "/p", "freqDefault": -1}`,
		`{"pageDbPath": "/p", "batchSize": 0}`,
	}
	for _, content := range cases {
		path := writeConfig(t, content)
		_, err := config.WithConfigFile(path)
		assert.ErrorIs(t, err, config.ErrInvalidConfig, content)
	}
}

func TestWithDefaults(t *testing.T) {
	cfg, err := config.WithDefaults("/tmp/pages")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/pages", cfg.PageDBPath())
	assert.True(t, cfg.Persist())

	_, err = config.WithDefaults("")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
