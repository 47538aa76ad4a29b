package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_sniper/models"
)

func TestLoadWeightsMissingFileUsesDefaults(t *testing.T) {
	w, err := LoadWeights(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, models.DefaultWeights(), w)
}

func TestLoadWeightsOverridesSomeKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("price: 9\nhistoryQuality: 0\n"), 0o644))

	w, err := LoadWeights(path)
	require.NoError(t, err)
	assert.Equal(t, 9.0, w.Price)
	assert.Equal(t, 0.0, w.HistoryQuality)
	assert.Equal(t, 10.0, w.Language)
}

func TestLoadWeightsRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("price: [1, 2"), 0o644))

	_, err := LoadWeights(path)
	assert.Error(t, err)
}

func TestSiteConfigsAndLookup(t *testing.T) {
	dir := t.TempDir()
	site := "id: otomoto\nplatform: otomoto\nlink_match: otomoto.pl\nselectors:\n  description: \".desc\"\n  vin: VIN\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "otomoto.yaml"), []byte(site), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0o644))

	cfg := &Config{Sites: make(map[string]*SiteConfig)}
	require.NoError(t, cfg.loadSiteConfigs(dir))
	require.Len(t, cfg.Sites, 1)

	got := cfg.SiteForLink("https://www.otomoto.pl/osobowe/oferta/audi-a4-ID123.html")
	require.NotNil(t, got)
	assert.Equal(t, ".desc", got.Selectors.Description)
	assert.Equal(t, "VIN", got.Selectors.VIN)
	assert.Nil(t, cfg.SiteForLink("https://www.olx.pl/d/oferta/x"))
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEO_DELAY_MS", "100")
	t.Setenv("DESCRIPTION_SCORING", "true")
	t.Setenv("QUEUE_POLL_INTERVAL", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Polska", cfg.Geo.Country)
	assert.Equal(t, int64(100), cfg.Geo.Delay.Milliseconds())
	assert.True(t, cfg.Pipeline.DescriptionScoring)
	assert.Equal(t, 5, cfg.Pipeline.FilterBatchSize)
	assert.Equal(t, "30s", cfg.Scheduler.Interval.String())
	assert.Equal(t, models.DefaultWeights(), cfg.Weights)
}
