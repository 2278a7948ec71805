package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrowthLens/internal/domain/models"
	icache "GrowthLens/internal/service/cache"
	"GrowthLens/pkg/config"
)

const testConfig = `
environment: test
sources:
  files:
    dir: ./testdata
reports:
  - name: ltv-weekly
    kind: ltv
    source: file
    query: ltv.csv
    net_revenue_share: 0.5
  - name: mau-monthly
    kind: mau
    source: file
    query: mau.xlsx
    schedule: "0 6 1 * *"
`

func parse(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(testConfig))
	require.NoError(t, err)
	return cfg
}

func TestReportsFillDefaults(t *testing.T) {
	reports := Reports(parse(t))
	require.Len(t, reports, 2)

	ltv := reports[0]
	assert.Equal(t, models.ReportLTV, ltv.Kind)
	assert.Equal(t, 50.0, ltv.TargetCostPerInstall)
	assert.Equal(t, 0.5, ltv.NetRevenueShare)
	assert.Equal(t, "./output", ltv.ExportDir)

	mau := reports[1]
	assert.Equal(t, models.ReportMAU, mau.Kind)
	assert.Equal(t, 12, mau.MonthsToPredict)
	assert.Equal(t, 1.0, mau.GrowthFactor)
	assert.Equal(t, "0 6 1 * *", mau.Schedule)
}

func TestProvideSourcesFileOnly(t *testing.T) {
	sources, cleanup, err := ProvideSources(parse(t), nil)
	require.NoError(t, err)
	defer cleanup()
	assert.Len(t, sources, 1)
	assert.Contains(t, sources, "file")
}

func TestProvideSourcesThinkingData(t *testing.T) {
	cfg := parse(t)
	cfg.Sources.ThinkingData.Enabled = true
	cfg.Sources.ThinkingData.URL = "http://ta.local"
	sources, cleanup, err := ProvideSources(cfg, nil)
	require.NoError(t, err)
	defer cleanup()
	assert.Contains(t, sources, "thinkingdata")
}

func TestProvideCacheDefaultsToMemory(t *testing.T) {
	c, cleanup, err := ProvideCache(parse(t), nil)
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &icache.TTLCache{}, c)
}

func TestProvidePublisherNilWithoutKafka(t *testing.T) {
	cfg := parse(t)
	p, cleanup, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	defer cleanup()
	assert.Nil(t, p)
	assert.Nil(t, ProvidePublisher(p, cfg))
}
