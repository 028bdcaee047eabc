package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/berfenger/mercury2mqtt/internal/core/domain"
	"github.com/berfenger/mercury2mqtt/pkg/mercury236"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMeterQuery struct {
	snapshot mercury236.Snapshot
	report   *mercury236.PassReport
	err      error
}

func (f *fakeMeterQuery) Snapshot(context.Context) (mercury236.Snapshot, *mercury236.PassReport, error) {
	return f.snapshot, f.report, f.err
}

func (f *fakeMeterQuery) Info(context.Context) (domain.MeterInfo, error) {
	return domain.MeterInfo{}, f.err
}

func (f *fakeMeterQuery) Health(context.Context) (domain.ActorHealthResponse, error) {
	return domain.ActorHealthResponse{Healthy: f.err == nil}, f.err
}

func TestCollectorDescribe(t *testing.T) {

	c := NewCollector(&fakeMeterQuery{}, time.Second, zap.NewNop())
	descCh := make(chan *prometheus.Desc, 64)

	go func() {
		c.Describe(descCh)
		close(descCh)
	}()

	count := 0
	for range descCh {
		count++
	}
	assert.Equal(t, len(mercury236.Quantities())+4, count)
}

func TestCollectorOnlyPresentValues(t *testing.T) {

	require := require.New(t)

	snap := mercury236.NewSnapshot()
	snap.Apply(
		mercury236.Reading{Quantity: mercury236.VoltageL1, Value: 230.15},
		mercury236.Reading{Quantity: mercury236.EnergyActive, Value: 6172800},
	)
	report := &mercury236.PassReport{
		Started:  time.Unix(1700000000, 0),
		Duration: 2300 * time.Millisecond,
		Results: []mercury236.ParameterResult{
			{ParameterId: mercury236.PARAM_VOLTAGE_L1, Outcome: mercury236.OutcomeOK},
			{ParameterId: mercury236.PARAM_VOLTAGE_L2, Outcome: mercury236.OutcomeNoReply},
		},
	}
	c := NewCollector(&fakeMeterQuery{snapshot: snap.Copy(), report: report}, time.Second, zap.NewNop())

	// scrape success + 2 readings + 3 pass metrics
	require.Equal(6, testutil.CollectAndCount(c))

	expected := `
# HELP mercury_voltage_l1_volts Meter reading voltage_l1 in V
# TYPE mercury_voltage_l1_volts gauge
mercury_voltage_l1_volts 230.15
# HELP mercury_energy_active_watt_hours Meter reading energy_active in Wh
# TYPE mercury_energy_active_watt_hours counter
mercury_energy_active_watt_hours 6.1728e+06
# HELP mercury_last_pass_failed_parameters Parameters that did not decode in the last pass
# TYPE mercury_last_pass_failed_parameters gauge
mercury_last_pass_failed_parameters 1
`
	require.NoError(testutil.CollectAndCompare(c, strings.NewReader(expected),
		"mercury_voltage_l1_volts", "mercury_energy_active_watt_hours", "mercury_last_pass_failed_parameters"))
}

func TestCollectorSourceError(t *testing.T) {

	c := NewCollector(&fakeMeterQuery{err: errors.New("timeout")}, time.Second, zap.NewNop())

	expected := `
# HELP mercury_scrape_success Whether the latest snapshot could be read from the bridge
# TYPE mercury_scrape_success gauge
mercury_scrape_success 0
`
	assert.Equal(t, 1, testutil.CollectAndCount(c))
	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "mercury_scrape_success"))
}

func TestMetricName(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("mercury_power_active_watts", MetricName(mercury236.PowerActive))
	assert.Equal("mercury_power_factor", MetricName(mercury236.PowerFactor))
	assert.Equal("mercury_energy_reactive_var_hours", MetricName(mercury236.EnergyReactive))
}

func TestExchangeMetrics(t *testing.T) {

	assert := assert.New(t)

	m := NewExchangeMetrics()
	reg := prometheus.NewRegistry()
	assert.NoError(m.Register(reg))

	transport := mercury236.CreateTestTransport()
	transport.Silence(mercury236.DefaultCatalogue().Lookup(mercury236.PARAM_CURRENT_L3))
	reader := mercury236.NewReader(transport, nil, mercury236.ReaderConfig{SettleDelay: time.Millisecond, MaxResponseBytes: 64},
		zap.NewNop(), m.Instrument())
	reader.ReadAll(context.Background())

	assert.Equal(1.0, testutil.ToFloat64(m.Exchanges.WithLabelValues(mercury236.PARAM_VOLTAGE_L1, "ok")))
	assert.Equal(1.0, testutil.ToFloat64(m.Exchanges.WithLabelValues(mercury236.PARAM_CURRENT_L3, "no_reply")))
	// ReadAll and Send
	assert.Equal(2, testutil.CollectAndCount(m.Latency))
}
