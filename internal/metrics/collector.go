package metrics

import (
	"context"
	"time"

	"github.com/berfenger/mercury2mqtt/internal/core/port"
	"github.com/berfenger/mercury2mqtt/pkg/mercury236"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const namespace = "mercury"

// Collector implements prometheus.Collector over the latest meter snapshot.
// Values are read at scrape time; absent quantities are not exported.
type Collector struct {
	source  port.MeterQuery
	timeout time.Duration
	logger  *zap.Logger

	quantities        map[mercury236.Quantity]*prometheus.Desc
	scrapeSuccess     *prometheus.Desc
	lastPassTimestamp *prometheus.Desc
	lastPassDuration  *prometheus.Desc
	lastPassFailed    *prometheus.Desc
}

func NewCollector(source port.MeterQuery, timeout time.Duration, logger *zap.Logger) *Collector {
	c := &Collector{
		source:     source,
		timeout:    timeout,
		logger:     logger.With(zap.String("target", "metrics")),
		quantities: make(map[mercury236.Quantity]*prometheus.Desc),
		scrapeSuccess: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "scrape_success"),
			"Whether the latest snapshot could be read from the bridge",
			nil, nil,
		),
		lastPassTimestamp: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "last_pass", "timestamp_seconds"),
			"Start time of the last completed pass",
			nil, nil,
		),
		lastPassDuration: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "last_pass", "duration_seconds"),
			"Duration of the last completed pass",
			nil, nil,
		),
		lastPassFailed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "last_pass", "failed_parameters"),
			"Parameters that did not decode in the last pass",
			nil, nil,
		),
	}
	for _, q := range mercury236.Quantities() {
		c.quantities[q] = prometheus.NewDesc(
			MetricName(q),
			quantityHelp(q),
			nil, nil,
		)
	}
	return c
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, q := range mercury236.Quantities() {
		ch <- c.quantities[q]
	}
	ch <- c.scrapeSuccess
	ch <- c.lastPassTimestamp
	ch <- c.lastPassDuration
	ch <- c.lastPassFailed
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	snapshot, report, err := c.source.Snapshot(ctx)
	if err != nil {
		c.logger.Warn("metrics: could not read snapshot", zap.Error(err))
		ch <- prometheus.MustNewConstMetric(c.scrapeSuccess, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.scrapeSuccess, prometheus.GaugeValue, 1)

	for _, r := range snapshot.Readings() {
		ch <- prometheus.MustNewConstMetric(c.quantities[r.Quantity], valueType(r.Quantity), r.Value)
	}

	if report != nil {
		ch <- prometheus.MustNewConstMetric(c.lastPassTimestamp, prometheus.GaugeValue, float64(report.Started.UnixMilli())/1000)
		ch <- prometheus.MustNewConstMetric(c.lastPassDuration, prometheus.GaugeValue, report.Duration.Seconds())
		ch <- prometheus.MustNewConstMetric(c.lastPassFailed, prometheus.GaugeValue, float64(len(report.Failed())))
	}
}

// MetricName is the exported name of q, suffixed by its base unit.
func MetricName(q mercury236.Quantity) string {
	return prometheus.BuildFQName(namespace, "", q.Key()+unitSuffix(q.Unit()))
}

func unitSuffix(u mercury236.Unit) string {
	switch u {
	case mercury236.UnitWattHour:
		return "_watt_hours"
	case mercury236.UnitVarHour:
		return "_var_hours"
	case mercury236.UnitWatt:
		return "_watts"
	case mercury236.UnitVar:
		return "_vars"
	case mercury236.UnitVoltAmpere:
		return "_volt_amperes"
	case mercury236.UnitVolt:
		return "_volts"
	case mercury236.UnitAmpere:
		return "_amperes"
	case mercury236.UnitHertz:
		return "_hertz"
	}
	return ""
}

// energy registers only grow
func valueType(q mercury236.Quantity) prometheus.ValueType {
	switch q.Unit() {
	case mercury236.UnitWattHour, mercury236.UnitVarHour:
		return prometheus.CounterValue
	}
	return prometheus.GaugeValue
}

func quantityHelp(q mercury236.Quantity) string {
	if q.Unit() == mercury236.UnitNone {
		return "Meter reading " + q.Key()
	}
	return "Meter reading " + q.Key() + " in " + string(q.Unit())
}
