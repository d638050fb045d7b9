package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/simplyr/simplyr/accounting"
	"github.com/simplyr/simplyr/matching"
	"github.com/simplyr/simplyr/metrics"
	"github.com/simplyr/simplyr/order"
)

const (
	// clearingCollectorName is the name of the MetricGroup for the
	// clearingCollector.
	clearingCollectorName = "clearing"

	// clearingRuns is a counter that is incremented with each clearing
	// run.
	clearingRuns = "clearing_runs"

	// clearingNumOrders is the number of orders per side that took part
	// in a clearing run.
	clearingNumOrders = "clearing_num_orders"

	// clearingNumMatches is the number of matches of a clearing run.
	clearingNumMatches = "clearing_num_matches"

	// clearingMatchedEnergy is the total energy in kWh matched in a
	// clearing run.
	clearingMatchedEnergy = "clearing_matched_energy_kwh"

	// clearingValue is the total value in EUR of all matches of a
	// clearing run.
	clearingValue = "clearing_value_euro"

	// clearingGridFees is the total amount in EUR of grid fees owed for
	// a clearing run.
	clearingGridFees = "clearing_grid_fees_euro"

	// clearingMedianPrice is the median price in EUR/kWh of the matches
	// of a clearing run.
	clearingMedianPrice = "clearing_median_price_euro_per_kwh"

	// clearingUnmatchedEnergy is the energy in kWh per side that was left
	// unmatched by a clearing run.
	clearingUnmatchedEnergy = "clearing_unmatched_energy_kwh"

	// clearingMatchEnergy is a histogram of the energy of single
	// matches.
	clearingMatchEnergy = "clearing_match_energy_kwh"

	// clearingTime is the amount of time it took to clear a batch.
	clearingTime = "clearing_latency_ms"

	labelTimeSlot  = "time_slot"
	labelOrderType = "order_type"

	// mixedTimeSlot is the time slot label used for runs whose orders
	// don't share a single time slot.
	mixedTimeSlot = "mixed"
)

// ClearingObservation is everything known about a finished clearing run.
type ClearingObservation struct {
	// Input is the batch of orders that was cleared.
	Input *order.MarketInput

	// MatchSet is the result of the clearing run.
	MatchSet *matching.MatchSet

	// Report is the settlement of the run. It is optional, grid fees are
	// only recorded if it is set.
	Report *accounting.Report

	// BatchMetric holds the statistics of the matches. It is optional,
	// the median price is only recorded if it is set.
	BatchMetric *metrics.BatchMetric

	// Duration is the time the clearing run took.
	Duration time.Duration
}

// clearingCollector is a collector that keeps track of clearing runs.
type clearingCollector struct {
	g gauges

	// runCounter is incremented each time a batch is cleared.
	runCounter prometheus.Counter

	// matchEnergyHisto is a histogram of the energy of each match.
	matchEnergyHisto prometheus.Histogram

	// latencyHisto is a histogram of how long it takes to clear a batch.
	latencyHisto prometheus.Histogram
}

// newClearingCollector makes a new clearingCollector instance.
func newClearingCollector() *clearingCollector {
	baseLabels := []string{labelTimeSlot}
	sideLabels := []string{labelTimeSlot, labelOrderType}

	g := make(gauges)
	g.addGauge(clearingNumOrders, "number of orders per side", sideLabels)
	g.addGauge(clearingNumMatches, "number of matches", baseLabels)
	g.addGauge(
		clearingMatchedEnergy, "total matched energy in kWh",
		baseLabels,
	)
	g.addGauge(clearingValue, "total value of matches in EUR", baseLabels)
	g.addGauge(clearingGridFees, "total grid fees in EUR", baseLabels)
	g.addGauge(
		clearingMedianPrice, "median match price in EUR/kWh",
		baseLabels,
	)
	g.addGauge(
		clearingUnmatchedEnergy, "unmatched energy per side in kWh",
		sideLabels,
	)

	return &clearingCollector{
		g: g,
		runCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: clearingRuns,
			Help: "counter that tracks clearing runs",
		}),
		matchEnergyHisto: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: clearingMatchEnergy,
				Help: "energy in kWh traded by a single match",

				// Buckets from 1 Wh up to 262 MWh, growing by
				// a factor of four.
				Buckets: prometheus.ExponentialBuckets(
					0.001, 4, 10,
				),
			},
		),
		latencyHisto: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: clearingTime,
				Help: "time in ms it takes to clear a batch",

				// Buckets from 0.1 ms up to roughly 820 ms.
				Buckets: prometheus.ExponentialBuckets(
					0.1, 2, 14,
				),
			},
		),
	}
}

// Name is the name of the metric group. When exported to prometheus, it's
// expected that all metric under this group have the same prefix.
//
// NOTE: Part of the MetricGroup interface.
func (c *clearingCollector) Name() string {
	return clearingCollectorName
}

// RegisterMetricFuncs registers the collector with the given registerer.
//
// NOTE: Part of the MetricGroup interface.
func (c *clearingCollector) RegisterMetricFuncs(
	reg prometheus.Registerer) error {

	return reg.Register(c)
}

// Describe sends the super-set of all possible descriptors of metrics
// collected by this Collector to the provided channel and returns once the
// last descriptor has been sent.
//
// NOTE: Part of the prometheus.Collector interface.
func (c *clearingCollector) Describe(ch chan<- *prometheus.Desc) {
	c.g.describe(ch)
	c.runCounter.Describe(ch)
	c.matchEnergyHisto.Describe(ch)
	c.latencyHisto.Describe(ch)
}

// Collect is called by the Prometheus registry when collecting metrics.
//
// NOTE: Part of the prometheus.Collector interface.
func (c *clearingCollector) Collect(ch chan<- prometheus.Metric) {
	c.g.collect(ch)
	c.runCounter.Collect(ch)
	c.matchEnergyHisto.Collect(ch)
	c.latencyHisto.Collect(ch)
}

// observe records all metrics of a clearing run.
func (c *clearingCollector) observe(obs *ClearingObservation) {
	slot, ok := obs.Input.TimeSlot()
	if !ok {
		slot = mixedTimeSlot
	}
	labels := prometheus.Labels{labelTimeSlot: slot}
	sideLabels := func(t order.Type) prometheus.Labels {
		return prometheus.Labels{
			labelTimeSlot:  slot,
			labelOrderType: t.String(),
		}
	}

	c.runCounter.Inc()
	c.latencyHisto.Observe(
		float64(obs.Duration) / float64(time.Millisecond),
	)

	c.g[clearingNumOrders].With(sideLabels(order.TypeBid)).Set(
		float64(obs.Input.NumBids()),
	)
	c.g[clearingNumOrders].With(sideLabels(order.TypeAsk)).Set(
		float64(obs.Input.NumAsks()),
	)

	var energy, value float64
	for _, m := range obs.MatchSet.Matches {
		energy += m.EnergyKWh
		value += m.EnergyKWh * m.PriceEuroPerKWh
		c.matchEnergyHisto.Observe(m.EnergyKWh)
	}
	c.g[clearingNumMatches].With(labels).Set(
		float64(len(obs.MatchSet.Matches)),
	)
	c.g[clearingMatchedEnergy].With(labels).Set(energy)
	c.g[clearingValue].With(labels).Set(value)

	c.g[clearingUnmatchedEnergy].With(sideLabels(order.TypeBid)).Set(
		sumRemainders(obs.MatchSet.UnmatchedBids),
	)
	c.g[clearingUnmatchedEnergy].With(sideLabels(order.TypeAsk)).Set(
		sumRemainders(obs.MatchSet.UnmatchedAsks),
	)

	if obs.Report != nil {
		c.g[clearingGridFees].With(labels).Set(
			decimalToFloat(obs.Report.TotalGridFees),
		)
	}

	if obs.BatchMetric != nil {
		c.g[clearingMedianPrice].With(labels).Set(
			obs.BatchMetric.MedianPrice,
		)
	}

	log.Debugf("Observed clearing run for slot %v: %d matches, %v kWh, "+
		"took %v", slot, len(obs.MatchSet.Matches), energy,
		obs.Duration)
}

// sumRemainders returns the total unmatched energy of the remainders.
func sumRemainders(remainders []matching.Remainder) float64 {
	var total float64
	for _, r := range remainders {
		total += r.EnergyKWh
	}

	return total
}

// decimalToFloat converts a decimal amount to a float for exporting.
func decimalToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// A compile time flag to ensure the clearingCollector satisfies the
// MetricGroup interface.
var _ MetricGroup = (*clearingCollector)(nil)

func init() {
	metricsMtx.Lock()
	metricGroups[clearingCollectorName] = func(cfg *PrometheusConfig) (
		MetricGroup, error) {

		return newClearingCollector(), nil
	}
	metricsMtx.Unlock()
}
