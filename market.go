package simplyr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/simplyr/simplyr/accounting"
	"github.com/simplyr/simplyr/matching"
	"github.com/simplyr/simplyr/metrics"
	"github.com/simplyr/simplyr/monitoring"
	"github.com/simplyr/simplyr/order"
	"golang.org/x/sync/errgroup"
)

// ClearingResult is the outcome of clearing a single batch of orders.
type ClearingResult struct {
	// Input is the batch that was cleared.
	Input *order.MarketInput

	// MatchSet holds the matches and the unmatched remainders.
	MatchSet *matching.MatchSet

	// Report is the settlement of the matches.
	Report *accounting.Report

	// OrderMetric holds the statistics of the cleared orders.
	OrderMetric *metrics.OrderMetric

	// BatchMetric holds the statistics of the matches.
	BatchMetric *metrics.BatchMetric
}

// Output returns the market output of the clearing result.
func (r *ClearingResult) Output() *matching.MarketOutput {
	return r.MatchSet.Output()
}

// MarketOption is a functional option to modify a Market.
type MarketOption func(*Market)

// WithFeeAwareClearer sets the strategy that is used for fee-aware clearing
// runs.
func WithFeeAwareClearer(strategy matching.FeeAwareClearer) MarketOption {
	return func(m *Market) {
		m.strategy = strategy
	}
}

// Market ties together validation, clearing, settlement and metrics. A
// Market is safe for concurrent use.
type Market struct {
	cfg *Config

	callMarket *matching.CallMarket

	gridFees *matching.GridFeeMatrix

	exporter *monitoring.PrometheusExporter

	metricsManager metrics.Manager

	strategy matching.FeeAwareClearer
}

// NewMarket creates a new market from the given config.
func NewMarket(cfg *Config, opts ...MarketOption) (*Market, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	promCfg := cfg.Prometheus
	if promCfg == nil {
		promCfg = &monitoring.PrometheusConfig{}
	}
	exporter, err := monitoring.NewPrometheusExporter(promCfg)
	if err != nil {
		return nil, err
	}

	m := &Market{
		cfg:            cfg,
		exporter:       exporter,
		metricsManager: metrics.NewManager(),
	}

	if cfg.GridFeesFile != "" {
		m.gridFees, err = matching.ReadGridFeeMatrixFile(
			cfg.GridFeesFile,
		)
		if err != nil {
			return nil, err
		}
	}

	var filters []matching.OrderFilter
	if cfg.TimeSlot != "" {
		filters = append(filters, matching.NewTimeSlotFilter(cfg.TimeSlot))
	}
	if cfg.MinEnergy > 0 {
		filters = append(
			filters, matching.NewMinEnergyFilter(cfg.MinEnergy),
		)
	}

	predicates := append(
		[]matching.MatchPredicate(nil),
		matching.DefaultPredicateChain...,
	)
	if cfg.NoSelfTrade {
		predicates = append(
			predicates, matching.MatchPredicateFunc(
				matching.DifferentActorsPredicate,
			),
		)
	}

	m.callMarket = matching.NewCallMarket(&matching.Config{
		EnergyEpsilon:  cfg.EnergyEpsilon,
		FilterChain:    filters,
		PredicateChain: predicates,
	})

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Metrics returns the metric exporter of the market.
func (m *Market) Metrics() *monitoring.PrometheusExporter {
	return m.exporter
}

// validate makes sure the input is well formed and, if a grid fee matrix is
// known, that all cluster indices are part of it.
func (m *Market) validate(input *order.MarketInput) error {
	if err := input.Validate(); err != nil {
		return err
	}

	if m.gridFees != nil {
		return input.ValidateClusters(m.gridFees.Size())
	}

	return nil
}

// Clear validates, clears and settles a single batch of orders.
func (m *Market) Clear(input *order.MarketInput) (*ClearingResult, error) {
	if err := m.validate(input); err != nil {
		return nil, err
	}

	start := time.Now()
	matchSet := m.callMarket.Clear(input)
	duration := time.Since(start)

	report, err := accounting.CreateReport(
		&accounting.Config{GridFees: m.gridFees}, input, matchSet,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to settle batch: %w", err)
	}

	orderMetric, err := m.metricsManager.GenerateOrderMetric(input)
	if err != nil {
		return nil, err
	}
	batchMetric, err := m.metricsManager.GenerateBatchMetrics(
		matchSet.Matches,
	)
	if err != nil {
		return nil, err
	}

	m.exporter.ObserveClearing(&monitoring.ClearingObservation{
		Input:       input,
		MatchSet:    matchSet,
		Report:      report,
		BatchMetric: batchMetric,
		Duration:    duration,
	})

	log.Infof("Cleared %d orders into %d matches trading %v kWh at a "+
		"median price of %v EUR/kWh in %v", len(input.Orders),
		len(matchSet.Matches), report.TotalEnergy,
		batchMetric.MedianPrice, duration)

	return &ClearingResult{
		Input:       input,
		MatchSet:    matchSet,
		Report:      report,
		OrderMetric: orderMetric,
		BatchMetric: batchMetric,
	}, nil
}

// ClearSlots clears every given batch independently and in parallel. The
// results are returned in the order of the inputs. The first error aborts
// all batches that haven't started yet.
func (m *Market) ClearSlots(ctx context.Context,
	inputs []*order.MarketInput) ([]*ClearingResult, error) {

	results := make([]*ClearingResult, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	for i, input := range inputs {
		i, input := i, input

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			result, err := m.Clear(input)
			if err != nil {
				slot, _ := input.TimeSlot()
				return fmt.Errorf("unable to clear slot %q: %w",
					slot, err)
			}

			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// FairClear clears the input with the injected fee-aware strategy and the
// market's grid fee matrix.
func (m *Market) FairClear(input *order.MarketInput,
	fairness float64) (*matching.MarketOutput, error) {

	if m.strategy == nil {
		return nil, matching.ErrStrategyUnavailable
	}
	if m.gridFees == nil {
		return nil, fmt.Errorf("%w: fee-aware clearing requires a "+
			"grid fee matrix", matching.ErrInvalidGridFees)
	}

	if err := m.validate(input); err != nil {
		return nil, err
	}

	inputCopy := input.Copy()
	return m.strategy.FairClear(&inputCopy, fairness, m.gridFees)
}

// Run reads the orders stored at the given path, clears them and writes the
// matches to the configured output file or the given writer. If configured,
// the settlement reports and the metrics are written as well.
func (m *Market) Run(ctx context.Context, inputPath string,
	stdout io.Writer) error {

	input, err := order.ReadMarketInputFile(inputPath)
	if err != nil {
		return err
	}

	inputs := []*order.MarketInput{input}
	if m.cfg.BySlot {
		inputs = order.SplitByTimeSlot(input)
	}

	results, err := m.ClearSlots(ctx, inputs)
	if err != nil {
		return err
	}

	output := &matching.MarketOutput{}
	reports := make([]*accounting.Report, 0, len(results))
	for _, result := range results {
		output.Matches = append(
			output.Matches, result.MatchSet.Matches...,
		)
		reports = append(reports, result.Report)
	}

	if m.cfg.OutputFile != "" {
		err = writeJSONFile(m.cfg.OutputFile, output)
	} else {
		err = writeJSON(stdout, output)
	}
	if err != nil {
		return fmt.Errorf("unable to write matches: %w", err)
	}

	if m.cfg.ReportFile != "" {
		if err := writeJSONFile(m.cfg.ReportFile, reports); err != nil {
			return fmt.Errorf("unable to write report: %w", err)
		}
	}

	return m.exporter.Export()
}

// writeJSON writes the tab indented JSON encoding of v to w.
func writeJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return err
	}

	_, err = w.Write(append(b, '\n'))
	return err
}

// writeJSONFile writes the tab indented JSON encoding of v to the file at
// the given path.
func writeJSONFile(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := writeJSON(f, v); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
