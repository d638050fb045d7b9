package monitoring

import (
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricGroupCreator is a factory method that given the primary prometheus
// config, will create a new MetricGroup that will be managed by the main
// PrometheusExporter.
type MetricGroupCreator func(*PrometheusConfig) (MetricGroup, error)

var (
	// metricGroups is a global variable of all registered metrics
	// projected by the mutex below. All new MetricGroups should add
	// themselves to this map within the init() method of their file.
	metricGroups = make(map[string]MetricGroupCreator)

	metricsMtx sync.Mutex
)

// MetricGroup is the primary interface of this package. The main exporter (in
// this case the PrometheusExporter), will manage these directly, ensuring that
// all MetricGroups are registered before any metrics are gathered.
type MetricGroup interface {
	// Name is the name of the metric group. When exported to prometheus,
	// it's expected that all metric under this group have the same prefix.
	Name() string

	// RegisterMetricFuncs registers all metrics that the group aims to
	// export with the given registerer. Rather than using the series of
	// "MustRegister" directives, implementers of this interface should
	// instead propagate back any errors related to metric registration.
	RegisterMetricFuncs(reg prometheus.Registerer) error
}

// PrometheusConfig is the set of configuration data that specifies if
// Prometheus metric exporting is activated, and if so where the metrics are
// written to.
type PrometheusConfig struct {
	// Active, if true, then Prometheus metrics will be exported.
	Active bool `long:"active" description:"if true prometheus metrics will be exported"`

	// TextfilePath is the file the metrics are written to in the text
	// exposition format, to be picked up by the node exporter's textfile
	// collector.
	TextfilePath string `long:"textfile" description:"the file to write the prometheus metrics to"`
}

// PrometheusExporter is a metric exporter that uses Prometheus directly. Each
// exporter owns a private registry, so multiple exporters never interfere
// with each other or with the global registry.
type PrometheusExporter struct {
	config *PrometheusConfig

	registry *prometheus.Registry

	groups map[string]MetricGroup
}

// NewPrometheusExporter makes a new instance of the PrometheusExporter given
// the config and registers all known metric groups with it. If we fail to
// register ANY metric, then we'll fail all together.
func NewPrometheusExporter(cfg *PrometheusConfig) (*PrometheusExporter,
	error) {

	p := &PrometheusExporter{
		config:   cfg,
		registry: prometheus.NewRegistry(),
		groups:   make(map[string]MetricGroup),
	}

	if err := p.registerMetrics(); err != nil {
		return nil, err
	}

	return p, nil
}

// registerMetrics iterates through all the registered metric groups and
// attempts to register each one. If any of the MetricGroups fail to register,
// then an error will be returned.
func (p *PrometheusExporter) registerMetrics() error {
	metricsMtx.Lock()
	defer metricsMtx.Unlock()

	names := make([]string, 0, len(metricGroups))
	for name := range metricGroups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		metricGroup, err := metricGroups[name](p.config)
		if err != nil {
			return err
		}

		if err := metricGroup.RegisterMetricFuncs(p.registry); err != nil {
			return fmt.Errorf("unable to register metric group %v: %w",
				name, err)
		}

		p.groups[metricGroup.Name()] = metricGroup
	}

	return nil
}

// Registry returns the private registry all metric groups are registered
// with.
func (p *PrometheusExporter) Registry() *prometheus.Registry {
	return p.registry
}

// ObserveClearing records the metrics of a finished clearing run.
func (p *PrometheusExporter) ObserveClearing(obs *ClearingObservation) {
	group, ok := p.groups[clearingCollectorName]
	if !ok {
		return
	}

	group.(*clearingCollector).observe(obs)
}

// WriteTextfile writes all gathered metrics to the given path in the text
// exposition format. The file is written atomically.
func (p *PrometheusExporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("unable to write metrics to %v: %w", path,
			err)
	}

	log.Debugf("Wrote metrics to %v", path)

	return nil
}

// Export writes the metrics to the configured textfile if the exporter is
// active.
func (p *PrometheusExporter) Export() error {
	// If we're not active, then there's nothing more to do.
	if !p.config.Active || p.config.TextfilePath == "" {
		return nil
	}

	return p.WriteTextfile(p.config.TextfilePath)
}

// gauges is a map type that maps a gauge to its unique name.
type gauges map[string]*prometheus.GaugeVec

// addGauge adds a new gauge vector to the map.
func (g gauges) addGauge(name, help string, labels []string) {
	g[name] = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
}

// describe describes all gauges contained in the map to the given channel.
func (g gauges) describe(ch chan<- *prometheus.Desc) {
	for _, gauge := range g {
		gauge.Describe(ch)
	}
}

// collect collects all metrics of the map's gauges to the given channel.
func (g gauges) collect(ch chan<- prometheus.Metric) {
	for _, gauge := range g {
		gauge.Collect(ch)
	}
}
