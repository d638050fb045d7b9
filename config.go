package simplyr

import (
	"errors"
	"fmt"
	"math"

	"github.com/jessevdk/go-flags"
	"github.com/simplyr/simplyr/matching"
	"github.com/simplyr/simplyr/monitoring"
)

const (
	// DefaultConfigFilename is the default file name for the configuration
	// file of the market.
	DefaultConfigFilename = "simplyr.conf"

	// defaultLogLevel is the default log level that is used for all loggers
	// and sub systems.
	defaultLogLevel = "info"
)

var (
	// ErrInvalidConfig is returned if a configuration value is out of
	// range.
	ErrInvalidConfig = errors.New("invalid config")
)

type Config struct {
	ConfigFile string `long:"configfile" description:"Path to an ini style configuration file"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`

	EnergyEpsilon float64 `long:"energyeps" description:"The smallest energy amount in kWh that is still matched."`
	MinEnergy     float64 `long:"minenergy" description:"Orders with less energy in kWh than this are ignored during clearing."`
	TimeSlot      string  `long:"timeslot" description:"Only clear orders of the given time slot."`
	BySlot        bool    `long:"byslot" description:"Clear every time slot of the input as a separate batch."`
	NoSelfTrade   bool    `long:"noselftrade" description:"Never match a bid and an ask of the same actor."`

	GridFeesFile string `long:"gridfees" description:"Path to a JSON grid fee matrix used for settlement and cluster validation."`

	OutputFile string `long:"out" description:"Path to write the matches to instead of stdout."`
	ReportFile string `long:"report" description:"Path to write the settlement report to."`

	Prometheus *monitoring.PrometheusConfig `group:"prometheus" namespace:"prometheus"`
}

// DefaultConfig returns the default config of the market.
func DefaultConfig() *Config {
	return &Config{
		DebugLevel:    defaultLogLevel,
		EnergyEpsilon: matching.DefaultEnergyEpsilon,
		Prometheus:    &monitoring.PrometheusConfig{},
	}
}

// LoadConfig parses the ini style configuration file at the given path into
// the config. A missing file is not an error, the config is left untouched in
// that case.
func LoadConfig(path string, cfg *Config) error {
	if err := flags.IniParse(path, cfg); err != nil {
		// If it's a parsing related error, then we'll return
		// immediately, otherwise we can proceed as possibly the cfg
		// file doesn't exist which is OK.
		if _, ok := err.(*flags.IniError); ok {
			return err
		}

		log.Debugf("Not loading config file %v: %v", path, err)
	}

	return nil
}

// Validate makes sure the config is sane.
func (c *Config) Validate() error {
	if math.IsNaN(c.EnergyEpsilon) || math.IsInf(c.EnergyEpsilon, 0) ||
		c.EnergyEpsilon <= 0 {

		return fmt.Errorf("%w: energy epsilon must be positive, got %v",
			ErrInvalidConfig, c.EnergyEpsilon)
	}

	if math.IsNaN(c.MinEnergy) || math.IsInf(c.MinEnergy, 0) ||
		c.MinEnergy < 0 {

		return fmt.Errorf("%w: minimum energy must not be negative, "+
			"got %v", ErrInvalidConfig, c.MinEnergy)
	}

	if c.DebugLevel != "show" {
		if _, err := parseDebugLevel(c.DebugLevel); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	if c.Prometheus != nil && c.Prometheus.Active &&
		c.Prometheus.TextfilePath == "" {

		return fmt.Errorf("%w: prometheus export requires a textfile "+
			"path", ErrInvalidConfig)
	}

	return nil
}
