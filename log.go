// As this file is very similar in every package, ignore the linter here.
// nolint:dupl
package simplyr

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/btcsuite/btclog"
	"github.com/simplyr/simplyr/accounting"
	"github.com/simplyr/simplyr/matching"
	"github.com/simplyr/simplyr/monitoring"
	"github.com/simplyr/simplyr/order"
)

const Subsystem = "SMPL"

var log = btclog.Disabled

// LogRegistry holds the loggers of all sub systems, all writing to the same
// backend.
type LogRegistry struct {
	backend *btclog.Backend

	mtx        sync.Mutex
	subLoggers map[string]btclog.Logger
}

// SetupLoggers initializes all package-global logger variables to write to
// the given writer. All loggers start at the info level.
func SetupLoggers(w io.Writer) *LogRegistry {
	r := &LogRegistry{
		backend:    btclog.NewBackend(w),
		subLoggers: make(map[string]btclog.Logger),
	}

	r.addSubLogger(Subsystem, func(l btclog.Logger) {
		log = l
	})
	r.addSubLogger(order.Subsystem, order.UseLogger)
	r.addSubLogger(matching.Subsystem, matching.UseLogger)
	r.addSubLogger(accounting.Subsystem, accounting.UseLogger)
	r.addSubLogger(monitoring.Subsystem, monitoring.UseLogger)

	return r
}

// addSubLogger is a helper method to conveniently create and register the
// logger of a sub system.
func (r *LogRegistry) addSubLogger(subsystem string,
	useLogger func(btclog.Logger)) {

	logger := r.backend.Logger(subsystem)
	logger.SetLevel(btclog.LevelInfo)

	r.mtx.Lock()
	r.subLoggers[subsystem] = logger
	r.mtx.Unlock()

	if useLogger != nil {
		useLogger(logger)
	}
}

// SupportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func (r *LogRegistry) SupportedSubsystems() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	subsystems := make([]string, 0, len(r.subLoggers))
	for subsystem := range r.subLoggers {
		subsystems = append(subsystems, subsystem)
	}
	sort.Strings(subsystems)

	return subsystems
}

// SetLogLevels attempts to parse the specified debug level and set the levels
// accordingly. An appropriate error is returned if anything is invalid. The
// debug level is either a single level applied to all subsystems, or a comma
// separated list of <subsystem>=<level> pairs.
func (r *LogRegistry) SetLogLevels(debugLevel string) error {
	levels, err := parseDebugLevel(debugLevel)
	if err != nil {
		return err
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	// Make sure all subsystems exist before touching any of the levels.
	for subsystem := range levels {
		if subsystem == "" {
			continue
		}
		if _, ok := r.subLoggers[subsystem]; !ok {
			return fmt.Errorf("the specified subsystem [%v] is "+
				"invalid -- supported subsystems %v", subsystem,
				sortedKeys(r.subLoggers))
		}
	}

	for subsystem, level := range levels {
		if subsystem == "" {
			for _, logger := range r.subLoggers {
				logger.SetLevel(level)
			}
			continue
		}

		r.subLoggers[subsystem].SetLevel(level)
	}

	return nil
}

// parseDebugLevel parses a debug level string into the level per subsystem.
// A level that applies to all subsystems is returned with an empty key.
func parseDebugLevel(debugLevel string) (map[string]btclog.Level, error) {
	levels := make(map[string]btclog.Level)

	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") &&
		!strings.Contains(debugLevel, "=") {

		level, ok := btclog.LevelFromString(debugLevel)
		if !ok {
			return nil, fmt.Errorf("the specified debug level [%v] "+
				"is invalid", debugLevel)
		}
		levels[""] = level

		return levels, nil
	}

	// Split the specified string into subsystem/level pairs while
	// detecting issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			return nil, fmt.Errorf("the specified debug level "+
				"contains an invalid subsystem/level pair [%v]",
				logLevelPair)
		}

		fields := strings.SplitN(logLevelPair, "=", 2)
		subsystem, logLevel := fields[0], fields[1]
		if subsystem == "" {
			return nil, fmt.Errorf("the specified debug level "+
				"contains an empty subsystem [%v]", logLevelPair)
		}

		level, ok := btclog.LevelFromString(logLevel)
		if !ok {
			return nil, fmt.Errorf("the specified debug level [%v] "+
				"is invalid", logLevel)
		}
		levels[subsystem] = level
	}

	return levels, nil
}

func sortedKeys(m map[string]btclog.Logger) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
