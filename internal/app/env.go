package app

import (
	"strconv"
	"strings"
	"time"

	"github.com/overfly42/found-gems/internal/agent"
	"github.com/overfly42/found-gems/internal/field"
	"github.com/overfly42/found-gems/internal/observability"
	"github.com/overfly42/found-gems/internal/telemetry"
	"github.com/overfly42/found-gems/logging"
)

// options is everything the environment can override.
type options struct {
	logging       logging.Config
	settings      agent.Settings
	highlight     bool
	observability observability.Config
}

func defaultOptions(base observability.Config) options {
	return options{
		logging:       logging.DefaultConfig(),
		settings:      agent.DefaultSettings(),
		highlight:     true,
		observability: base,
	}
}

// lookupFunc has the shape of os.LookupEnv.
type lookupFunc func(key string) (string, bool)

func mapLookup(env map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}
}

// loadOptions applies GEMBOT_* overrides. Invalid values are logged and the
// default is kept.
func loadOptions(lookup lookupFunc, logger telemetry.Logger, base observability.Config) options {
	opts := defaultOptions(base)
	getenv := func(key string) string {
		value, _ := lookup(key)
		return value
	}

	if raw := getenv("GEMBOT_LOG_LEVEL"); raw != "" {
		if value, err := logging.ParseSeverity(raw); err == nil {
			opts.logging.MinimumSeverity = value
		} else {
			logger.Printf("invalid GEMBOT_LOG_LEVEL=%q: %v", raw, err)
		}
	}
	if raw, ok := lookup("GEMBOT_LOG_SINKS"); ok {
		opts.logging.EnabledSinks = splitList(raw)
	}
	if raw := getenv("GEMBOT_LOG_JSON_PATH"); raw != "" {
		opts.logging.JSON.FilePath = raw
		if !opts.logging.HasSink("json") {
			opts.logging.EnabledSinks = append(opts.logging.EnabledSinks, "json")
		}
	}
	parseBool(getenv, logger, "GEMBOT_LOG_CONSOLE_JSON", &opts.logging.Console.JSON)
	parseBool(getenv, logger, "GEMBOT_LOG_COLOR", &opts.logging.Console.UseColor)

	if raw := getenv("GEMBOT_STRATEGY"); raw != "" {
		if value, ok := field.ParseStrategy(raw); ok {
			opts.settings.Strategy = value
		} else {
			logger.Printf("invalid GEMBOT_STRATEGY=%q: want %q or %q", raw, field.StrategyNeighbor, field.StrategyTarget)
		}
	}
	parseInt(getenv, logger, "GEMBOT_WORKERS", &opts.settings.Workers)
	parseFloat(getenv, logger, "GEMBOT_DECAY", &opts.settings.DecayFactor)
	parseFloat(getenv, logger, "GEMBOT_MIN_DECAY", &opts.settings.MinDecay)
	parseFloat(getenv, logger, "GEMBOT_OPPONENT_PENALTY", &opts.settings.OpponentPenalty)
	parseInt(getenv, logger, "GEMBOT_STOP_DISTANCE", &opts.settings.StopDistance)
	parseInt(getenv, logger, "GEMBOT_STALENESS_THRESHOLD", &opts.settings.StalenessThreshold)
	parseInt(getenv, logger, "GEMBOT_CYCLING_WINDOW", &opts.settings.CyclingWindow)
	parseBool(getenv, logger, "GEMBOT_HIGHLIGHT", &opts.highlight)

	if raw := getenv("GEMBOT_FIELD_DUMP"); raw != "" {
		opts.observability.FieldDumpPath = raw
	}
	if raw := getenv("GEMBOT_SPECTATOR_ADDR"); raw != "" {
		opts.observability.SpectatorAddr = raw
	}
	if raw := getenv("GEMBOT_TICK_BUDGET"); raw != "" {
		if value, err := time.ParseDuration(raw); err == nil && value >= 0 {
			opts.observability.TickBudget = value
		} else {
			logger.Printf("invalid GEMBOT_TICK_BUDGET=%q: %v", raw, err)
		}
	}

	// Only the target strategy materialises a full field to dump.
	if opts.observability.FieldDumpPath != "" && opts.settings.Strategy != field.StrategyTarget {
		logger.Printf("GEMBOT_FIELD_DUMP set, switching strategy %q to %q", opts.settings.Strategy, field.StrategyTarget)
		opts.settings.Strategy = field.StrategyTarget
	}
	return opts
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(getenv func(string) string, logger telemetry.Logger, key string, dst *bool) {
	raw := getenv(key)
	if raw == "" {
		return
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		logger.Printf("invalid %s=%q: %v", key, raw, err)
		return
	}
	*dst = value
}

func parseInt(getenv func(string) string, logger telemetry.Logger, key string, dst *int) {
	raw := getenv(key)
	if raw == "" {
		return
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		logger.Printf("invalid %s=%q: %v", key, raw, err)
		return
	}
	*dst = value
}

func parseFloat(getenv func(string) string, logger telemetry.Logger, key string, dst *float64) {
	raw := getenv(key)
	if raw == "" {
		return
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logger.Printf("invalid %s=%q: %v", key, raw, err)
		return
	}
	*dst = value
}
