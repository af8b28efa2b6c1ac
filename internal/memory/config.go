package memory

import (
	"fmt"
	"math"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"media-catalog/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit handed to the Go
// heap. The remainder covers the SQLite page cache and goroutine stacks.
const DefaultMemoryRatio = 0.85

// Limit sources reported in ConfigResult.Source.
const (
	SourceGOMEMLIMIT  = "GOMEMLIMIT"
	SourceMemoryLimit = "MEMORY_LIMIT"
	SourceNone        = "none"
)

// ConfigResult describes how the heap limit was (or was not) configured.
type ConfigResult struct {
	Configured     bool
	Source         string
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// String renders the result for the startup banner.
func (r ConfigResult) String() string {
	switch r.Source {
	case SourceGOMEMLIMIT:
		return fmt.Sprintf("%s (GOMEMLIMIT)", formatBytes(r.GoMemLimit))
	case SourceMemoryLimit:
		return fmt.Sprintf("%s (%.0f%% of %s)", formatBytes(r.GoMemLimit), r.Ratio*100, formatBytes(r.ContainerLimit))
	default:
		return "unlimited"
	}
}

// ConfigureFromEnv sets the runtime memory limit from the environment.
// GOMEMLIMIT wins when present; otherwise MEMORY_LIMIT (bytes, usually from
// the Kubernetes Downward API) is scaled by MEMORY_RATIO.
// Call it before the catalog starts allocating.
func ConfigureFromEnv() ConfigResult {
	if raw := os.Getenv("GOMEMLIMIT"); raw != "" {
		result := ConfigResult{Source: SourceGOMEMLIMIT}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", raw)
		return result
	}

	raw := strings.TrimSpace(os.Getenv("MEMORY_LIMIT"))
	if raw == "" {
		logging.Debug("MEMORY_LIMIT not set, leaving the heap unlimited")
		return ConfigResult{Source: SourceNone}
	}

	containerLimit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || containerLimit <= 0 {
		logging.Warn("Ignoring invalid MEMORY_LIMIT %q", raw)
		return ConfigResult{Source: SourceNone}
	}

	ratio := ratioFromEnv()
	goMemLimit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
		formatBytes(goMemLimit), ratio*100, formatBytes(containerLimit))

	return ConfigResult{
		Configured:     true,
		Source:         SourceMemoryLimit,
		ContainerLimit: containerLimit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}

func ratioFromEnv() float64 {
	raw := os.Getenv("MEMORY_RATIO")
	if raw == "" {
		return DefaultMemoryRatio
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio <= 0 || ratio > 1 {
		logging.Warn("MEMORY_RATIO %q must be in (0, 1], using %.2f", raw, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
