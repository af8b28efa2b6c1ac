package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride names the environment variable that overrides every count.
const EnvOverride = "IMPORT_WORKERS"

// DefaultImportLimit caps the import pool when the caller has no opinion.
const DefaultImportLimit = 8

// Count returns multiplier workers per available CPU, at least one and at
// most limit. A limit of 0 means no cap.
func Count(multiplier float64, limit int) int {
	if n, ok := override(); ok {
		return capAt(n, limit)
	}

	n := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if n < 1 {
		n = 1
	}
	return capAt(n, limit)
}

func override() (int, bool) {
	v := os.Getenv(EnvOverride)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

// ForCPU returns one worker per CPU.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns two workers per CPU.
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns one and a half workers per CPU.
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

// ForImport returns the size of the file import pool.
func ForImport() int {
	return ForMixed(DefaultImportLimit)
}
