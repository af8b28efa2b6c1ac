package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv(EnvOverride, "")
	cpus := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		want       int
	}{
		{"one per cpu", 1.0, 0, cpus},
		{"two per cpu", 2.0, 0, cpus * 2},
		{"capped", 2.0, 1, 1},
		{"zero multiplier", 0, 0, 1},
		{"negative multiplier", -3, 0, 1},
		{"limit above count", 1.0, cpus + 10, cpus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.multiplier, tt.limit); got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestCountOverride(t *testing.T) {
	cpus := runtime.GOMAXPROCS(0)

	tests := []struct {
		name  string
		env   string
		limit int
		want  int
	}{
		{"valid", "8", 0, 8},
		{"capped by limit", "20", 10, 10},
		{"below limit", "5", 10, 5},
		{"not a number", "many", 0, cpus},
		{"zero", "0", 0, cpus},
		{"negative", "-5", 0, cpus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvOverride, tt.env)
			if got := Count(1.0, tt.limit); got != tt.want {
				t.Errorf("Count with %s=%q = %d, want %d", EnvOverride, tt.env, got, tt.want)
			}
		})
	}
}

func TestHelpers(t *testing.T) {
	t.Setenv(EnvOverride, "")

	if got := ForCPU(1); got != 1 {
		t.Errorf("ForCPU(1) = %d, want 1", got)
	}
	if got := ForIO(0); got < ForCPU(0) {
		t.Errorf("ForIO(0) = %d, less than ForCPU(0) = %d", got, ForCPU(0))
	}
	if got := ForImport(); got < 1 || got > DefaultImportLimit {
		t.Errorf("ForImport() = %d, want 1..%d", got, DefaultImportLimit)
	}

	t.Setenv(EnvOverride, "3")
	if got := ForImport(); got != 3 {
		t.Errorf("ForImport() with override = %d, want 3", got)
	}
}

func BenchmarkCount(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Count(1.5, 10)
	}
}
