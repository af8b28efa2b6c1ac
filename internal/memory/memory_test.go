package memory

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"testing"
	"time"
)

func testMonitor(limit int64) *Monitor {
	cfg := DefaultConfig()
	cfg.MemoryLimitBytes = limit
	return NewMonitor(cfg)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.HighWaterMark >= cfg.CriticalWaterMark {
		t.Errorf("HighWaterMark %v should be below CriticalWaterMark %v", cfg.HighWaterMark, cfg.CriticalWaterMark)
	}
	if cfg.CheckInterval <= 0 || cfg.MinGCInterval <= 0 {
		t.Errorf("intervals must be positive: %+v", cfg)
	}
}

func TestMonitorPauseAndResume(t *testing.T) {
	m := testMonitor(1000)
	defer m.Stop()

	m.update(500)
	if m.IsPaused() {
		t.Fatal("should not pause at 50%")
	}

	m.update(900)
	if !m.IsPaused() {
		t.Fatal("should pause at 90%")
	}

	done := make(chan bool)
	go func() { done <- m.WaitIfPaused(context.Background()) }()

	select {
	case <-done:
		t.Fatal("WaitIfPaused returned while paused")
	case <-time.After(20 * time.Millisecond):
	}

	// Between the marks the pause holds.
	m.update(750)
	if !m.IsPaused() {
		t.Fatal("should stay paused between marks")
	}

	m.update(100)
	select {
	case ok := <-done:
		if !ok {
			t.Error("WaitIfPaused returned false after resume")
		}
	case <-time.After(time.Second):
		t.Fatal("WaitIfPaused did not return after resume")
	}
}

func TestWaitIfPausedCancelled(t *testing.T) {
	m := testMonitor(1000)
	defer m.Stop()
	m.update(950)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if m.WaitIfPaused(ctx) {
		t.Error("expected false for a cancelled context")
	}
}

func TestWaitIfPausedStopped(t *testing.T) {
	m := testMonitor(1000)
	m.update(950)
	m.Stop()
	m.Stop()
	if m.WaitIfPaused(context.Background()) {
		t.Error("expected false after Stop")
	}
}

func TestWaitIfPausedNilMonitor(t *testing.T) {
	var m *Monitor
	if !m.WaitIfPaused(context.Background()) {
		t.Error("nil monitor should never block")
	}
}

func TestGetStats(t *testing.T) {
	m := testMonitor(1000)
	m.update(250)
	current, limit, usage := m.GetStats()
	if current != 250 || limit != 1000 || usage != 0.25 {
		t.Errorf("GetStats() = %d, %d, %v", current, limit, usage)
	}
}

func TestRequestGC(t *testing.T) {
	m := testMonitor(1 << 30)

	if err := m.RequestGC(); err != nil {
		t.Fatalf("first RequestGC: %v", err)
	}
	if err := m.RequestGC(); !errors.Is(err, ErrGCThrottled) {
		t.Errorf("second RequestGC = %v, want ErrGCThrottled", err)
	}

	m.Stop()
	if err := m.RequestGC(); !errors.Is(err, ErrStopped) {
		t.Errorf("RequestGC after Stop = %v, want ErrStopped", err)
	}
}

func TestMonitorConcurrentUpdates(t *testing.T) {
	m := testMonitor(1000)
	defer m.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.update(uint64((i*100 + j) % 1000))
				m.IsPaused()
				m.GetStats()
			}
		}(i)
	}
	wg.Wait()
}

func TestConfigureFromEnv(t *testing.T) {
	old := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(old) })

	tests := []struct {
		name       string
		limit      string
		ratio      string
		wantSource string
		wantGoMem  int64
	}{
		{"unset", "", "", SourceNone, 0},
		{"invalid", "lots", "", SourceNone, 0},
		{"negative", "-5", "", SourceNone, 0},
		{"default ratio", "1000000", "", SourceMemoryLimit, 850000},
		{"custom ratio", "1000000", "0.5", SourceMemoryLimit, 500000},
		{"ratio out of range", "1000000", "1.5", SourceMemoryLimit, 850000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", tt.limit)
			t.Setenv("MEMORY_RATIO", tt.ratio)

			result := ConfigureFromEnv()
			if result.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", result.Source, tt.wantSource)
			}
			if result.GoMemLimit != tt.wantGoMem {
				t.Errorf("GoMemLimit = %d, want %d", result.GoMemLimit, tt.wantGoMem)
			}
			if result.Configured != (tt.wantGoMem > 0) {
				t.Errorf("Configured = %v", result.Configured)
			}
		})
	}
}

func TestConfigResultString(t *testing.T) {
	r := ConfigResult{Source: SourceMemoryLimit, ContainerLimit: 1 << 30, GoMemLimit: 1 << 29, Ratio: 0.5}
	if got, want := r.String(), "512.0 MiB (50% of 1.0 GiB)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := (ConfigResult{Source: SourceNone}).String(); got != "unlimited" {
		t.Errorf("String() = %q", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		512:     "512 B",
		1024:    "1.0 KiB",
		1536:    "1.5 KiB",
		1 << 20: "1.0 MiB",
		1 << 30: "1.0 GiB",
	}
	for in, want := range tests {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
