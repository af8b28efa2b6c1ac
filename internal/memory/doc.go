// Package memory keeps the catalog inside its container memory budget.
//
// [ConfigureFromEnv] derives GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO
// (or honours an explicit GOMEMLIMIT) and should run first thing in main.
//
// [Monitor] samples the heap against that limit. When usage crosses the
// critical mark it pauses imports, and workers block in
// [Monitor.WaitIfPaused] until usage drops below the high-water mark:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	if !monitor.WaitIfPaused(ctx) {
//	    return ctx.Err()
//	}
//
// The playlist driver calls [Monitor.RequestGC] every few thousand evaluated
// lines. Requests are rate limited and a refused request is not an error for
// the caller.
package memory
