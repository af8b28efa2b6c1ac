package metrics

import (
	"time"

	"media-catalog/internal/logging"
)

// StatsProvider is implemented by the catalog database.
type StatsProvider interface {
	CatalogStats() Stats
}

// Stats holds catalog counts for the content gauges.
type Stats struct {
	Objects    map[string]int
	Containers int
	Entries    int
}

// Collector periodically copies catalog counts into gauges.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	done          chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the collection loop and waits for it to exit.
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.done
}

func (c *Collector) collectLoop() {
	defer close(c.done)

	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.CatalogStats()

	total := 0
	for t, n := range stats.Objects {
		CatalogObjectsTotal.WithLabelValues(t).Set(float64(n))
		total += n
	}
	CatalogContainersTotal.Set(float64(stats.Containers))
	CatalogEntriesTotal.Set(float64(stats.Entries))

	logging.Debug("Metrics collected: objects=%d, containers=%d, entries=%d",
		total, stats.Containers, stats.Entries)
}
