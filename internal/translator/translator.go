// Package translator periodically copies the kernel counter table into Prometheus series.
package translator

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/jitterbuffer-exporter/internal/constants"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/metrics"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/stats"
)

// Translator reads a stats.Table and publishes each entry as metric series.
type Translator struct {
	table    stats.Table
	metrics  *metrics.Metrics
	interval time.Duration
	logger   zerolog.Logger

	// lastCollection is the unix nano time of the last successful cycle.
	lastCollection atomic.Int64
}

// New creates a Translator. A non-positive interval uses the default.
func New(table stats.Table, m *metrics.Metrics, interval time.Duration, logger zerolog.Logger) *Translator {
	if interval <= 0 {
		interval = constants.DefaultCollectionInterval
	}
	return &Translator{
		table:    table,
		metrics:  m,
		interval: interval,
		logger:   logger.With().Str("component", "translator").Logger(),
	}
}

// Interval returns the collection period.
func (t *Translator) Interval() time.Duration {
	return t.interval
}

// LastCollection returns the time of the last successful cycle, or the zero time.
func (t *Translator) LastCollection() time.Time {
	ns := t.lastCollection.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Run collects immediately and then every interval until ctx is done.
// Failed cycles are logged and counted; they never stop the loop.
func (t *Translator) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info().Dur("interval", t.interval).Msg("Started metrics translation")

	for {
		if err := t.Collect(); err != nil {
			t.logger.Error().Err(err).Msg("Collection cycle abandoned")
		}

		select {
		case <-ctx.Done():
			t.logger.Info().Msg("Stopped metrics translation")
			return nil
		case <-ticker.C:
		}
	}
}

// Collect runs one cycle. Any error abandons the rest of the cycle; series already
// updated keep their new values.
func (t *Translator) Collect() error {
	start := time.Now()
	defer func() {
		t.metrics.CollectionDuration.Observe(time.Since(start).Seconds())
	}()

	entries, err := t.table.Entries()
	if err != nil {
		t.metrics.CollectionErrors.Inc()
		return fmt.Errorf("read counter table: %w", err)
	}

	for _, e := range entries {
		if err := t.publish(e); err != nil {
			t.metrics.CollectionErrors.Inc()
			return fmt.Errorf("publish pid=%d function=%q: %w", e.Key.PID, e.Key.Function, err)
		}
	}

	t.metrics.TrackedKeys.Set(float64(len(entries)))
	t.metrics.CollectionCycles.Inc()
	t.lastCollection.Store(time.Now().UnixNano())

	t.logger.Debug().Int("keys", len(entries)).Msg("Collection cycle complete")
	return nil
}

func (t *Translator) publish(e stats.Entry) error {
	pid := strconv.FormatUint(uint64(e.Key.PID), 10)
	fn := e.Key.Function
	v := e.Value
	m := t.metrics

	if err := m.PacketCount.Set(float64(v.PacketCount), pid, fn); err != nil {
		return err
	}
	if err := m.DroppedPackets.Set(float64(v.DroppedPackets), pid, fn); err != nil {
		return err
	}
	if err := m.Bytes.Set(float64(v.TotalBytes), pid, fn); err != nil {
		return err
	}

	if v.PacketCount > 0 {
		if v.HasMinDelay() {
			g, err := m.DelayMin.GetMetricWithLabelValues(pid, fn)
			if err != nil {
				return err
			}
			g.Set(nsToSeconds(v.MinDelayNs))
		}

		if v.MaxDelayNs > 0 {
			g, err := m.DelayMax.GetMetricWithLabelValues(pid, fn)
			if err != nil {
				return err
			}
			g.Set(nsToSeconds(v.MaxDelayNs))
		}

		if avg, ok := v.AverageDelaySeconds(); ok {
			g, err := m.DelayAvg.GetMetricWithLabelValues(pid, fn)
			if err != nil {
				return err
			}
			g.Set(avg)

			h, err := m.Delay.GetMetricWithLabelValues(pid, fn)
			if err != nil {
				return err
			}
			h.Observe(avg)
		}
	}

	g, err := m.BufferSize.GetMetricWithLabelValues(pid, fn)
	if err != nil {
		return err
	}
	g.Set(float64(v.PacketCount))

	return nil
}

func nsToSeconds(ns uint64) float64 {
	return float64(ns) / 1e9
}
