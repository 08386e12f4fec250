package metrics

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
)

// CumulativeCounter exposes counters whose absolute value is owned elsewhere, such as
// totals kept in a kernel map. Each Set replaces the stored value of a label set.
type CumulativeCounter struct {
	desc   *prometheus.Desc
	labels int

	mu     sync.RWMutex
	values map[string]sample
}

type sample struct {
	labelValues []string
	value       float64
}

// NewCumulativeCounter returns a counter collector named fqName.
func NewCumulativeCounter(fqName, help string, labelNames []string) *CumulativeCounter {
	return &CumulativeCounter{
		desc:   prometheus.NewDesc(fqName, help, labelNames, nil),
		labels: len(labelNames),
		values: make(map[string]sample),
	}
}

// Set records value for the series identified by labelValues.
func (c *CumulativeCounter) Set(value float64, labelValues ...string) error {
	if len(labelValues) != c.labels {
		return fmt.Errorf("%s: got %d label values, want %d", c.desc, len(labelValues), c.labels)
	}
	if value < 0 {
		return fmt.Errorf("%s: counter value %v is negative", c.desc, value)
	}

	for _, lv := range labelValues {
		if !utf8.ValidString(lv) {
			return fmt.Errorf("%s: label value %q is not valid UTF-8", c.desc, lv)
		}
	}

	key := strings.Join(labelValues, "\xff")

	c.mu.Lock()
	c.values[key] = sample{labelValues: append([]string(nil), labelValues...), value: value}
	c.mu.Unlock()

	return nil
}

// Value returns the stored value for labelValues.
func (c *CumulativeCounter) Value(labelValues ...string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.values[strings.Join(labelValues, "\xff")]
	return s.value, ok
}

// Len returns the number of series.
func (c *CumulativeCounter) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Describe implements prometheus.Collector.
func (c *CumulativeCounter) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *CumulativeCounter) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, s := range c.values {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, s.value, s.labelValues...)
	}
}
