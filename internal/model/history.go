package model

import "time"

// DefaultHistoryCap is one hour of points at the default interval.
const DefaultHistoryCap = 60

// TrendKeys are the gauges the dashboard draws as sparklines.
var TrendKeys = []Key{KeyCPULoad1m, KeyRAMUsed, KeyActive5m}

// TrendPoint is the TrendKeys gauges of one snapshot.
type TrendPoint struct {
	At     time.Time
	Values map[Key]float64
}

// History is a fixed-size ring buffer of TrendPoints. When full, a push
// overwrites the oldest point.
type History struct {
	buf  []TrendPoint
	head int // next write position
	size int
}

// NewHistory returns an empty History. capacity <= 0 means DefaultHistoryCap.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	return &History{buf: make([]TrendPoint, capacity)}
}

// Push records the TrendKeys gauges of s. Gauges s lacks are recorded as 0.
func (h *History) Push(s Snapshot) {
	p := TrendPoint{At: s.FetchedAt(), Values: make(map[Key]float64, len(TrendKeys))}
	for _, k := range TrendKeys {
		v, _ := s.Gauge(k)
		p.Values[k] = v
	}
	h.buf[h.head] = p
	h.head = (h.head + 1) % len(h.buf)
	if h.size < len(h.buf) {
		h.size++
	}
}

func (h *History) Len() int { return h.size }

// Clear drops every point, e.g. when the monitored server changes.
func (h *History) Clear() {
	h.head = 0
	h.size = 0
}

// Series returns the readings of k, oldest first.
func (h *History) Series(k Key) []float64 {
	out := make([]float64, h.size)
	start := (h.head - h.size + len(h.buf)) % len(h.buf)
	for i := range h.size {
		out[i] = h.buf[(start+i)%len(h.buf)].Values[k]
	}
	return out
}
