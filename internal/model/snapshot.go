package model

import (
	"maps"
	"time"
)

// Snapshot holds the normalized results of a single fetch cycle.
// A Snapshot is never modified after construction; each cycle produces a
// new one that replaces the previous value wholesale.
type Snapshot struct {
	server    string
	fetchedAt time.Time
	values    map[Key]string
	gauges    map[Key]float64
	raw       []byte
}

// NewSnapshot builds a Snapshot for the server identified by server (its
// config source path). Keys of AllKeys missing from values are set to
// NotAvailable. values and raw are copied.
func NewSnapshot(server string, fetchedAt time.Time, values map[Key]string, raw []byte) Snapshot {
	v := make(map[Key]string, len(AllKeys))
	for _, k := range AllKeys {
		v[k] = NotAvailable
	}
	maps.Copy(v, values)

	return Snapshot{
		server:    server,
		fetchedAt: fetchedAt,
		values:    v,
		raw:       append([]byte(nil), raw...),
	}
}

// Get returns the display value for k. The zero Snapshot and unknown keys
// yield NotAvailable.
func (s Snapshot) Get(k Key) string {
	if v, ok := s.values[k]; ok {
		return v
	}
	return NotAvailable
}

// Values returns a copy of every key/value pair.
func (s Snapshot) Values() map[Key]string {
	return maps.Clone(s.values)
}

// Raw returns a copy of the response body the snapshot was built from.
func (s Snapshot) Raw() []byte {
	return append([]byte(nil), s.raw...)
}

// Server is the source path of the config the snapshot was fetched for.
func (s Snapshot) Server() string { return s.server }

func (s Snapshot) FetchedAt() time.Time { return s.fetchedAt }

// WithGauges returns a copy of s carrying the numeric readings behind some
// of its display values. g is copied.
func (s Snapshot) WithGauges(g map[Key]float64) Snapshot {
	s.gauges = maps.Clone(g)
	return s
}

// Gauge returns the numeric reading for k, if the snapshot has one.
func (s Snapshot) Gauge(k Key) (float64, bool) {
	v, ok := s.gauges[k]
	return v, ok
}

// IsZero reports whether s was never populated.
func (s Snapshot) IsZero() bool { return s.values == nil }
