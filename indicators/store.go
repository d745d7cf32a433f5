package indicators

import (
	"sync"

	"github.com/rustyeddy/stratengine/market"
)

// Reserved operand names the Store tracks directly from the tick stream
// rather than through an indicator instance.
const (
	SeriesPrice  = "Price"
	SeriesVolume = "Volume"
)

// Key identifies one indicator series in the Store.
type Key struct {
	Symbol    string
	Timeframe market.Timeframe
	Name      string
}

// series holds the current and immediately prior value of one named series.
// The prior value is what cross operators compare against.
type series struct {
	cur     float64
	prev    float64
	ready   bool
	hasPrev bool
}

func (s *series) roll(v float64, ready bool) {
	if s.ready {
		s.prev = s.cur
		s.hasPrev = true
	}
	if ready {
		s.cur = v
		s.ready = true
	}
}

type namedSeries struct {
	instanceKey string
	output      string
	series
}

// bucket is the per-(symbol, timeframe) slice of the Store. All mutation of
// a bucket happens under its own mutex, so updates for different keys are
// independent while updates to the same key are strictly serialized.
type bucket struct {
	mu        sync.Mutex
	instances map[string]Indicator
	names     map[string]*namedSeries
	price     series
	volume    series
}

func newBucket() *bucket {
	return &bucket{
		instances: make(map[string]Indicator),
		names:     make(map[string]*namedSeries),
	}
}

// Store maintains rolling indicator state per (symbol, timeframe, name) key,
// updated incrementally as candles arrive.
type Store struct {
	mu      sync.RWMutex
	buckets map[bucketKey]*bucket
}

type bucketKey struct {
	symbol    string
	timeframe market.Timeframe
}

func NewStore() *Store {
	return &Store{buckets: make(map[bucketKey]*bucket)}
}

func (s *Store) bucket(symbol string, tf market.Timeframe, create bool) *bucket {
	k := bucketKey{symbol: symbol, timeframe: tf}

	s.mu.RLock()
	b := s.buckets[k]
	s.mu.RUnlock()
	if b != nil || !create {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b = s.buckets[k]; b == nil {
		b = newBucket()
		s.buckets[k] = b
	}
	return b
}

// Ensure registers the named indicator series for a symbol/timeframe,
// instantiating any indicators not yet tracked. Unknown names return an
// *UnknownIndicatorError; Price and Volume need no registration.
func (s *Store) Ensure(symbol string, tf market.Timeframe, names []string) error {
	// Resolve everything first so a bad name registers nothing.
	resolved := make(map[string]binding, len(names))
	for _, name := range names {
		if name == SeriesPrice || name == SeriesVolume {
			continue
		}
		bind, err := resolve(name)
		if err != nil {
			return err
		}
		resolved[name] = bind
	}
	if len(resolved) == 0 {
		return nil
	}

	b := s.bucket(symbol, tf, true)
	b.mu.Lock()
	defer b.mu.Unlock()

	for name, bind := range resolved {
		if _, ok := b.names[name]; ok {
			continue
		}
		if _, ok := b.instances[bind.instanceKey]; !ok {
			b.instances[bind.instanceKey] = bind.build()
		}
		b.names[name] = &namedSeries{
			instanceKey: bind.instanceKey,
			output:      bind.output,
		}
	}
	return nil
}

// Update ingests one closed candle for a symbol/timeframe and advances every
// registered indicator, returning the keys whose values changed. Series still
// in warmup are excluded.
func (s *Store) Update(symbol string, tf market.Timeframe, c market.Candle) []Key {
	b := s.bucket(symbol, tf, true)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.price.roll(c.Close, true)
	b.volume.roll(c.Volume, true)

	for _, ind := range b.instances {
		ind.Update(c)
	}

	changed := make([]Key, 0, len(b.names)+2)
	changed = append(changed,
		Key{Symbol: symbol, Timeframe: tf, Name: SeriesPrice},
		Key{Symbol: symbol, Timeframe: tf, Name: SeriesVolume},
	)

	for name, ns := range b.names {
		ind := b.instances[ns.instanceKey]
		v := 0.0
		if ind.Ready() {
			if ns.output != "" {
				v = ind.(MultiValue).ValueOf(ns.output)
			} else {
				v = ind.Value()
			}
		}
		ns.roll(v, ind.Ready())
		if ns.ready {
			changed = append(changed, Key{Symbol: symbol, Timeframe: tf, Name: name})
		}
	}
	return changed
}

// View is an immutable snapshot of a bucket's series, safe to evaluate
// against while the Store keeps updating.
type View struct {
	values map[string]series
}

// Value returns the current value of a named series. ok is false while the
// series is still in warmup or was never registered.
func (v View) Value(name string) (float64, bool) {
	s, ok := v.values[name]
	if !ok || !s.ready {
		return 0, false
	}
	return s.cur, true
}

// Prev returns the value the series had on the previous candle.
func (v View) Prev(name string) (float64, bool) {
	s, ok := v.values[name]
	if !ok || !s.hasPrev {
		return 0, false
	}
	return s.prev, true
}

// Snapshot copies the current state of a symbol/timeframe bucket.
func (s *Store) Snapshot(symbol string, tf market.Timeframe) View {
	b := s.bucket(symbol, tf, false)
	if b == nil {
		return View{values: map[string]series{}}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	values := make(map[string]series, len(b.names)+2)
	values[SeriesPrice] = b.price
	values[SeriesVolume] = b.volume
	for name, ns := range b.names {
		values[name] = ns.series
	}
	return View{values: values}
}
