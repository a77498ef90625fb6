// Package tracking records which sequence values a logical operation consumed.
// The recording scope travels in a context.Context, so concurrent operations never
// see each other's entries.
package tracking

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Entry is one captured sequence allocation
type Entry struct {
	Entity    string `json:"class"`
	Attribute string `json:"attribute"`
	Value     any    `json:"value"`
}

type scopeKey struct{}

type scope struct {
	mu      sync.Mutex
	entries []Entry
	closed  bool
}

func (s *scope) add(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.entries = append(s.entries, e)
}

// close tears the scope down and returns a copy of what was recorded
func (s *scope) close() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func fromContext(ctx context.Context) *scope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(scopeKey{}).(*scope)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s
}

// Track runs op with a fresh recording scope and returns the entries recorded during
// it, in call order. Entries are returned even when op fails. A panic in op is
// re-raised after the scope is torn down.
func Track(ctx context.Context, op func(ctx context.Context) error) (entries []Entry, err error) {
	s := &scope{entries: []Entry{}}
	scoped := context.WithValue(ctx, scopeKey{}, s)

	defer func() {
		entries = s.close()
	}()

	err = op(scoped)
	return entries, err
}

// Record appends an entry to the scope carried by ctx. Without an active scope it does nothing.
func Record(ctx context.Context, entity, attribute string, value any) {
	s := fromContext(ctx)
	if s == nil {
		return
	}
	s.add(Entry{
		Entity:    entity,
		Attribute: attribute,
		Value:     Serialize(value),
	})
}

// Tracking reports whether ctx carries an active scope
func Tracking(ctx context.Context) bool {
	return fromContext(ctx) != nil
}

// Date is a calendar date without a time of day
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Serialize converts a value to one of a small canonical set of forms: numbers,
// booleans, strings and nil pass through; dates and times become ISO 8601 text;
// anything else uses its default text form.
func Serialize(value any) any {
	switch v := value.(type) {
	case nil, string, bool:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.Format(time.RFC3339)
	case Date:
		return v.String()
	}

	// numbers pass through even when they implement fmt.Stringer
	switch reflect.ValueOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return value
	}

	if v, ok := value.(fmt.Stringer); ok {
		return v.String()
	}
	return fmt.Sprint(value)
}
