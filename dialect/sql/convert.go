package sql

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// TypeConverter maps a model-side Go type to a storage primitive and back.
type TypeConverter interface {
	// ToStorage converts a model value to a value ValueOf can serialize
	// without conversion (string, number, []byte or nil).
	ToStorage(v any) (any, error)
	// FromStorage converts a scanned storage value to the model type.
	FromStorage(v any) (any, error)
}

// Converters is a registry of TypeConverters keyed by the exact Go type.
// It is safe for concurrent use.
type Converters struct {
	mu sync.RWMutex
	m  map[reflect.Type]TypeConverter
}

// NewConverters returns a registry with the built-in converters for
// time.Time and uuid.UUID.
func NewConverters() *Converters {
	c := &Converters{m: make(map[reflect.Type]TypeConverter)}
	RegisterType[time.Time](c, TimeConverter{})
	RegisterType[uuid.UUID](c, UUIDConverter{})
	return c
}

var (
	defaultConvOnce sync.Once
	defaultConv     *Converters
)

// DefaultConverters returns the process-wide registry used by builders that
// were not given their own.
func DefaultConverters() *Converters {
	defaultConvOnce.Do(func() { defaultConv = NewConverters() })
	return defaultConv
}

// Register registers conv for the type t, replacing any previous one.
func (c *Converters) Register(t reflect.Type, conv TypeConverter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[t] = conv
}

// RegisterType registers conv for the type parameter T.
func RegisterType[T any](c *Converters, conv TypeConverter) {
	c.Register(reflect.TypeOf((*T)(nil)).Elem(), conv)
}

// Lookup returns the converter registered for t.
func (c *Converters) Lookup(t reflect.Type) (TypeConverter, bool) {
	if c == nil || t == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	conv, ok := c.m[t]
	return conv, ok
}

// Clone returns an independent copy of the registry.
func (c *Converters) Clone() *Converters {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := &Converters{m: make(map[reflect.Type]TypeConverter, len(c.m))}
	for t, conv := range c.m {
		n.m[t] = conv
	}
	return n
}

// ToStorage applies the converter registered for the type of v, if any.
// Values without a converter are returned unchanged.
func (c *Converters) ToStorage(v any) (any, error) {
	if conv, ok := c.Lookup(reflect.TypeOf(v)); ok {
		return conv.ToStorage(v)
	}
	return v, nil
}

// FromStorage converts the scanned value v to the type t using the
// registered converter. It reports false if no converter exists for t.
func (c *Converters) FromStorage(t reflect.Type, v any) (any, bool, error) {
	conv, ok := c.Lookup(t)
	if !ok {
		return nil, false, nil
	}
	m, err := conv.FromStorage(v)
	return m, true, err
}

// TimeLayout is the textual storage layout used by TimeConverter.
const TimeLayout = "2006-01-02 15:04:05.000"

// TimeConverter stores time.Time values as UTC text in TimeLayout.
type TimeConverter struct{}

// ToStorage implements TypeConverter.
func (TimeConverter) ToStorage(v any) (any, error) {
	t, ok := v.(time.Time)
	if !ok {
		return nil, fmt.Errorf("sql: time converter: unexpected type %T", v)
	}
	return t.UTC().Format(TimeLayout), nil
}

// FromStorage implements TypeConverter.
func (TimeConverter) FromStorage(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v.UTC(), nil
	case string:
		return parseTime(v)
	case []byte:
		return parseTime(string(v))
	case int64:
		return time.Unix(v, 0).UTC(), nil
	}
	return nil, fmt.Errorf("sql: time converter: unexpected storage type %T", v)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{TimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("sql: time converter: cannot parse %q", s)
}

// UUIDConverter stores uuid.UUID values in their canonical text form.
type UUIDConverter struct{}

// ToStorage implements TypeConverter.
func (UUIDConverter) ToStorage(v any) (any, error) {
	u, ok := v.(uuid.UUID)
	if !ok {
		return nil, fmt.Errorf("sql: uuid converter: unexpected type %T", v)
	}
	return u.String(), nil
}

// FromStorage implements TypeConverter.
func (UUIDConverter) FromStorage(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return uuid.Nil, nil
	case string:
		return uuid.Parse(v)
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	}
	return nil, fmt.Errorf("sql: uuid converter: unexpected storage type %T", v)
}

// ConverterFunc builds a TypeConverter from a pair of typed functions.
type ConverterFunc[M, S any] struct {
	To   func(M) (S, error)
	From func(S) (M, error)
}

// ToStorage implements TypeConverter.
func (f ConverterFunc[M, S]) ToStorage(v any) (any, error) {
	m, ok := v.(M)
	if !ok {
		return nil, fmt.Errorf("sql: converter: unexpected type %T", v)
	}
	return f.To(m)
}

// FromStorage implements TypeConverter.
func (f ConverterFunc[M, S]) FromStorage(v any) (any, error) {
	s, ok := v.(S)
	if !ok {
		return nil, fmt.Errorf("sql: converter: unexpected storage type %T", v)
	}
	return f.From(s)
}

// MsgpackConverter stores arbitrary values of type T as msgpack blobs.
type MsgpackConverter[T any] struct{}

// ToStorage implements TypeConverter.
func (MsgpackConverter[T]) ToStorage(v any) (any, error) {
	m, ok := v.(T)
	if !ok {
		return nil, fmt.Errorf("sql: msgpack converter: unexpected type %T", v)
	}
	return msgpack.Marshal(m)
}

// FromStorage implements TypeConverter.
func (MsgpackConverter[T]) FromStorage(v any) (any, error) {
	var m T
	b, ok := v.([]byte)
	if !ok {
		if v == nil {
			return m, nil
		}
		return nil, fmt.Errorf("sql: msgpack converter: unexpected storage type %T", v)
	}
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
