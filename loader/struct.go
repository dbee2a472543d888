package loader

import (
	stdsql "database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-openapi/inflect"
	"github.com/google/uuid"

	"github.com/syssam/sqlflow"
	"github.com/syssam/sqlflow/dialect/sql"
	"github.com/syssam/sqlflow/schema/field"
)

// StructAdapter derives an Adapter for *T from the fields of the struct T.
//
// Exported fields map to columns named by inflect.Underscore of the field
// name, unless a tag overrides it:
//
//	type Membership struct {
//		UserID int64     `sql:"user_id,pk"`
//		TeamID int64     `sql:"team_id,pk"`
//		Role   string    `sql:"role,rel"`
//		Joined time.Time // joined
//		Notes  string    `sql:"-"`
//	}
//
// Tag options are pk, autoincrement and rel. Fields of embedded structs are
// flattened. Scanned values are converted to the field type through the
// registered sql.Converters, sql.Scanner implementations and the usual
// numeric and text conversions.
type StructAdapter[T any] struct {
	table   string
	columns []Column
	fields  map[string][]int
	conv    *sql.Converters
}

type structOptions struct {
	table string
	conv  *sql.Converters
}

// StructOption configures a StructAdapter.
type StructOption func(*structOptions)

// WithTable overrides the table name, which defaults to the pluralized,
// underscored type name.
func WithTable(name string) StructOption {
	return func(o *structOptions) {
		o.table = name
	}
}

// WithStructConverters sets the registry used to convert scanned values.
func WithStructConverters(c *sql.Converters) StructOption {
	return func(o *structOptions) {
		o.conv = c
	}
}

// NewStructAdapter returns the adapter of T, which must be a struct type.
func NewStructAdapter[T any](opts ...StructOption) (*StructAdapter[T], error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return nil, sqlflow.NewConfigError(t.String(), "", "not a struct type")
	}
	o := structOptions{conv: sql.DefaultConverters()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.table == "" {
		o.table = inflect.Pluralize(inflect.Underscore(t.Name()))
	}
	a := &StructAdapter[T]{table: o.table, fields: make(map[string][]int), conv: o.conv}
	if err := a.walk(t, nil); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *StructAdapter[T]) walk(t reflect.Type, index []int) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, tagged := f.Tag.Lookup("sql")
		if tag == "-" || !f.IsExported() && !f.Anonymous || f.Anonymous && f.Type.Kind() == reflect.Pointer {
			continue
		}
		path := append(append([]int(nil), index...), i)
		if f.Anonymous && !tagged && f.Type.Kind() == reflect.Struct && !isScalarStruct(f.Type) {
			if err := a.walk(f.Type, path); err != nil {
				return err
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		c := Column{Name: inflect.Underscore(f.Name), Type: columnType(f.Type)}
		parts := strings.Split(tag, ",")
		if tagged && parts[0] != "" {
			c.Name = parts[0]
		}
		for _, opt := range parts[1:] {
			switch strings.TrimSpace(opt) {
			case "pk":
				c.PrimaryKey = true
			case "autoincrement":
				c.AutoIncrement = true
			case "rel":
				c.Relationship = true
			default:
				return sqlflow.NewConfigError(a.table, c.Name, fmt.Sprintf("unknown tag option %q", opt))
			}
		}
		if _, dup := a.fields[c.Name]; dup {
			return sqlflow.NewConfigError(a.table, c.Name, "duplicate column name")
		}
		a.fields[c.Name] = path
		a.columns = append(a.columns, c)
	}
	return nil
}

// isScalarStruct reports struct types stored in a single column.
func isScalarStruct(t reflect.Type) bool {
	return t == timeType
}

var (
	timeType    = reflect.TypeOf((*time.Time)(nil)).Elem()
	uuidType    = reflect.TypeOf((*uuid.UUID)(nil)).Elem()
	bytesType   = reflect.TypeOf((*[]byte)(nil)).Elem()
	scannerType = reflect.TypeOf((*stdsql.Scanner)(nil)).Elem()
	enumType    = reflect.TypeOf((*interface{ Values() []string })(nil)).Elem()
)

func columnType(t reflect.Type) field.Type {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t == timeType:
		return field.TypeTime
	case t == uuidType:
		return field.TypeUUID
	case t == bytesType:
		return field.TypeBytes
	case t.Implements(enumType):
		return field.TypeEnum
	}
	switch t.Kind() {
	case reflect.Bool:
		return field.TypeBool
	case reflect.Int:
		return field.TypeInt
	case reflect.Int8:
		return field.TypeInt8
	case reflect.Int16:
		return field.TypeInt16
	case reflect.Int32:
		return field.TypeInt32
	case reflect.Int64:
		return field.TypeInt64
	case reflect.Uint:
		return field.TypeUint
	case reflect.Uint8:
		return field.TypeUint8
	case reflect.Uint16:
		return field.TypeUint16
	case reflect.Uint32:
		return field.TypeUint32
	case reflect.Uint64:
		return field.TypeUint64
	case reflect.Float32:
		return field.TypeFloat32
	case reflect.Float64:
		return field.TypeFloat64
	case reflect.String:
		return field.TypeString
	}
	return field.TypeOther
}

// Table implements Adapter.
func (a *StructAdapter[T]) Table() string { return a.table }

// Columns implements Adapter.
func (a *StructAdapter[T]) Columns() []Column {
	return append([]Column(nil), a.columns...)
}

// New implements Adapter.
func (a *StructAdapter[T]) New() *T { return new(T) }

func (a *StructAdapter[T]) field(m *T, column string) (reflect.Value, error) {
	path, ok := a.fields[column]
	if !ok {
		return reflect.Value{}, fmt.Errorf("loader: %s has no column %q", a.table, column)
	}
	if m == nil {
		return reflect.Value{}, fmt.Errorf("loader: nil %s model", a.table)
	}
	return reflect.ValueOf(m).Elem().FieldByIndex(path), nil
}

// Get implements Adapter.
func (a *StructAdapter[T]) Get(m *T, column string) (any, error) {
	f, err := a.field(m, column)
	if err != nil {
		return nil, err
	}
	if f.Kind() == reflect.Pointer && f.IsNil() {
		return nil, nil
	}
	return f.Interface(), nil
}

// Set implements Adapter.
func (a *StructAdapter[T]) Set(m *T, column string, v any) error {
	f, err := a.field(m, column)
	if err != nil {
		return err
	}
	return a.assign(f, v)
}

func (a *StructAdapter[T]) assign(dst reflect.Value, v any) error {
	if v == nil {
		dst.SetZero()
		return nil
	}
	t := dst.Type()
	if t.Kind() == reflect.Pointer {
		elem := reflect.New(t.Elem())
		if err := a.assign(elem.Elem(), v); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}
	if m, ok, err := a.conv.FromStorage(t, v); ok {
		if err != nil {
			return err
		}
		rv := reflect.ValueOf(m)
		if !rv.Type().AssignableTo(t) {
			return fmt.Errorf("converter for %s returned %T", t, m)
		}
		dst.Set(rv)
		return nil
	}
	if reflect.PointerTo(t).Implements(scannerType) {
		return dst.Addr().Interface().(stdsql.Scanner).Scan(v)
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		dst.Set(rv)
		return nil
	}
	switch t.Kind() {
	case reflect.String:
		switch v := v.(type) {
		case []byte:
			dst.SetString(string(v))
			return nil
		case string:
			dst.SetString(v)
			return nil
		}
	case reflect.Slice:
		if s, ok := v.(string); ok && t.Elem().Kind() == reflect.Uint8 {
			dst.SetBytes([]byte(s))
			return nil
		}
	case reflect.Bool:
		switch v := v.(type) {
		case bool:
			dst.SetBool(v)
			return nil
		case int64:
			dst.SetBool(v != 0)
			return nil
		case []byte, string:
			b, err := strconv.ParseBool(text(v))
			if err != nil {
				return err
			}
			dst.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch v := v.(type) {
		case []byte, string:
			n, err := strconv.ParseInt(text(v), 10, t.Bits())
			if err != nil {
				return err
			}
			dst.SetInt(n)
			return nil
		}
		if isNumeric(rv.Kind()) {
			dst.Set(rv.Convert(t))
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch v := v.(type) {
		case []byte, string:
			n, err := strconv.ParseUint(text(v), 10, t.Bits())
			if err != nil {
				return err
			}
			dst.SetUint(n)
			return nil
		}
		if isNumeric(rv.Kind()) {
			dst.Set(rv.Convert(t))
			return nil
		}
	case reflect.Float32, reflect.Float64:
		switch v := v.(type) {
		case []byte, string:
			n, err := strconv.ParseFloat(text(v), t.Bits())
			if err != nil {
				return err
			}
			dst.SetFloat(n)
			return nil
		}
		if isNumeric(rv.Kind()) {
			dst.Set(rv.Convert(t))
			return nil
		}
	}
	return fmt.Errorf("cannot assign %T to %s", v, t)
}

func text(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v.(string)
}

func isNumeric(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

var _ Adapter[*struct{}] = (*StructAdapter[struct{}])(nil)
