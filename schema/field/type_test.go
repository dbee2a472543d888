package field_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/sqlflow/schema/field"
)

func TestType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ      field.Type
		name     string
		numeric  bool
		affinity string
	}{
		{field.TypeBool, "bool", false, "INTEGER"},
		{field.TypeInt64, "int64", true, "INTEGER"},
		{field.TypeUint8, "uint8", true, "INTEGER"},
		{field.TypeFloat64, "float64", true, "REAL"},
		{field.TypeString, "string", false, "TEXT"},
		{field.TypeTime, "time.Time", false, "TEXT"},
		{field.TypeBytes, "[]byte", false, "BLOB"},
		{field.TypeOther, "other", false, "NUMERIC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.typ.String())
			assert.Equal(t, tt.numeric, tt.typ.Numeric())
			assert.Equal(t, tt.affinity, tt.typ.Affinity())
			assert.True(t, tt.typ.Valid())
		})
	}
	assert.False(t, field.TypeInvalid.Valid())
	assert.Equal(t, "invalid", field.Type(200).String())
}

func TestTypeOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, field.TypeInt, field.TypeOf(1))
	assert.Equal(t, field.TypeInt64, field.TypeOf(int64(1)))
	assert.Equal(t, field.TypeFloat64, field.TypeOf(1.5))
	assert.Equal(t, field.TypeString, field.TypeOf("x"))
	assert.Equal(t, field.TypeBytes, field.TypeOf([]byte{1}))
	assert.Equal(t, field.TypeBool, field.TypeOf(true))
	assert.Equal(t, field.TypeOther, field.TypeOf(time.Time{}))
}
