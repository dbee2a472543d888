// Package field describes the declared storage types of entity columns.
//
// Generated adapters and the reflection based loader.StructAdapter tag every
// column with a Type. The type drives cache-key normalization, converter
// lookups and the SQLite affinity used when tables are created by tests:
//
//	field.TypeInt64.Affinity()  // INTEGER
//	field.TypeString.Textual()  // true
//	field.TypeOf(3.5)           // TypeFloat64
package field
