// Package uid generates identifiers: snowflake numbers for database rows and
// UUIDv7 strings for correlation ids.
package uid

// NumberID generates sortable numeric ids.
type NumberID interface {
	Generate() int64
}

// StringID generates string ids.
type StringID interface {
	Generate() string
}
