package config

import (
	"io"
	"time"
)

// Config is read-only access to runtime configuration. Missing keys yield the
// registered default or the zero value.
type Config interface {
	io.Closer

	// GetSecond reads an integer key as a number of seconds.
	GetSecond(key string) time.Duration

	GetInt(key string) int
	GetInt32(key string) int32
	GetUint16(key string) uint16
	GetFloat64(key string) float64
	GetBool(key string) bool
	GetString(key string) string

	// GetArray splits a comma separated value, dropping empty elements.
	GetArray(key string) []string
}
