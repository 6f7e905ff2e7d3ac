// Package goerror carries typed application errors from usecases to the HTTP
// boundary. Each Error has a Type (who is at fault), a Code (which maps to an
// HTTP status) and a user-facing message; the wrapped cause stays internal.
package goerror
