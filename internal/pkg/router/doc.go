// Package router wraps httprouter with a JSON envelope, typed error mapping
// and the standard middleware chain: panic recovery, client IP resolution,
// correlation ids, per-IP throttling and request observability.
package router
