// Package ratelimit implements a sliding-window limiter keyed by identity.
//
// On every check the timestamps older than the window are dropped. If what
// remains has reached the limit the request is rejected without being
// recorded, otherwise the current instant is appended. Two drivers exist: an
// in-process map and a redis sorted set driven by a Lua script so several
// replicas can share one budget.
package ratelimit
