// Package clock is the single time source of the service.
//
// Session expiry and the rate-limit window are both computed from Clocker.Now.
// Production wiring uses TimeClocker; tests use Manual to step time explicitly
// instead of sleeping.
package clock
