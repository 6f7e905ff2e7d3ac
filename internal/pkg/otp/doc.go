// Package otp issues and verifies short-lived numeric passcodes.
//
// A passcode is bound to an opaque session id. The session lives in a Store
// until it is verified, runs out of attempts or expires, whichever comes
// first. Manager is the entry point used by callers: RequestOTP creates a
// session and hands back the code for out-of-band delivery, VerifyOTP consumes
// it.
//
// Admission control (how often an identity may request a code) is not part of
// this package; see package ratelimit.
package otp
