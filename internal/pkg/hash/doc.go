// Package hash derives keyed fingerprints of sensitive values.
//
// Identities are never written to the audit trail or to logs in clear text;
// the HMAC fingerprint keeps them correlatable without exposing them.
package hash
