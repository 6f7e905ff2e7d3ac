// Package mail sends email.
//
// Callers depend on the Mail interface and the provider-agnostic Message. The
// SMTP implementation is built on gopkg.in/gomail.v2 and supports implicit TLS
// (port 465) as well as STARTTLS submission ports.
package mail
