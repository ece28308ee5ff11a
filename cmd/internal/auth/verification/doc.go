// Package verification issues and consumes single-use email verification
// tokens.
//
// The raw token is handed to the mailer once and then forgotten; only its
// SHA-256 hex digest is stored. Consumption is a single conditional update
// keyed on (hash, subject) that also requires the token to be unused and
// unexpired.
package verification
