// Package token provides primitives for single-use secrets handed to users
// (email verification links): random generation and at-rest hashing.
//
// Only the SHA-256 hex digest of a secret is ever stored. The raw value leaves
// the process once, inside the message sent to the user.
package token
