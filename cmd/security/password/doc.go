// Package password hashes and verifies user passwords with Argon2id.
//
// Encoded hashes are self-describing ($argon2id$v=19$m=..,t=..,p=..$salt$key),
// so verification needs nothing beyond the stored string.
//
// Verify reports a malformed stored hash as ErrInvalidHash (kind autherr.ErrHash),
// never as a mismatch, so callers can tell corruption apart from a wrong password.
package password
