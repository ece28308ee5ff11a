// Package identity is the user directory consumed by the auth service.
//
// It owns user records (unique email and username, password hash, email
// verification flag) and exposes them through the Store interface. Token and
// session state live elsewhere; identity only flips the verified flag when an
// email verification token is consumed.
package identity
