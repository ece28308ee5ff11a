// Package session is the token lifecycle core.
//
// It mints EdDSA-signed JWT access/refresh pairs (Issuer), persists refresh
// records keyed by jti (Store), and drives login, refresh and logout through a
// rotation state machine with replay detection (Service).
//
// Refresh records are revoked only through Store.RevokeIfActive, a single
// atomic conditional update. The service never performs read-then-write for
// state transitions.
//
// Transport (HTTP) integration lives in authapi.
package session
