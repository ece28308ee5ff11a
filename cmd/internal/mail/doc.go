// Package mail renders and delivers the verification email.
//
// Templates are HTML objects in an S3-compatible bucket (Cloudflare R2 in
// production). Delivery goes through the Brevo transactional API. Sends are
// fire-and-forget from the request's point of view: a Dispatcher runs them on
// a bounded set of goroutines with their own timeout.
package mail
