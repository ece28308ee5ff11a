package mail

import "errors"

var (
	// ErrConfig is returned for invalid mail configuration.
	ErrConfig = errors.New("invalid mail config")

	// ErrTemplate is returned when a template cannot be used, e.g. it is not HTML.
	ErrTemplate = errors.New("email template error")

	// ErrStorage is returned when the template bucket cannot be read.
	ErrStorage = errors.New("template storage error")

	// ErrDelivery is returned when the mail provider rejects a message.
	ErrDelivery = errors.New("email delivery failed")
)
