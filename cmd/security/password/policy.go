package password

import "unicode/utf8"

// Validate applies the length policy, counted in runes. Failures wrap
// autherr.ErrMissingCredentials.
func (c Config) Validate(plaintext string) error {
	switch n := utf8.RuneCountInString(plaintext); {
	case n < c.Policy.MinLength:
		return ErrPasswordTooShort
	case c.Policy.MaxLength > 0 && n > c.Policy.MaxLength:
		return ErrPasswordTooLong
	}
	return nil
}
