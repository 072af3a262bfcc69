package phone

import (
	"fmt"

	"github.com/nyaruka/phonenumbers"
	"github.com/openmca/auth-api/internal/domain"
)

// Normalize parses a raw phone number and returns its canonical E.164 form.
// Numbers without a leading + are parsed against no default region, so
// national-format input is rejected rather than guessed at.
func Normalize(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, "")
	if err != nil {
		return "", fmt.Errorf("parse phone %q: %w", raw, domain.ErrBadRequest)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone %q: %w", raw, domain.ErrBadRequest)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
