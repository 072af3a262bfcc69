package domain

import "time"

// OTP is the ephemeral passcode record kept in the OTP store keyed by
// phone number. A new send unconditionally replaces the previous entry,
// so at most one code is outstanding per phone. The record is deleted
// the moment it is successfully matched (one-time use).
type OTP struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (o *OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
