package domain

import "time"

// Session grants continued access after OTP verification. At most one
// session is active per user: creating a new one replaces all prior
// sessions for that user id. Lifetime is fixed at creation and never
// refreshed by use.
type Session struct {
	SessionID string    `json:"id" dynamodbav:"session_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"` // Unix seconds, doubles as DynamoDB TTL
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt <= now.Unix()
}
