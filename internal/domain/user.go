package domain

import "time"

// User is created on the first send-otp request that carries an email
// (registration-on-first-use). Phone is the natural key for all lookups;
// this service never updates or deletes a user.
type User struct {
	UserID    string    `json:"id" dynamodbav:"user_id"`
	Email     string    `json:"email" dynamodbav:"email"`
	Phone     string    `json:"phone" dynamodbav:"phone"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

type SendOTPRequest struct {
	Phone string `json:"phone" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone" validate:"required"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}
