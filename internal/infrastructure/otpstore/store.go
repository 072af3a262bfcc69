package otpstore

import (
	"context"
	"time"

	"github.com/openmca/auth-api/internal/domain"
)

// Store is the injected OTP cache: one entry per phone number, replaced on
// every set. Implementations honor the TTL and treat missing keys as
// (found=false, err=nil). Entries are volatile; losing them only forces a
// resend.
//
// Redemption goes through CompareAndDelete so that match-and-consume is a
// single atomic step inside the store: two concurrent redeem attempts for
// one code can never both observe the entry before it is deleted.
type Store interface {
	Set(ctx context.Context, phone string, otp domain.OTP, ttl time.Duration) error
	Get(ctx context.Context, phone string) (*domain.OTP, bool, error)
	// CompareAndDelete atomically removes the entry for phone iff its code
	// matches. It returns the removed entry and whether the match happened;
	// a mismatch leaves the entry in place.
	CompareAndDelete(ctx context.Context, phone, code string) (*domain.OTP, bool, error)
	Delete(ctx context.Context, phone string) error
}
