package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/openmca/auth-api/internal/domain"
	"github.com/openmca/auth-api/internal/infrastructure/otpstore"
	"github.com/openmca/auth-api/internal/pkg/id"
	"github.com/openmca/auth-api/internal/pkg/phone"
	pkgtoken "github.com/openmca/auth-api/internal/pkg/token"
)

// UserStore is the subset of the user repository the service needs.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByID(ctx context.Context, userID string) (*domain.User, error)
}

// SessionStore is the subset of the session repository the service needs.
// ReplaceForUser must atomically remove every other session the user holds.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	ReplaceForUser(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, sessionID string) error
}

// SMSSender dispatches the passcode text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// PhoneClassifier reports whether a number is mobile-capable.
type PhoneClassifier interface {
	IsMobile(ctx context.Context, e164 string) (bool, error)
}

type Service interface {
	// SendCode handles both registration (email present) and login. The
	// number is normalized and classified before any side effect, so a
	// rejected number never has a code generated, stored, or dispatched.
	SendCode(ctx context.Context, req domain.SendOTPRequest) error
	// VerifyCode redeems a passcode exactly once and returns the new
	// session id. The user's prior sessions are invalidated atomically.
	VerifyCode(ctx context.Context, req domain.VerifyOTPRequest) (string, error)
	// VerifySession reports whether the session id names a live session.
	VerifySession(ctx context.Context, sessionID string) error
	// Logout is idempotent and best-effort: it never fails, even when the
	// underlying delete does.
	Logout(ctx context.Context, sessionID string)
	// WhoAmI returns the user behind a live session.
	WhoAmI(ctx context.Context, sessionID string) (*domain.User, error)
}

type Deps struct {
	Users      UserStore
	Sessions   SessionStore
	OTPs       otpstore.Store
	SMS        SMSSender
	Classifier PhoneClassifier
	OTPTTL     time.Duration
	SessionTTL time.Duration
}

type service struct {
	users      UserStore
	sessions   SessionStore
	otps       otpstore.Store
	sms        SMSSender
	classifier PhoneClassifier
	otpTTL     time.Duration
	sessionTTL time.Duration
}

func NewService(d Deps) Service {
	return &service{
		users:      d.Users,
		sessions:   d.Sessions,
		otps:       d.OTPs,
		sms:        d.SMS,
		classifier: d.Classifier,
		otpTTL:     d.OTPTTL,
		sessionTTL: d.SessionTTL,
	}
}

func (s *service) SendCode(ctx context.Context, req domain.SendOTPRequest) error {
	e164, err := phone.Normalize(req.Phone)
	if err != nil {
		return err
	}

	mobile, err := s.classifier.IsMobile(ctx, e164)
	if err != nil {
		return fmt.Errorf("classify phone: %w", err)
	}
	if !mobile {
		return fmt.Errorf("phone %s: %w", e164, domain.ErrInvalidPhone)
	}

	if req.Email != "" {
		if err := s.registerIfAbsent(ctx, e164, req.Email); err != nil {
			return err
		}
	} else {
		if _, err := s.users.GetByPhone(ctx, e164); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("no account for %s, register first: %w", e164, domain.ErrNotFound)
			}
			return err
		}
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	otp := domain.OTP{Code: code, ExpiresAt: time.Now().Add(s.otpTTL)}
	if err := s.otps.Set(ctx, e164, otp, s.otpTTL); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	if err := s.sms.SendSMS(ctx, e164, "Your openmca login code is "+code); err != nil {
		return fmt.Errorf("dispatch otp: %w", err)
	}
	slog.Info("otp dispatched", "phone", e164)
	return nil
}

// registerIfAbsent creates the user on first contact. A lost create race
// means another request registered the same phone first; that is success.
func (s *service) registerIfAbsent(ctx context.Context, e164, email string) error {
	_, err := s.users.GetByPhone(ctx, e164)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	u := &domain.User{
		UserID:    id.New(),
		Email:     email,
		Phone:     e164,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil
		}
		return err
	}
	slog.Info("user registered", "phone", e164)
	return nil
}

func (s *service) VerifyCode(ctx context.Context, req domain.VerifyOTPRequest) (string, error) {
	e164, err := phone.Normalize(req.Phone)
	if err != nil {
		return "", err
	}

	// One-time use: match and consume happen in a single store call, so of
	// any number of concurrent redeem attempts exactly one can win.
	otp, matched, err := s.otps.CompareAndDelete(ctx, e164, req.Code)
	if err != nil {
		return "", fmt.Errorf("consume otp: %w", err)
	}
	now := time.Now()
	if !matched || otp.Expired(now) {
		return "", fmt.Errorf("invalid or expired code: %w", domain.ErrUnauthorized)
	}

	u, err := s.users.GetByPhone(ctx, e164)
	if err != nil {
		return "", err
	}

	sessionID, err := pkgtoken.NewSessionID()
	if err != nil {
		return "", err
	}
	sess := &domain.Session{
		SessionID: sessionID,
		UserID:    u.UserID,
		ExpiresAt: now.Add(s.sessionTTL).Unix(),
		CreatedAt: now.UTC(),
	}
	if err := s.sessions.ReplaceForUser(ctx, sess); err != nil {
		return "", fmt.Errorf("replace session: %w", err)
	}
	slog.Info("session created", "user_id", u.UserID)
	return sessionID, nil
}

func (s *service) VerifySession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("no session presented: %w", domain.ErrUnauthorized)
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("unknown session: %w", domain.ErrUnauthorized)
		}
		return err
	}
	if sess.Expired(time.Now()) {
		return fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	return nil
}

func (s *service) Logout(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		// The client-visible effect of "signed out" must hold regardless.
		slog.Warn("failed to delete session on logout", "err", err)
	}
}

func (s *service) WhoAmI(ctx context.Context, sessionID string) (*domain.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("no session presented: %w", domain.ErrUnauthorized)
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("unknown session: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if sess.Expired(time.Now()) {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	return s.users.GetByID(ctx, sess.UserID)
}

// generateCode draws a 6-digit passcode uniformly from 100000–999999.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
