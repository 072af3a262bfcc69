package http

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openmca/auth-api/internal/config"
	"github.com/openmca/auth-api/internal/domain"
	"github.com/openmca/auth-api/internal/infrastructure/otpstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPhone = "+12025550123"

// --- in-memory fakes wired through Deps ---

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User // by phone
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*domain.User)}
}

func (f *fakeUserStore) Create(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Phone]; ok {
		return domain.ErrConflict
	}
	f.users[u.Phone] = u
	return nil
}

func (f *fakeUserStore) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[phone]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.UserID == userID {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*domain.Session)}
}

func (f *fakeSessionStore) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessionStore) ReplaceForUser(_ context.Context, s *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sid, existing := range f.sessions {
		if existing.UserID == s.UserID {
			delete(f.sessions, sid)
		}
	}
	f.sessions[s.SessionID] = s
	return nil
}

func (f *fakeSessionStore) Delete(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID)
	return nil
}

type fakeSMS struct {
	mu   sync.Mutex
	last string
}

func (f *fakeSMS) SendSMS(_ context.Context, _, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = message
	return nil
}

func (f *fakeSMS) lastCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last[len(f.last)-6:]
}

type fakeClassifier struct{ mobile bool }

func (f *fakeClassifier) IsMobile(context.Context, string) (bool, error) {
	return f.mobile, nil
}

func testConfig() *config.Config {
	return &config.Config{
		AllowedOrigins: []string{"*"},
		OTPTTL:         5 * time.Minute,
		SessionTTL:     7 * 24 * time.Hour,
		SendOTPLimit:   5,
		SendOTPWindow:  15 * time.Minute,
	}
}

func newTestRouter(t *testing.T) (nethttp.Handler, *fakeSMS) {
	t.Helper()
	sms := &fakeSMS{}
	deps := &Deps{
		UserRepo:    newFakeUserStore(),
		SessionRepo: newFakeSessionStore(),
		OTPStore:    otpstore.NewMemory(),
		SMSSender:   sms,
		Classifier:  &fakeClassifier{mobile: true},
	}
	return NewRouter(testConfig(), deps), sms
}

func doJSON(h nethttp.Handler, method, target string, body interface{}, cookie *nethttp.Cookie) *httptest.ResponseRecorder {
	var r *nethttp.Request
	if body != nil {
		b, _ := json.Marshal(body)
		r = httptest.NewRequest(method, target, bytes.NewReader(b))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		r.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func TestEndToEnd_RegisterVerifySessionLogout(t *testing.T) {
	router, sms := newTestRouter(t)

	// Register: send-otp with email creates the user and dispatches a code.
	rr := doJSON(router, nethttp.MethodPost, "/auth-api/send-otp",
		domain.SendOTPRequest{Phone: testPhone, Email: "a@b.com"}, nil)
	require.Equal(t, nethttp.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(sms.last, "Your openmca login code is "))

	// Redeem the dispatched code for a session cookie.
	rr = doJSON(router, nethttp.MethodPost, "/auth-api/verify-otp",
		domain.VerifyOTPRequest{Phone: testPhone, Code: sms.lastCode()}, nil)
	require.Equal(t, nethttp.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]

	// The cookie authorizes the verify endpoint.
	rr = doJSON(router, nethttp.MethodGet, "/auth-api/verify", nil, cookie)
	assert.Equal(t, nethttp.StatusOK, rr.Code)

	// And identifies the user.
	rr = doJSON(router, nethttp.MethodGet, "/auth-api/me", nil, cookie)
	require.Equal(t, nethttp.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "a@b.com")

	// Logout, then the same cookie must no longer verify.
	rr = doJSON(router, nethttp.MethodPost, "/auth-api/logout", nil, cookie)
	assert.Equal(t, nethttp.StatusOK, rr.Code)
	rr = doJSON(router, nethttp.MethodGet, "/auth-api/verify", nil, cookie)
	assert.Equal(t, nethttp.StatusUnauthorized, rr.Code)
}

func TestEndToEnd_LoginBeforeRegistering(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := doJSON(router, nethttp.MethodPost, "/auth-api/send-otp",
		domain.SendOTPRequest{Phone: testPhone}, nil)
	assert.Equal(t, nethttp.StatusNotFound, rr.Code)
}

func TestEndToEnd_ReplayedCodeFails(t *testing.T) {
	router, sms := newTestRouter(t)

	rr := doJSON(router, nethttp.MethodPost, "/auth-api/send-otp",
		domain.SendOTPRequest{Phone: testPhone, Email: "a@b.com"}, nil)
	require.Equal(t, nethttp.StatusOK, rr.Code)
	code := sms.lastCode()

	rr = doJSON(router, nethttp.MethodPost, "/auth-api/verify-otp",
		domain.VerifyOTPRequest{Phone: testPhone, Code: code}, nil)
	require.Equal(t, nethttp.StatusOK, rr.Code)

	rr = doJSON(router, nethttp.MethodPost, "/auth-api/verify-otp",
		domain.VerifyOTPRequest{Phone: testPhone, Code: code}, nil)
	assert.Equal(t, nethttp.StatusUnauthorized, rr.Code)
}

func TestEndToEnd_NonMobileRejected(t *testing.T) {
	deps := &Deps{
		UserRepo:    newFakeUserStore(),
		SessionRepo: newFakeSessionStore(),
		OTPStore:    otpstore.NewMemory(),
		SMSSender:   &fakeSMS{},
		Classifier:  &fakeClassifier{mobile: false},
	}
	router := NewRouter(testConfig(), deps)

	rr := doJSON(router, nethttp.MethodPost, "/auth-api/send-otp",
		domain.SendOTPRequest{Phone: testPhone, Email: "a@b.com"}, nil)
	assert.Equal(t, nethttp.StatusUnprocessableEntity, rr.Code)
}

func TestEndToEnd_SendOTPRateLimited(t *testing.T) {
	router, _ := newTestRouter(t)

	var last int
	for i := 0; i < 6; i++ {
		rr := doJSON(router, nethttp.MethodPost, "/auth-api/send-otp",
			domain.SendOTPRequest{Phone: testPhone, Email: "a@b.com"}, nil)
		last = rr.Code
	}
	assert.Equal(t, nethttp.StatusTooManyRequests, last)
}

func TestRouter_ZeroSendLimitStillServes(t *testing.T) {
	cfg := testConfig()
	cfg.SendOTPLimit = 0
	deps := &Deps{
		UserRepo:    newFakeUserStore(),
		SessionRepo: newFakeSessionStore(),
		OTPStore:    otpstore.NewMemory(),
		SMSSender:   &fakeSMS{},
		Classifier:  &fakeClassifier{mobile: true},
	}
	// A misconfigured limit degrades to one send per window, never a panic.
	router := NewRouter(cfg, deps)
	rr := doJSON(router, nethttp.MethodPost, "/auth-api/send-otp",
		domain.SendOTPRequest{Phone: testPhone, Email: "a@b.com"}, nil)
	assert.Equal(t, nethttp.StatusOK, rr.Code)
	rr = doJSON(router, nethttp.MethodPost, "/auth-api/send-otp",
		domain.SendOTPRequest{Phone: testPhone, Email: "a@b.com"}, nil)
	assert.Equal(t, nethttp.StatusTooManyRequests, rr.Code)
}

func TestEndToEnd_SecondLoginInvalidatesFirstSession(t *testing.T) {
	router, sms := newTestRouter(t)

	register := domain.SendOTPRequest{Phone: testPhone, Email: "a@b.com"}
	require.Equal(t, nethttp.StatusOK,
		doJSON(router, nethttp.MethodPost, "/auth-api/send-otp", register, nil).Code)
	rr := doJSON(router, nethttp.MethodPost, "/auth-api/verify-otp",
		domain.VerifyOTPRequest{Phone: testPhone, Code: sms.lastCode()}, nil)
	require.Equal(t, nethttp.StatusOK, rr.Code)
	first := rr.Result().Cookies()[0]

	require.Equal(t, nethttp.StatusOK,
		doJSON(router, nethttp.MethodPost, "/auth-api/send-otp", register, nil).Code)
	rr = doJSON(router, nethttp.MethodPost, "/auth-api/verify-otp",
		domain.VerifyOTPRequest{Phone: testPhone, Code: sms.lastCode()}, nil)
	require.Equal(t, nethttp.StatusOK, rr.Code)
	second := rr.Result().Cookies()[0]

	assert.Equal(t, nethttp.StatusUnauthorized,
		doJSON(router, nethttp.MethodGet, "/auth-api/verify", nil, first).Code)
	assert.Equal(t, nethttp.StatusOK,
		doJSON(router, nethttp.MethodGet, "/auth-api/verify-session", nil, second).Code)
}

func TestHealthCheck(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := doJSON(router, nethttp.MethodGet, "/auth-api/health-check/ping", nil, nil)
	assert.Equal(t, nethttp.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "pong")
}
