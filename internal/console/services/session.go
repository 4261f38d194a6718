package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/matchdesk/internal/console/client"
	"github.com/dmitrijs2005/matchdesk/internal/console/fallback"
	"github.com/dmitrijs2005/matchdesk/internal/console/models"
	"github.com/dmitrijs2005/matchdesk/internal/console/repositories/metadata"
	"github.com/dmitrijs2005/matchdesk/internal/cryptox"
	"github.com/dmitrijs2005/matchdesk/internal/dbx"
	"github.com/dmitrijs2005/matchdesk/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

const (
	keySessionCookies = "session.cookies"
	keySessionUser    = "session.user"

	accessTokenCookie = "access_token"

	DemoEmail    = "demo@match.com"
	demoPassword = "demo123"

	probeTimeout = 3 * time.Second
)

var demoSalt = []byte("matchdesk-offline-demo")

var demoVerifier = sync.OnceValue(func() []byte {
	return cryptox.MakeVerifier(cryptox.DeriveKey([]byte(demoPassword), demoSalt))
})

func demoSession() *models.Session {
	return &models.Session{
		UserID:             fallback.DemoOwnerID,
		Email:              DemoEmail,
		Name:               "Demo Owner",
		Role:               "owner",
		OnboardingComplete: true,
		OnboardingStep:     models.OnboardingComplete,
		Demo:               true,
	}
}

type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitempty"`
}

// SessionManager is the only writer of the current session. It owns login,
// registration, logout and restoring the persisted credential at startup.
type SessionManager struct {
	client client.Client
	db     *sql.DB
	avail  *Availability
	logger logging.Logger

	probeLimiter *rate.Limiter
	now          func() time.Time

	mu      sync.RWMutex
	session *models.Session
}

func NewSessionManager(c client.Client, db *sql.DB, avail *Availability, logger logging.Logger) *SessionManager {
	return &SessionManager{
		client:       c,
		db:           db,
		avail:        avail,
		logger:       logger.With("component", "session"),
		probeLimiter: rate.NewLimiter(rate.Every(5*time.Second), 1),
		now:          time.Now,
	}
}

// Current returns a copy of the session, or nil when anonymous.
func (m *SessionManager) Current() *models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

func (m *SessionManager) IsDemo() bool {
	s := m.Current()
	return s != nil && s.Demo
}

func (m *SessionManager) set(s *models.Session) {
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()
}

// ProbeHealth asks the API whether it is reachable and records the answer.
func (m *SessionManager) ProbeHealth(ctx context.Context) models.Availability {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	state := models.AvailabilityOnline
	if err := m.client.Health(ctx); err != nil {
		m.logger.Debug(ctx, "health probe failed", "error", err)
		state = models.AvailabilityOffline
	}
	m.avail.Set(ctx, state)
	return state
}

// RecheckAvailability probes again after a request failure. Calls closer
// together than the limiter allows return the current state unchanged.
func (m *SessionManager) RecheckAvailability(ctx context.Context) models.Availability {
	if !m.probeLimiter.Allow() {
		return m.avail.Get()
	}
	return m.ProbeHealth(ctx)
}

// RestoreSession rebuilds the session from the persisted credential. Any
// failure leaves the console anonymous; it never returns an error.
func (m *SessionManager) RestoreSession(ctx context.Context) *models.Session {
	m.avail.Set(ctx, models.AvailabilityChecking)

	cookies, err := m.loadCredential(ctx)
	if err != nil {
		m.logger.Warn(ctx, "failed to load persisted credential", "error", err)
	}

	if m.ProbeHealth(ctx) != models.AvailabilityOnline {
		m.logger.Info(ctx, "api unreachable, starting anonymous")
		return nil
	}
	if len(cookies) == 0 {
		return nil
	}

	m.client.SetCookies(cookies)
	user, err := m.client.CurrentUser(ctx)
	if err != nil {
		switch {
		case errors.Is(err, client.ErrUnauthorized):
			m.logger.Info(ctx, "persisted credential rejected, discarding")
			m.forgetCredential(ctx)
		case errors.Is(err, client.ErrUnavailable):
			m.avail.Set(ctx, models.AvailabilityOffline)
			m.client.ClearCookies()
		default:
			m.logger.Warn(ctx, "failed to restore session", "error", err)
			m.client.ClearCookies()
		}
		return nil
	}

	s := models.SessionFromUser(user)
	m.applyVenueRule(ctx, s)
	m.set(s)
	m.logger.Info(ctx, "session restored", "user", s.UserID)
	return m.Current()
}

// Login authenticates against the API, or against the built-in demo
// credential while the API is unreachable.
func (m *SessionManager) Login(ctx context.Context, email, password string) (*models.Session, error) {
	if m.avail.Offline() {
		return m.offlineLogin(ctx, email, password)
	}

	user, err := m.client.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			m.avail.Set(ctx, models.AvailabilityOffline)
			m.logger.Warn(ctx, "api unreachable during login, trying offline login", "error", err)
			return m.offlineLogin(ctx, email, password)
		}
		return nil, authError(err)
	}

	s := models.SessionFromUser(user)
	m.applyVenueRule(ctx, s)
	if err := m.persistCredential(ctx, s.UserID); err != nil {
		m.logger.Warn(ctx, "failed to persist credential", "error", err)
	}
	m.set(s)
	m.logger.Info(ctx, "signed in", "user", s.UserID)
	return m.Current(), nil
}

func (m *SessionManager) offlineLogin(ctx context.Context, email, password string) (*models.Session, error) {
	if !strings.EqualFold(strings.TrimSpace(email), DemoEmail) ||
		!cryptox.Verify([]byte(password), demoSalt, demoVerifier()) {
		return nil, &AuthError{Reason: ReasonOffline, Err: errors.New("only the demo account can sign in while offline")}
	}
	m.client.ClearCookies()
	m.set(demoSession())
	m.logger.Info(ctx, "signed in with the offline demo account")
	return m.Current(), nil
}

// Register creates an account. It needs the API and fails fast offline.
func (m *SessionManager) Register(ctx context.Context, req *client.RegisterRequest) (*models.Session, error) {
	if m.avail.Offline() {
		return nil, &AuthError{Reason: ReasonOffline, Err: errors.New("registration needs a connection")}
	}

	user, err := m.client.Register(ctx, req)
	if err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			m.avail.Set(ctx, models.AvailabilityOffline)
		}
		return nil, authError(err)
	}

	s := models.SessionFromUser(user)
	if err := m.persistCredential(ctx, s.UserID); err != nil {
		m.logger.Warn(ctx, "failed to persist credential", "error", err)
	}
	m.set(s)
	m.logger.Info(ctx, "registered", "user", s.UserID)
	return m.Current(), nil
}

// Logout ends the session locally regardless of what the API answers.
func (m *SessionManager) Logout(ctx context.Context) {
	s := m.Current()
	if s != nil && !s.Demo && !m.avail.Offline() {
		if err := m.client.Logout(ctx); err != nil {
			m.logger.Warn(ctx, "remote logout failed", "error", err)
		}
	}
	m.forgetCredential(ctx)
	m.set(nil)
	m.logger.Info(ctx, "signed out")
}

// Reload re-reads the current user, e.g. after a checkout changed the
// onboarding state. Demo sessions have nothing to reload.
func (m *SessionManager) Reload(ctx context.Context) error {
	cur := m.Current()
	if cur == nil {
		return ErrNotSignedIn
	}
	if cur.Demo {
		return nil
	}

	user, err := m.client.CurrentUser(ctx)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			m.forgetCredential(ctx)
			m.set(nil)
			return &AuthError{Reason: ReasonSessionExpired, Err: err}
		}
		if errors.Is(err, client.ErrUnavailable) {
			m.avail.Set(ctx, models.AvailabilityOffline)
		}
		return fmt.Errorf("reload session: %w", err)
	}

	s := models.SessionFromUser(user)
	m.applyVenueRule(ctx, s)
	m.set(s)
	return nil
}

// applyVenueRule marks onboarding complete for anyone who already owns a
// venue, whatever the API says about their onboarding state.
func (m *SessionManager) applyVenueRule(ctx context.Context, s *models.Session) {
	if s.OnboardingComplete {
		return
	}
	venues, err := m.client.ListVenues(ctx)
	if err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			m.avail.Set(ctx, models.AvailabilityOffline)
		}
		m.logger.Debug(ctx, "venue check failed", "error", err)
		return
	}
	if len(venues) > 0 {
		s.CompleteOnboarding()
	}
}

func (m *SessionManager) persistCredential(ctx context.Context, userID string) error {
	cookies := m.client.Cookies()
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value, Expires: c.Expires})
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode cookies: %w", err)
	}

	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keySessionCookies, raw); err != nil {
			return err
		}
		return repo.Set(ctx, keySessionUser, []byte(userID))
	})
}

// loadCredential returns the persisted cookies. An expired access token is
// discarded here without asking the API.
func (m *SessionManager) loadCredential(ctx context.Context) ([]*http.Cookie, error) {
	raw, err := metadata.NewSQLiteRepository(m.db).Get(ctx, keySessionCookies)
	if err != nil || raw == nil {
		return nil, err
	}

	var stored []storedCookie
	if err := json.Unmarshal(raw, &stored); err != nil {
		m.forgetCredential(ctx)
		return nil, fmt.Errorf("decode cookies: %w", err)
	}

	now := m.now()
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		if c.Name == accessTokenCookie && tokenExpired(c.Value, now) {
			m.logger.Info(ctx, "persisted access token expired, discarding")
			m.forgetCredential(ctx)
			return nil, nil
		}
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Expires: c.Expires})
	}
	return cookies, nil
}

func (m *SessionManager) forgetCredential(ctx context.Context) {
	m.client.ClearCookies()
	if err := metadata.NewSQLiteRepository(m.db).Delete(ctx, keySessionCookies, keySessionUser); err != nil {
		m.logger.Warn(ctx, "failed to delete persisted credential", "error", err)
	}
}

// tokenExpired reads the exp claim of a JWT without checking its signature.
// Values that are not JWTs never count as expired.
func tokenExpired(raw string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}

func authError(err error) *AuthError {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		return &AuthError{Reason: ReasonInvalidCredentials, Err: err}
	case errors.Is(err, client.ErrUnavailable):
		return &AuthError{Reason: ReasonUnavailable, Err: err}
	case errors.Is(err, client.ErrInvalidResponse):
		return &AuthError{Reason: ReasonInvalidResponse, Err: err}
	case errors.As(err, &apiErr):
		return &AuthError{Reason: ReasonRejected, Err: err}
	default:
		return &AuthError{Reason: ReasonUnavailable, Err: err}
	}
}
