package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dmitrijs2005/matchdesk/internal/console/client"
	"github.com/dmitrijs2005/matchdesk/internal/console/models"
	"github.com/dmitrijs2005/matchdesk/internal/console/repositories/metadata"
	"github.com/dmitrijs2005/matchdesk/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionManager(t *testing.T, fc *fakeClient, state models.Availability) *SessionManager {
	t.Helper()
	return NewSessionManager(fc, openDB(t), newAvailability(state), logging.Discard())
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return tok
}

func persistCookies(t *testing.T, m *SessionManager, cookies ...storedCookie) {
	t.Helper()
	raw, err := json.Marshal(cookies)
	require.NoError(t, err)
	require.NoError(t, metadata.NewSQLiteRepository(m.db).Set(context.Background(), keySessionCookies, raw))
}

func storedCredential(t *testing.T, m *SessionManager) []byte {
	t.Helper()
	raw, err := metadata.NewSQLiteRepository(m.db).Get(context.Background(), keySessionCookies)
	require.NoError(t, err)
	return raw
}

func TestLogin_OfflineDemo(t *testing.T) {
	fc := &fakeClient{}
	m := newSessionManager(t, fc, models.AvailabilityOffline)

	s, err := m.Login(context.Background(), "Demo@Match.com ", "demo123")
	require.NoError(t, err)

	assert.True(t, s.Demo)
	assert.Equal(t, "demo-user", s.UserID)
	assert.Equal(t, "Demo Owner", s.Name)
	assert.True(t, s.OnboardingComplete)
	assert.Equal(t, models.OnboardingComplete, s.OnboardingStep)
	assert.Zero(t, fc.count("login"))
	assert.True(t, m.IsDemo())
}

func TestLogin_OfflineRejectsOtherCredentials(t *testing.T) {
	cases := []struct {
		name, email, password string
	}{
		{"wrong password", "demo@match.com", "nope"},
		{"other account", "owner@example.org", "demo123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newSessionManager(t, &fakeClient{}, models.AvailabilityOffline)

			s, err := m.Login(context.Background(), tc.email, tc.password)
			require.Nil(t, s)

			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, ReasonOffline, authErr.Reason)
			assert.Nil(t, m.Current())
		})
	}
}

func TestLogin_TransportFailureFallsBackToDemo(t *testing.T) {
	fc := &fakeClient{loginFn: func(string, string) (*models.User, error) {
		return nil, &client.TransportError{Op: "login", Err: errors.New("connection refused")}
	}}
	m := newSessionManager(t, fc, models.AvailabilityOnline)

	s, err := m.Login(context.Background(), "demo@match.com", "demo123")
	require.NoError(t, err)
	assert.True(t, s.Demo)
	assert.Equal(t, models.AvailabilityOffline, m.avail.Get())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	fc := &fakeClient{loginFn: func(string, string) (*models.User, error) {
		return nil, &client.APIError{StatusCode: http.StatusUnauthorized, Message: "bad credentials"}
	}}
	m := newSessionManager(t, fc, models.AvailabilityOnline)

	_, err := m.Login(context.Background(), "owner@example.org", "x")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, ReasonInvalidCredentials, authErr.Reason)
	assert.Equal(t, models.AvailabilityOnline, m.avail.Get())
}

func TestLogin_VenueOwnershipCompletesOnboarding(t *testing.T) {
	fc := &fakeClient{
		loginFn: func(email, _ string) (*models.User, error) {
			return &models.User{ID: "u1", Email: email, OnboardingComplete: false, OnboardingStep: models.OnboardingBilling}, nil
		},
		venuesFn: func() ([]models.Venue, error) {
			return []models.Venue{{RemoteID: "v1", Name: "The Anchor"}}, nil
		},
		cookies: []*http.Cookie{{Name: "access_token", Value: "opaque"}},
	}
	m := newSessionManager(t, fc, models.AvailabilityOnline)

	s, err := m.Login(context.Background(), "owner@example.org", "pw")
	require.NoError(t, err)
	assert.True(t, s.OnboardingComplete)
	assert.Equal(t, models.OnboardingComplete, s.OnboardingStep)
	assert.NotNil(t, storedCredential(t, m))
}

func TestLogin_NoVenuesKeepsOnboardingState(t *testing.T) {
	fc := &fakeClient{loginFn: func(email, _ string) (*models.User, error) {
		return &models.User{ID: "u1", Email: email, OnboardingStep: models.OnboardingBilling}, nil
	}}
	m := newSessionManager(t, fc, models.AvailabilityOnline)

	s, err := m.Login(context.Background(), "owner@example.org", "pw")
	require.NoError(t, err)
	assert.False(t, s.OnboardingComplete)
	assert.Equal(t, models.OnboardingBilling, s.OnboardingStep)
}

func TestRegister_OfflineFailsFast(t *testing.T) {
	fc := &fakeClient{}
	m := newSessionManager(t, fc, models.AvailabilityOffline)

	_, err := m.Register(context.Background(), &client.RegisterRequest{Email: "a@b.c", Password: "pw", Name: "A"})

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, ReasonOffline, authErr.Reason)
	assert.Zero(t, fc.count("register"))
}

func TestRegister_Success(t *testing.T) {
	fc := &fakeClient{cookies: []*http.Cookie{{Name: "access_token", Value: "opaque"}}}
	m := newSessionManager(t, fc, models.AvailabilityOnline)

	s, err := m.Register(context.Background(), &client.RegisterRequest{Email: "a@b.c", Password: "pw", Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", s.Email)
	assert.Zero(t, fc.count("venues"))
	assert.NotNil(t, storedCredential(t, m))
}

func TestRestoreSession_Success(t *testing.T) {
	fc := &fakeClient{
		currentUserFn: func() (*models.User, error) {
			return &models.User{ID: "u1", Email: "owner@example.org", OnboardingComplete: true}, nil
		},
	}
	m := newSessionManager(t, fc, models.AvailabilityChecking)
	persistCookies(t, m, storedCookie{Name: "access_token", Value: signedToken(t, time.Now().Add(time.Hour))})

	s := m.RestoreSession(context.Background())
	require.NotNil(t, s)
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, models.AvailabilityOnline, m.avail.Get())
	require.Len(t, fc.Cookies(), 1)
	assert.Equal(t, "access_token", fc.Cookies()[0].Name)
}

func TestRestoreSession_UnauthorizedClearsCredential(t *testing.T) {
	fc := &fakeClient{currentUserFn: func() (*models.User, error) {
		return nil, &client.APIError{StatusCode: http.StatusUnauthorized}
	}}
	m := newSessionManager(t, fc, models.AvailabilityChecking)
	persistCookies(t, m, storedCookie{Name: "access_token", Value: "opaque"})

	assert.Nil(t, m.RestoreSession(context.Background()))
	assert.Nil(t, storedCredential(t, m))
	assert.Empty(t, fc.Cookies())
}

func TestRestoreSession_ExpiredTokenSkipsNetwork(t *testing.T) {
	fc := &fakeClient{}
	m := newSessionManager(t, fc, models.AvailabilityChecking)
	persistCookies(t, m, storedCookie{Name: "access_token", Value: signedToken(t, time.Now().Add(-time.Minute))})

	assert.Nil(t, m.RestoreSession(context.Background()))
	assert.Zero(t, fc.count("me"))
	assert.Nil(t, storedCredential(t, m))
}

func TestRestoreSession_Offline(t *testing.T) {
	fc := &fakeClient{healthErr: &client.TransportError{Op: "health", Err: errors.New("dial")}}
	m := newSessionManager(t, fc, models.AvailabilityChecking)
	persistCookies(t, m, storedCookie{Name: "access_token", Value: "opaque"})

	assert.Nil(t, m.RestoreSession(context.Background()))
	assert.Equal(t, models.AvailabilityOffline, m.avail.Get())
	assert.Zero(t, fc.count("me"))
	assert.NotNil(t, storedCredential(t, m), "credential is kept for the next start")
}

func TestLogout_DemoSkipsRemote(t *testing.T) {
	fc := &fakeClient{}
	m := newSessionManager(t, fc, models.AvailabilityOffline)
	_, err := m.Login(context.Background(), "demo@match.com", "demo123")
	require.NoError(t, err)

	m.Logout(context.Background())
	assert.Zero(t, fc.count("logout"))
	assert.Nil(t, m.Current())
}

func TestLogout_RemoteFailureStillClears(t *testing.T) {
	fc := &fakeClient{
		logoutErr: errors.New("boom"),
		cookies:   []*http.Cookie{{Name: "access_token", Value: "opaque"}},
	}
	m := newSessionManager(t, fc, models.AvailabilityOnline)
	_, err := m.Login(context.Background(), "owner@example.org", "pw")
	require.NoError(t, err)

	m.Logout(context.Background())
	assert.Equal(t, 1, fc.count("logout"))
	assert.Nil(t, m.Current())
	assert.Empty(t, fc.Cookies())
	assert.Nil(t, storedCredential(t, m))
}

func TestReload_UnauthorizedEndsSession(t *testing.T) {
	fc := &fakeClient{}
	m := newSessionManager(t, fc, models.AvailabilityOnline)
	_, err := m.Login(context.Background(), "owner@example.org", "pw")
	require.NoError(t, err)

	fc.currentUserFn = func() (*models.User, error) {
		return nil, &client.APIError{StatusCode: http.StatusUnauthorized}
	}
	err = m.Reload(context.Background())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, ReasonSessionExpired, authErr.Reason)
	assert.Nil(t, m.Current())
}

func TestRecheckAvailability_Throttled(t *testing.T) {
	fc := &fakeClient{}
	m := newSessionManager(t, fc, models.AvailabilityOffline)

	assert.Equal(t, models.AvailabilityOnline, m.RecheckAvailability(context.Background()))
	fc.healthErr = errors.New("down")
	assert.Equal(t, models.AvailabilityOnline, m.RecheckAvailability(context.Background()))
	assert.Equal(t, 1, fc.count("health"))
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name  string
		token string
		want  bool
	}{
		{"not a jwt", "opaque-value", false},
		{"future", signedToken(t, now.Add(time.Hour)), false},
		{"past", signedToken(t, now.Add(-time.Hour)), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tokenExpired(tc.token, now))
		})
	}
}
