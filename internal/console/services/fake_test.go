package services

import (
	"context"
	"database/sql"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/matchdesk/internal/console/client"
	"github.com/dmitrijs2005/matchdesk/internal/console/fallback"
	"github.com/dmitrijs2005/matchdesk/internal/console/models"
	"github.com/dmitrijs2005/matchdesk/internal/console/storage"
	"github.com/dmitrijs2005/matchdesk/internal/logging"
	"github.com/stretchr/testify/require"
)

// fakeClient implements client.Client. Unset hooks succeed with empty
// payloads.
type fakeClient struct {
	mu    sync.Mutex
	calls map[string]int

	healthErr error

	loginFn       func(email, password string) (*models.User, error)
	registerFn    func(req *client.RegisterRequest) (*models.User, error)
	logoutErr     error
	currentUserFn func() (*models.User, error)

	venuesFn        func() ([]models.Venue, error)
	matchesFn       func() ([]models.Match, error)
	clientsFn       func(venueID string) ([]models.ReservationClient, error)
	notificationsFn func() ([]models.Notification, error)
	analyticsErr    error
	customersErr    error

	markAllErr    error
	updateStatus  func(reservationID string, status models.ReservationStatus) error
	statusUpdates []string

	venueCheckoutFn func(req *client.VenueCheckoutRequest) (*client.CheckoutSession, error)
	boostCheckoutFn func(req *client.BoostCheckoutRequest) (*client.CheckoutSession, error)
	verifyVenueFn   func(sessionID string) (*client.VenueCheckoutResult, error)
	verifyBoostFn   func(sessionID string) (*client.BoostPurchaseResult, error)

	cookies []*http.Cookie
}

func (f *fakeClient) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakeClient) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeClient) Health(context.Context) error {
	f.hit("health")
	return f.healthErr
}

func (f *fakeClient) Login(_ context.Context, email, password string) (*models.User, error) {
	f.hit("login")
	if f.loginFn == nil {
		return &models.User{ID: "u1", Email: email}, nil
	}
	return f.loginFn(email, password)
}

func (f *fakeClient) Register(_ context.Context, req *client.RegisterRequest) (*models.User, error) {
	f.hit("register")
	if f.registerFn == nil {
		return &models.User{ID: "u1", Email: req.Email, Name: req.Name}, nil
	}
	return f.registerFn(req)
}

func (f *fakeClient) Logout(context.Context) error {
	f.hit("logout")
	return f.logoutErr
}

func (f *fakeClient) CurrentUser(context.Context) (*models.User, error) {
	f.hit("me")
	if f.currentUserFn == nil {
		return &models.User{ID: "u1", Email: "owner@example.org"}, nil
	}
	return f.currentUserFn()
}

func (f *fakeClient) ListVenues(context.Context) ([]models.Venue, error) {
	f.hit("venues")
	if f.venuesFn == nil {
		return nil, nil
	}
	return f.venuesFn()
}

func (f *fakeClient) ListVenueMatches(context.Context) ([]models.Match, error) {
	f.hit("matches")
	if f.matchesFn == nil {
		return nil, nil
	}
	return f.matchesFn()
}

func (f *fakeClient) ListVenueClients(_ context.Context, venueID string) ([]models.ReservationClient, error) {
	f.hit("clients")
	if f.clientsFn == nil {
		return nil, nil
	}
	return f.clientsFn(venueID)
}

func (f *fakeClient) AnalyticsSummary(context.Context) (*models.AnalyticsSummary, error) {
	f.hit("analytics")
	if f.analyticsErr != nil {
		return nil, f.analyticsErr
	}
	return &models.AnalyticsSummary{ProfileViews: 10}, nil
}

func (f *fakeClient) CustomerStats(context.Context) (*models.CustomerStats, error) {
	f.hit("customers")
	if f.customersErr != nil {
		return nil, f.customersErr
	}
	return &models.CustomerStats{TotalCustomers: 3}, nil
}

func (f *fakeClient) ListNotifications(context.Context) ([]models.Notification, error) {
	f.hit("notifications")
	if f.notificationsFn == nil {
		return nil, nil
	}
	return f.notificationsFn()
}

func (f *fakeClient) MarkAllNotificationsRead(context.Context) error {
	f.hit("readall")
	return f.markAllErr
}

func (f *fakeClient) UpdateReservationStatus(_ context.Context, reservationID string, status models.ReservationStatus) error {
	f.hit("status")
	f.mu.Lock()
	f.statusUpdates = append(f.statusUpdates, reservationID+"="+string(status))
	f.mu.Unlock()
	if f.updateStatus == nil {
		return nil
	}
	return f.updateStatus(reservationID, status)
}

func (f *fakeClient) CreateVenueCheckout(_ context.Context, req *client.VenueCheckoutRequest) (*client.CheckoutSession, error) {
	f.hit("venue_checkout")
	if f.venueCheckoutFn == nil {
		return &client.CheckoutSession{URL: "https://pay.example/cs_venue", SessionID: "cs_venue"}, nil
	}
	return f.venueCheckoutFn(req)
}

func (f *fakeClient) CreateBoostCheckout(_ context.Context, req *client.BoostCheckoutRequest) (*client.CheckoutSession, error) {
	f.hit("boost_checkout")
	if f.boostCheckoutFn == nil {
		return &client.CheckoutSession{URL: "https://pay.example/cs_boost", SessionID: "cs_boost"}, nil
	}
	return f.boostCheckoutFn(req)
}

func (f *fakeClient) VerifyVenueCheckout(_ context.Context, sessionID string) (*client.VenueCheckoutResult, error) {
	f.hit("verify_venue")
	if f.verifyVenueFn == nil {
		return &client.VenueCheckoutResult{Success: true}, nil
	}
	return f.verifyVenueFn(sessionID)
}

func (f *fakeClient) VerifyBoostPurchase(_ context.Context, sessionID string) (*client.BoostPurchaseResult, error) {
	f.hit("verify_boost")
	if f.verifyBoostFn == nil {
		return &client.BoostPurchaseResult{Success: true}, nil
	}
	return f.verifyBoostFn(sessionID)
}

func (f *fakeClient) Cookies() []*http.Cookie {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*http.Cookie(nil), f.cookies...)
}

func (f *fakeClient) SetCookies(cookies []*http.Cookie) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cookies = append([]*http.Cookie(nil), cookies...)
}

func (f *fakeClient) ClearCookies() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cookies = nil
}

func (f *fakeClient) Close() error { return nil }

type staticSession struct {
	s *models.Session
}

func (s staticSession) Current() *models.Session {
	if s.s == nil {
		return nil
	}
	cp := *s.s
	return &cp
}

// probingSession counts availability rechecks and reports the API online.
type probingSession struct {
	staticSession
	avail    *Availability
	rechecks atomic.Int32
}

func (p *probingSession) RecheckAvailability(ctx context.Context) models.Availability {
	p.rechecks.Add(1)
	p.avail.Set(ctx, models.AvailabilityOnline)
	return p.avail.Get()
}

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []Toast
}

func (n *recordingNotifier) Notify(_ context.Context, t Toast) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, t)
}

func (n *recordingNotifier) all() []Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Toast(nil), n.toasts...)
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "console.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func embeddedDataset(t *testing.T) *fallback.Dataset {
	t.Helper()
	ds, err := fallback.Embedded()
	require.NoError(t, err)
	return ds
}

func newAvailability(state models.Availability) *Availability {
	a := NewAvailability(logging.Discard())
	a.Set(context.Background(), state)
	return a
}

func ownerSession() *models.Session {
	return &models.Session{UserID: "u1", Email: "owner@example.org", OnboardingComplete: true, OnboardingStep: models.OnboardingComplete}
}
