package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/matchdesk/internal/console/client"
	"github.com/dmitrijs2005/matchdesk/internal/console/models"
	"github.com/dmitrijs2005/matchdesk/internal/console/repositories/checkout"
	"github.com/dmitrijs2005/matchdesk/internal/logging"
	"github.com/dmitrijs2005/matchdesk/internal/metrics"
	"github.com/google/uuid"
)

// Return URL markers appended by the payment provider redirect.
const (
	MarkerCheckout  = "checkout"
	MarkerSessionID = "session_id"
	MarkerType      = "type"

	markerSuccess = "success"
	markerCancel  = "cancel"

	sessionPlaceholder = "{CHECKOUT_SESSION_ID}"
)

// Destinations a handled return leads to.
const (
	DestVenueAdded         = "venue-added"
	DestOnboardingComplete = "onboarding-complete"
	DestBoostConfirmation  = "boost-confirmation"
	DestVenues             = "venues"
	DestCurrent            = "current"
)

var errNotConfirmed = errors.New("provider did not confirm the payment")

type ReturnOutcome string

const (
	OutcomeNone      ReturnOutcome = "none"
	OutcomeCancelled ReturnOutcome = "cancelled"
	OutcomeDuplicate ReturnOutcome = "duplicate"
	OutcomeVerified  ReturnOutcome = "verified"
	OutcomeFailed    ReturnOutcome = "failed"
)

// ReturnResult tells the caller where to go after a provider redirect.
// CleanURL is the return URL without checkout markers.
type ReturnResult struct {
	Outcome         ReturnOutcome
	Type            models.CheckoutType
	Destination     string
	CleanURL        string
	AttemptID       string
	Quantity        int
	BoostsAvailable int
	Venue           *models.Venue
}

type BeginRequest struct {
	Type      models.CheckoutType
	VenueName string
	Plan      string
	Quantity  int
	ReturnTo  string
}

type sessionReloader interface {
	Reload(ctx context.Context) error
}

type refresher interface {
	Refresh(ctx context.Context) RefreshResult
}

// CheckoutCoordinator drives a purchase across the redirect to the payment
// provider and verifies each returned provider session at most once.
type CheckoutCoordinator struct {
	client   client.Client
	repo     *checkout.Repository
	sessions sessionReloader
	store    refresher
	logger   logging.Logger
	appURL   string

	newAttemptID func() string
	now          func() time.Time

	mu      sync.Mutex
	active  bool
	handled map[string]struct{}
	phase   models.CheckoutPhase
}

func NewCheckoutCoordinator(c client.Client, repo *checkout.Repository, sessions sessionReloader, store refresher, appURL string, logger logging.Logger) *CheckoutCoordinator {
	return &CheckoutCoordinator{
		client:       c,
		repo:         repo,
		sessions:     sessions,
		store:        store,
		logger:       logger.With("component", "checkout"),
		appURL:       strings.TrimRight(appURL, "/"),
		newAttemptID: uuid.NewString,
		now:          time.Now,
		handled:      make(map[string]struct{}),
		phase:        models.PhaseNone,
	}
}

func (c *CheckoutCoordinator) Phase() models.CheckoutPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *CheckoutCoordinator) setPhase(p models.CheckoutPhase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

// Begin saves the checkout state and opens a provider session. It returns
// the URL the user has to visit.
func (c *CheckoutCoordinator) Begin(ctx context.Context, req BeginRequest) (string, error) {
	if !req.Type.Valid() {
		return "", fmt.Errorf("unknown checkout type %q", req.Type)
	}
	if req.Type == models.CheckoutBoost && req.Quantity <= 0 {
		return "", errors.New("boost quantity must be positive")
	}
	if req.Type == models.CheckoutAddVenue && strings.TrimSpace(req.VenueName) == "" {
		return "", errors.New("venue name is required")
	}

	state := models.CheckoutState{
		Type:      req.Type,
		VenueName: req.VenueName,
		ReturnTo:  req.ReturnTo,
		CreatedAt: c.now(),
	}
	if err := c.repo.SaveState(ctx, state); err != nil {
		return "", fmt.Errorf("save checkout state: %w", err)
	}

	successURL, cancelURL := c.returnURLs(req.Type)

	var (
		session *client.CheckoutSession
		err     error
	)
	if req.Type == models.CheckoutBoost {
		session, err = c.client.CreateBoostCheckout(ctx, &client.BoostCheckoutRequest{
			Quantity:   req.Quantity,
			SuccessURL: successURL,
			CancelURL:  cancelURL,
		})
	} else {
		session, err = c.client.CreateVenueCheckout(ctx, &client.VenueCheckoutRequest{
			VenueName:  req.VenueName,
			Plan:       req.Plan,
			SuccessURL: successURL,
			CancelURL:  cancelURL,
		})
	}
	if err != nil {
		if derr := c.repo.DeleteState(ctx); derr != nil {
			c.logger.Warn(ctx, "failed to drop checkout state", "error", derr)
		}
		return "", fmt.Errorf("create %s checkout: %w", req.Type, err)
	}

	c.setPhase(models.PhasePending)
	c.logger.Info(ctx, "checkout started", "type", req.Type, "session", session.SessionID)
	return session.URL, nil
}

func (c *CheckoutCoordinator) returnURLs(t models.CheckoutType) (string, string) {
	var path, marker string
	switch t {
	case models.CheckoutBoost:
		path, marker = "/boosts", "boost"
	case models.CheckoutOnboarding:
		path, marker = "/onboarding", "onboarding"
	default:
		path, marker = "/venues", "venue"
	}
	base := c.appURL + path
	success := fmt.Sprintf("%s?%s=%s&%s=%s&%s=%s", base,
		MarkerCheckout, markerSuccess, MarkerSessionID, sessionPlaceholder, MarkerType, marker)
	cancel := fmt.Sprintf("%s?%s=%s&%s=%s", base, MarkerCheckout, markerCancel, MarkerType, marker)
	return success, cancel
}

// HandleReturn processes a URL the provider redirected to. A URL without
// markers is returned untouched with OutcomeNone. On a failed verification
// both a result, carrying the cleaned URL, and a *VerificationError are
// returned.
func (c *CheckoutCoordinator) HandleReturn(ctx context.Context, u *url.URL) (*ReturnResult, error) {
	q := u.Query()
	switch q.Get(MarkerCheckout) {
	case markerSuccess:
		typ := models.CheckoutType("")
		if q.Has(MarkerType) {
			typ = models.CheckoutTypeFromMarker(q.Get(MarkerType))
		}
		return c.verify(ctx, q.Get(MarkerSessionID), typ, CleanReturnURL(u))
	case markerCancel:
		return c.cancel(ctx, CleanReturnURL(u)), nil
	default:
		return &ReturnResult{Outcome: OutcomeNone, CleanURL: u.String()}, nil
	}
}

func (c *CheckoutCoordinator) cancel(ctx context.Context, clean string) *ReturnResult {
	dest := DestVenues
	state, err := c.repo.LoadState(ctx)
	if err != nil {
		c.logger.Warn(ctx, "failed to load checkout state", "error", err)
	}
	res := &ReturnResult{Outcome: OutcomeCancelled, CleanURL: clean}
	if state != nil {
		res.Type = state.Type
		if state.ReturnTo != "" {
			dest = state.ReturnTo
		}
	}
	res.Destination = dest

	if err := c.repo.DeleteState(ctx); err != nil {
		c.logger.Warn(ctx, "failed to drop checkout state", "error", err)
	}
	c.setPhase(models.PhaseNone)
	c.logger.Info(ctx, "checkout cancelled")
	return res
}

// ResumeAttempt verifies the provider session of an attempt that was cut
// short by a previous run.
func (c *CheckoutCoordinator) ResumeAttempt(ctx context.Context) (*ReturnResult, error) {
	attempt, err := c.PendingAttempt(ctx)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, ErrNoPendingAttempt
	}
	return c.verify(ctx, attempt.SessionID, attempt.Type, "")
}

// PendingAttempt returns the attempt record left by an interrupted
// verification, or nil.
func (c *CheckoutCoordinator) PendingAttempt(ctx context.Context) (*models.CheckoutAttempt, error) {
	return c.repo.LoadAttempt(ctx)
}

// claim marks sessionID as in flight. It fails when a verification is
// already running or the session was handled before, in memory or on disk.
func (c *CheckoutCoordinator) claim(ctx context.Context, sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return false
	}
	if _, ok := c.handled[sessionID]; ok {
		return false
	}
	handled, err := c.repo.Handled(ctx, sessionID)
	if err != nil {
		c.logger.Warn(ctx, "failed to read handled checkouts", "error", err)
	}
	if handled {
		c.handled[sessionID] = struct{}{}
		return false
	}
	c.active = true
	c.phase = models.PhaseVerifying
	return true
}

// release clears the guard. An attempt that never reached Finish is left
// unhandled so ResumeAttempt can pick it up.
func (c *CheckoutCoordinator) release(sessionID string, phase models.CheckoutPhase, finished bool) {
	c.mu.Lock()
	c.active = false
	if finished {
		c.handled[sessionID] = struct{}{}
	}
	c.phase = phase
	c.mu.Unlock()
}

func (c *CheckoutCoordinator) verify(ctx context.Context, sessionID string, typ models.CheckoutType, clean string) (*ReturnResult, error) {
	res := &ReturnResult{CleanURL: clean, Destination: DestCurrent}

	if sessionID == "" || sessionID == sessionPlaceholder {
		if err := c.repo.DeleteState(ctx); err != nil {
			c.logger.Warn(ctx, "failed to drop checkout state", "error", err)
		}
		c.setPhase(models.PhaseFailed)
		res.Outcome = OutcomeFailed
		return res, &VerificationError{Type: typ, Err: errors.New("return URL has no provider session id")}
	}

	if !c.claim(ctx, sessionID) {
		c.logger.Debug(ctx, "checkout return already handled", "session", sessionID)
		res.Outcome = OutcomeDuplicate
		return res, nil
	}
	phase, finished := models.PhaseFailed, false
	defer func() { c.release(sessionID, phase, finished) }()

	state, err := c.repo.LoadState(ctx)
	if err != nil {
		c.logger.Warn(ctx, "failed to load checkout state", "error", err)
	}
	if state != nil {
		typ = state.Type
	}
	if !typ.Valid() {
		typ = models.CheckoutAddVenue
	}
	res.Type = typ

	attempt := models.CheckoutAttempt{
		AttemptID: c.newAttemptID(),
		SessionID: sessionID,
		Type:      typ,
		StartedAt: c.now(),
	}
	res.AttemptID = attempt.AttemptID
	if err := c.repo.SaveAttempt(ctx, attempt); err != nil {
		c.logger.Warn(ctx, "failed to record checkout attempt", "error", err)
	}

	verr := c.callVerify(ctx, typ, sessionID, res)

	if err := c.repo.Finish(ctx, sessionID); err != nil {
		c.logger.Warn(ctx, "failed to close checkout attempt", "error", err)
	}
	finished = true
	metrics.RecordVerification(string(typ), verr == nil)

	if verr != nil {
		c.logger.Error(ctx, "checkout verification failed", "type", typ, "session", sessionID, "error", verr)
		res.Outcome = OutcomeFailed
		return res, &VerificationError{Type: typ, SessionID: sessionID, Err: verr}
	}
	phase = models.PhaseComplete

	if err := c.sessions.Reload(ctx); err != nil {
		c.logger.Warn(ctx, "failed to reload session after checkout", "error", err)
	}
	c.store.Refresh(ctx)

	c.logger.Info(ctx, "checkout verified", "type", typ, "session", sessionID)

	res.Outcome = OutcomeVerified
	switch typ {
	case models.CheckoutBoost:
		res.Destination = DestBoostConfirmation
	case models.CheckoutOnboarding:
		res.Destination = DestOnboardingComplete
	default:
		res.Destination = DestVenueAdded
	}
	return res, nil
}

func (c *CheckoutCoordinator) callVerify(ctx context.Context, typ models.CheckoutType, sessionID string, res *ReturnResult) error {
	if typ == models.CheckoutBoost {
		out, err := c.client.VerifyBoostPurchase(ctx, sessionID)
		if err != nil {
			return err
		}
		if !out.Success {
			return errNotConfirmed
		}
		res.Quantity, res.BoostsAvailable = out.Quantity, out.BoostsAvailable
		return nil
	}

	out, err := c.client.VerifyVenueCheckout(ctx, sessionID)
	if err != nil {
		return err
	}
	if !out.Success {
		return errNotConfirmed
	}
	res.Venue = out.Venue
	return nil
}

// CleanReturnURL drops the checkout markers from u and leaves everything
// else as it was.
func CleanReturnURL(u *url.URL) string {
	clean := *u
	q := clean.Query()
	q.Del(MarkerCheckout)
	q.Del(MarkerSessionID)
	q.Del(MarkerType)
	clean.RawQuery = q.Encode()
	return clean.String()
}
