// Package client is the typed boundary to the venue partner API. Every
// method returns either a schema-valid payload or an error matching one of
// ErrUnavailable, ErrUnauthorized, ErrInvalidResponse or an *APIError.
package client

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/matchdesk/internal/console/models"
)

type Client interface {
	Health(ctx context.Context) error

	Login(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, req *RegisterRequest) (*models.User, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.User, error)

	ListVenues(ctx context.Context) ([]models.Venue, error)
	ListVenueMatches(ctx context.Context) ([]models.Match, error)
	ListVenueClients(ctx context.Context, venueID string) ([]models.ReservationClient, error)
	AnalyticsSummary(ctx context.Context) (*models.AnalyticsSummary, error)
	CustomerStats(ctx context.Context) (*models.CustomerStats, error)

	ListNotifications(ctx context.Context) ([]models.Notification, error)
	MarkAllNotificationsRead(ctx context.Context) error
	UpdateReservationStatus(ctx context.Context, reservationID string, status models.ReservationStatus) error

	CreateVenueCheckout(ctx context.Context, req *VenueCheckoutRequest) (*CheckoutSession, error)
	CreateBoostCheckout(ctx context.Context, req *BoostCheckoutRequest) (*CheckoutSession, error)
	VerifyVenueCheckout(ctx context.Context, sessionID string) (*VenueCheckoutResult, error)
	VerifyBoostPurchase(ctx context.Context, sessionID string) (*BoostPurchaseResult, error)

	// Cookies returns the credential cookies currently held for the API.
	Cookies() []*http.Cookie
	// SetCookies installs previously persisted credential cookies.
	SetCookies(cookies []*http.Cookie)
	// ClearCookies drops every credential.
	ClearCookies()

	Close() error
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type VenueCheckoutRequest struct {
	VenueName  string `json:"venue_name"`
	Plan       string `json:"plan,omitempty"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

type BoostCheckoutRequest struct {
	Quantity   int    `json:"quantity"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

// CheckoutSession is the provider page the user must be sent to.
type CheckoutSession struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

type VenueCheckoutResult struct {
	Success bool          `json:"success"`
	Venue   *models.Venue `json:"venue,omitempty"`
}

type BoostPurchaseResult struct {
	Success         bool `json:"success"`
	Quantity        int  `json:"quantity"`
	BoostsAvailable int  `json:"boosts_available"`
}
