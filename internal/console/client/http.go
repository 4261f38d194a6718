package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/matchdesk/internal/console/models"
	"github.com/dmitrijs2005/matchdesk/internal/metrics"
)

// DefaultTimeout bounds every request when the caller passes zero.
const DefaultTimeout = 15 * time.Second

// HTTPClient implements Client over the partner REST API. Credentials are
// carried as cookies set by the server.
type HTTPClient struct {
	baseURL    string
	base       *url.URL
	jar        *sessionJar
	httpClient *http.Client
}

// NewHTTPClient targets baseURL (e.g. "http://127.0.0.1:8080/api").
func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	trimmed := strings.TrimRight(baseURL, "/")
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse base url: unsupported scheme %q", u.Scheme)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	jar := newSessionJar()
	return &HTTPClient{
		baseURL:    trimmed,
		base:       u,
		jar:        jar,
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) Cookies() []*http.Cookie { return c.jar.Cookies(c.base) }

func (c *HTTPClient) SetCookies(cookies []*http.Cookie) { c.jar.SetCookies(c.base, cookies) }

func (c *HTTPClient) ClearCookies() { c.jar.reset() }

// --- health & auth ---

func (c *HTTPClient) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, "/health", http.MethodGet, "/health", nil, &resp); err != nil {
		return err
	}
	if !strings.EqualFold(resp.Status, "ok") {
		return fmt.Errorf("health: status %q: %w", resp.Status, ErrUnavailable)
	}
	return nil
}

type userEnvelope struct {
	User *models.User `json:"user"`
}

func (c *HTTPClient) userCall(ctx context.Context, method, path string, body any) (*models.User, error) {
	var resp userEnvelope
	if err := c.doJSON(ctx, path, method, path, body, &resp); err != nil {
		return nil, err
	}
	if err := resp.User.Validate(); err != nil {
		return nil, invalidResponse(path, err)
	}
	return resp.User, nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.User, error) {
	body := map[string]string{"email": email, "password": password}
	return c.userCall(ctx, http.MethodPost, "/auth/login", body)
}

func (c *HTTPClient) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	return c.userCall(ctx, http.MethodPost, "/auth/register", req)
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.doJSON(ctx, "/auth/logout", http.MethodPost, "/auth/logout", nil, nil)
}

func (c *HTTPClient) CurrentUser(ctx context.Context) (*models.User, error) {
	return c.userCall(ctx, http.MethodGet, "/users/me", nil)
}

// --- partner collections ---

func (c *HTTPClient) ListVenues(ctx context.Context) ([]models.Venue, error) {
	var resp struct {
		Venues *[]models.Venue `json:"venues"`
	}
	if err := c.doJSON(ctx, "/partners/venues", http.MethodGet, "/partners/venues", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Venues == nil {
		return nil, invalidResponse("/partners/venues", errors.New(`missing "venues"`))
	}
	return *resp.Venues, nil
}

func (c *HTTPClient) ListVenueMatches(ctx context.Context) ([]models.Match, error) {
	var resp struct {
		Matches *[]models.Match `json:"matches"`
	}
	const path = "/partners/venues/matches"
	if err := c.doJSON(ctx, path, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Matches == nil {
		return nil, invalidResponse(path, errors.New(`missing "matches"`))
	}
	return *resp.Matches, nil
}

func (c *HTTPClient) ListVenueClients(ctx context.Context, venueID string) ([]models.ReservationClient, error) {
	var resp struct {
		Clients *[]models.ReservationClient `json:"clients"`
	}
	path := "/partners/venues/" + url.PathEscape(venueID) + "/clients"
	if err := c.doJSON(ctx, "/partners/venues/{id}/clients", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Clients == nil {
		return nil, invalidResponse(path, errors.New(`missing "clients"`))
	}
	clients := *resp.Clients
	for i := range clients {
		if clients[i].VenueID == "" {
			clients[i].VenueID = venueID
		}
	}
	return clients, nil
}

func (c *HTTPClient) AnalyticsSummary(ctx context.Context) (*models.AnalyticsSummary, error) {
	var resp models.AnalyticsSummary
	const path = "/partners/analytics/summary"
	if err := c.doJSON(ctx, path, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) CustomerStats(ctx context.Context) (*models.CustomerStats, error) {
	var resp models.CustomerStats
	const path = "/partners/stats/customers"
	if err := c.doJSON(ctx, path, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- notifications & reservations ---

func (c *HTTPClient) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	var resp struct {
		Notifications *[]models.Notification `json:"notifications"`
	}
	if err := c.doJSON(ctx, "/notifications", http.MethodGet, "/notifications", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Notifications == nil {
		return nil, invalidResponse("/notifications", errors.New(`missing "notifications"`))
	}
	return *resp.Notifications, nil
}

func (c *HTTPClient) MarkAllNotificationsRead(ctx context.Context) error {
	const path = "/notifications/read-all"
	return c.doJSON(ctx, path, http.MethodPut, path, nil, nil)
}

func (c *HTTPClient) UpdateReservationStatus(ctx context.Context, reservationID string, status models.ReservationStatus) error {
	path := "/partners/reservations/" + url.PathEscape(reservationID) + "/status"
	body := map[string]string{"status": string(status)}
	return c.doJSON(ctx, "/partners/reservations/{id}/status", http.MethodPut, path, body, nil)
}

// --- checkout ---

func (c *HTTPClient) createCheckout(ctx context.Context, path string, body any) (*CheckoutSession, error) {
	var resp CheckoutSession
	if err := c.doJSON(ctx, path, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	if resp.URL == "" {
		return nil, invalidResponse(path, errors.New(`missing "url"`))
	}
	return &resp, nil
}

func (c *HTTPClient) CreateVenueCheckout(ctx context.Context, req *VenueCheckoutRequest) (*CheckoutSession, error) {
	return c.createCheckout(ctx, "/partners/venues/checkout", req)
}

func (c *HTTPClient) CreateBoostCheckout(ctx context.Context, req *BoostCheckoutRequest) (*CheckoutSession, error) {
	return c.createCheckout(ctx, "/boosts/purchase", req)
}

func (c *HTTPClient) VerifyVenueCheckout(ctx context.Context, sessionID string) (*VenueCheckoutResult, error) {
	var resp VenueCheckoutResult
	const path = "/partners/venues/verify-checkout"
	body := map[string]string{"session_id": sessionID}
	if err := c.doJSON(ctx, path, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) VerifyBoostPurchase(ctx context.Context, sessionID string) (*BoostPurchaseResult, error) {
	var resp BoostPurchaseResult
	const path = "/boosts/purchase/verify"
	body := map[string]string{"session_id": sessionID}
	if err := c.doJSON(ctx, path, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doJSON performs an HTTP request with an optional JSON body and decodes the
// JSON response into result. route is the templated path used as metric label.
// A nil result discards the body.
func (c *HTTPClient) doJSON(ctx context.Context, route, method, path string, body any, result any) error {
	start := time.Now()
	outcome := "ok"
	defer func() {
		metrics.ObserveGatewayRequest(route, outcome, time.Since(start))
	}()

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			outcome = "encode_error"
			return fmt.Errorf("%s: marshaling request body: %w", path, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		outcome = "encode_error"
		return fmt.Errorf("%s: creating request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "transport_error"
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome = "transport_error"
		return &TransportError{Op: method + " " + path, Err: err}
	}

	if resp.StatusCode >= 400 {
		outcome = fmt.Sprintf("http_%d", resp.StatusCode)
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			outcome = "invalid_response"
			return invalidResponse(path, err)
		}
	}

	return nil
}
