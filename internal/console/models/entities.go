package models

import "time"

// Record is implemented by every cached entity. LocalID is the ordinal the
// console uses to address a record; it is assigned by the store, never by
// the API.
type Record[T any] interface {
	Key() string
	Owner() string
	WithLocalID(id int) T
}

type Venue struct {
	RemoteID           string    `json:"id"`
	LocalID            int       `json:"-"`
	OwnerID            string    `json:"owner_id"`
	Name               string    `json:"name"`
	Address            string    `json:"address"`
	City               string    `json:"city"`
	Capacity           int       `json:"capacity"`
	SubscriptionStatus string    `json:"subscription_status"`
	CreatedAt          time.Time `json:"created_at"`
}

func (v Venue) Key() string   { return v.RemoteID }
func (v Venue) Owner() string { return v.OwnerID }
func (v Venue) WithLocalID(id int) Venue {
	v.LocalID = id
	return v
}

// Match is a broadcast scheduled at a venue.
type Match struct {
	RemoteID    string    `json:"id"`
	LocalID     int       `json:"-"`
	OwnerID     string    `json:"owner_id"`
	VenueID     string    `json:"venue_id"`
	Title       string    `json:"title"`
	Competition string    `json:"competition"`
	StartsAt    time.Time `json:"starts_at"`
	Capacity    int       `json:"capacity"`
	Reserved    int       `json:"reserved"`
	Boosted     bool      `json:"boosted"`
}

func (m Match) Key() string   { return m.RemoteID }
func (m Match) Owner() string { return m.OwnerID }
func (m Match) WithLocalID(id int) Match {
	m.LocalID = id
	return m
}

// Fill is the share of seats already reserved, in [0, 1].
func (m Match) Fill() float64 {
	if m.Capacity <= 0 {
		return 0
	}
	f := float64(m.Reserved) / float64(m.Capacity)
	if f > 1 {
		return 1
	}
	return f
}

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationDeclined  ReservationStatus = "declined"
)

// ReservationClient is a customer holding a reservation at one of the venues.
type ReservationClient struct {
	RemoteID      string            `json:"id"`
	LocalID       int               `json:"-"`
	OwnerID       string            `json:"owner_id"`
	ReservationID string            `json:"reservation_id"`
	VenueID       string            `json:"venue_id"`
	MatchID       string            `json:"match_id"`
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	PartySize     int               `json:"party_size"`
	Status        ReservationStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}

func (c ReservationClient) Key() string   { return c.RemoteID }
func (c ReservationClient) Owner() string { return c.OwnerID }
func (c ReservationClient) WithLocalID(id int) ReservationClient {
	c.LocalID = id
	return c
}

type Notification struct {
	RemoteID      string    `json:"id"`
	LocalID       int       `json:"-"`
	OwnerID       string    `json:"user_id"`
	Kind          string    `json:"type"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	ReservationID string    `json:"reservation_id,omitempty"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"created_at"`
}

func (n Notification) Key() string   { return n.RemoteID }
func (n Notification) Owner() string { return n.OwnerID }
func (n Notification) WithLocalID(id int) Notification {
	n.LocalID = id
	return n
}

// AnalyticsSummary is the payload of /partners/analytics/summary.
type AnalyticsSummary struct {
	OwnerID         string  `json:"owner_id,omitempty"`
	ProfileViews    int     `json:"profile_views"`
	Reservations    int     `json:"reservations"`
	UpcomingMatches int     `json:"upcoming_matches"`
	BoostsAvailable int     `json:"boosts_available"`
	AverageRating   float64 `json:"average_rating"`
}

func (a AnalyticsSummary) Key() string   { return "analytics" }
func (a AnalyticsSummary) Owner() string { return a.OwnerID }
func (a AnalyticsSummary) WithLocalID(int) AnalyticsSummary {
	return a
}

// CustomerStats is the payload of /partners/stats/customers.
type CustomerStats struct {
	OwnerID            string  `json:"owner_id,omitempty"`
	TotalCustomers     int     `json:"total_customers"`
	ReturningCustomers int     `json:"returning_customers"`
	NewCustomers30d    int     `json:"new_customers_30d"`
	AveragePartySize   float64 `json:"average_party_size"`
}

func (c CustomerStats) Key() string   { return "customers" }
func (c CustomerStats) Owner() string { return c.OwnerID }
func (c CustomerStats) WithLocalID(int) CustomerStats {
	return c
}
