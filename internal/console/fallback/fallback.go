// Package fallback provides the bundled dataset the store shows while the
// remote API is unreachable or a demo session is active. Every record
// carries an owner tag so the store can show each user only their own
// records.
package fallback

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/matchdesk/internal/console/models"
)

// DemoOwnerID owns the records shown to the offline demo session.
const DemoOwnerID = "demo-user"

//go:embed dataset.json
var embedded []byte

type Dataset struct {
	// Anchor is the instant the timestamps were written relative to.
	Anchor        time.Time                  `json:"anchor"`
	Venues        []models.Venue             `json:"venues"`
	Matches       []models.Match             `json:"matches"`
	Clients       []models.ReservationClient `json:"clients"`
	Notifications []models.Notification      `json:"notifications"`
	Analytics     []models.AnalyticsSummary  `json:"analytics"`
	Customers     []models.CustomerStats     `json:"customers"`
}

// Loader produces a dataset.
type Loader interface {
	Load(ctx context.Context) (*Dataset, error)
}

// Parse decodes and rebases a dataset so its timestamps are relative to now.
func Parse(raw []byte, now time.Time) (*Dataset, error) {
	var d Dataset
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode fallback dataset: %w", err)
	}
	d.Rebase(now)
	return &d, nil
}

// Rebase shifts every timestamp by now-Anchor, keeping the dataset's
// "upcoming" and "last 30 days" records where they were authored.
func (d *Dataset) Rebase(now time.Time) {
	if d.Anchor.IsZero() {
		return
	}
	shift := now.Sub(d.Anchor)
	move := func(t time.Time) time.Time {
		if t.IsZero() {
			return t
		}
		return t.Add(shift)
	}
	for i := range d.Venues {
		d.Venues[i].CreatedAt = move(d.Venues[i].CreatedAt)
	}
	for i := range d.Matches {
		d.Matches[i].StartsAt = move(d.Matches[i].StartsAt)
	}
	for i := range d.Clients {
		d.Clients[i].CreatedAt = move(d.Clients[i].CreatedAt)
	}
	for i := range d.Notifications {
		d.Notifications[i].CreatedAt = move(d.Notifications[i].CreatedAt)
	}
	d.Anchor = now
}

// EmbeddedLoader serves the dataset compiled into the binary.
type EmbeddedLoader struct {
	Now func() time.Time
}

func (l EmbeddedLoader) Load(context.Context) (*Dataset, error) {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	return Parse(embedded, now())
}

// Embedded is a convenience for EmbeddedLoader{}.Load.
func Embedded() (*Dataset, error) {
	return EmbeddedLoader{}.Load(context.Background())
}
