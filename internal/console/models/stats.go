package models

import "time"

const statsWindow = 30 * 24 * time.Hour

// Stats are derived on the client from the freshest collections.
type Stats struct {
	TotalVenues         int
	TotalMatches        int
	UpcomingMatches     int
	Matches30d          int
	Reservations30d     int
	OccupancyRate       float64
	AverageFill         float64
	UnreadNotifications int
}

// ComputeStats derives dashboard figures. The 30-day window is (now-30d, now].
func ComputeStats(venues []Venue, matches []Match, clients []ReservationClient, notifications []Notification, now time.Time) Stats {
	s := Stats{TotalVenues: len(venues), TotalMatches: len(matches)}
	from := now.Add(-statsWindow)

	var reserved, capacity, fillSum float64
	var filled int
	for _, m := range matches {
		if m.StartsAt.After(now) {
			s.UpcomingMatches++
		} else if m.StartsAt.After(from) {
			s.Matches30d++
		}
		if m.Capacity > 0 {
			reserved += float64(m.Reserved)
			capacity += float64(m.Capacity)
			fillSum += m.Fill()
			filled++
		}
	}
	if capacity > 0 {
		s.OccupancyRate = reserved / capacity
	}
	if filled > 0 {
		s.AverageFill = fillSum / float64(filled)
	}

	for _, c := range clients {
		if c.CreatedAt.After(from) && !c.CreatedAt.After(now) {
			s.Reservations30d++
		}
	}
	for _, n := range notifications {
		if !n.Read {
			s.UnreadNotifications++
		}
	}
	return s
}
