package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/matchdesk/internal/console/client"
	"github.com/dmitrijs2005/matchdesk/internal/console/fallback"
	"github.com/dmitrijs2005/matchdesk/internal/console/models"
	"github.com/dmitrijs2005/matchdesk/internal/idgen"
	"github.com/dmitrijs2005/matchdesk/internal/logging"
	"github.com/dmitrijs2005/matchdesk/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	ResourceVenues        = "venues"
	ResourceMatches       = "matches"
	ResourceClients       = "clients"
	ResourceNotifications = "notifications"
	ResourceAnalytics     = "analytics"
	ResourceCustomers     = "customers"

	clientFetchLimit = 4
)

type RefreshMode string

const (
	RefreshRemote   RefreshMode = "remote"
	RefreshFallback RefreshMode = "fallback"
	RefreshSkipped  RefreshMode = "skipped"
)

// RefreshResult describes one refresh. Failed resources kept their previous
// contents.
type RefreshResult struct {
	Generation uint64
	Mode       RefreshMode
	Failures   []*PartialFetchError
	Degraded   bool
}

type sessionView interface {
	Current() *models.Session
}

// availabilityProber is implemented by session sources that can ask the
// health endpoint whether the API is back.
type availabilityProber interface {
	RecheckAvailability(ctx context.Context) models.Availability
}

// recheck probes once more after a transport failure so a single dropped
// request does not keep the console offline until the next login.
func recheck(ctx context.Context, sessions sessionView) {
	if p, ok := sessions.(availabilityProber); ok {
		p.RecheckAvailability(ctx)
	}
}

type readOptions struct {
	source *models.SourceKind
}

type ReadOption func(*readOptions)

// WithSource reads from the given source for one call instead of the one
// the collection currently uses.
func WithSource(kind models.SourceKind) ReadOption {
	return func(o *readOptions) { o.source = &kind }
}

// EntityStore caches every collection the console shows. A failed fetch
// never empties a collection: readers keep seeing the last good remote
// snapshot or the bundled dataset.
type EntityStore struct {
	client   client.Client
	sessions sessionView
	avail    *Availability
	logger   logging.Logger
	now      func() time.Time

	gen atomic.Uint64

	mu            sync.RWMutex
	venues        *collection[models.Venue]
	matches       *collection[models.Match]
	clients       *collection[models.ReservationClient]
	notifications *collection[models.Notification]
	analytics     *collection[models.AnalyticsSummary]
	customers     *collection[models.CustomerStats]
	stats         models.Stats
	statsOwner    string
	// floor is the generation of the last Reset; older refreshes are stale.
	floor uint64
}

func NewEntityStore(c client.Client, sessions sessionView, avail *Availability, dataset *fallback.Dataset, logger logging.Logger) *EntityStore {
	if dataset == nil {
		dataset = &fallback.Dataset{}
	}
	return &EntityStore{
		client:        c,
		sessions:      sessions,
		avail:         avail,
		logger:        logger.With("component", "store"),
		now:           time.Now,
		venues:        newCollection(dataset.Venues),
		matches:       newCollection(dataset.Matches),
		clients:       newCollection(dataset.Clients),
		notifications: newCollection(dataset.Notifications),
		analytics:     newCollection(dataset.Analytics),
		customers:     newCollection(dataset.Customers),
	}
}

// Refresh reloads every collection. It never fails as a whole; per-resource
// failures are reported in the result and logged.
func (s *EntityStore) Refresh(ctx context.Context) RefreshResult {
	gen := s.gen.Add(1)
	res := RefreshResult{Generation: gen}

	sess := s.sessions.Current()
	switch {
	case sess == nil:
		res.Mode = RefreshSkipped
	case sess.Demo:
		res.Mode = RefreshFallback
		s.mu.Lock()
		s.venues.useFallback()
		s.matches.useFallback()
		s.clients.useFallback()
		s.notifications.useFallback()
		s.analytics.useFallback()
		s.customers.useFallback()
		s.mu.Unlock()
	case s.avail.Offline():
		res.Mode = RefreshFallback
		s.logger.Debug(ctx, "offline, serving cached collections")
	default:
		res.Mode = RefreshRemote
		res.Failures = s.fetch(ctx, gen)
	}

	owner := ""
	if sess != nil {
		owner = sess.UserID
	}
	s.mu.Lock()
	if gen > s.floor {
		s.statsOwner = owner
		s.recomputeLocked()
	}
	s.mu.Unlock()

	res.Degraded = res.Mode == RefreshFallback || len(res.Failures) > 0
	metrics.RecordRefresh(string(res.Mode))
	return res
}

func (s *EntityStore) fetch(ctx context.Context, gen uint64) []*PartialFetchError {
	var (
		failMu   sync.Mutex
		failures []*PartialFetchError
	)
	fail := func(resource string, err error) {
		metrics.RecordFetchFailure(resource)
		s.logger.Warn(ctx, "fetch failed, keeping cached data", "resource", resource, "error", err)
		failMu.Lock()
		failures = append(failures, &PartialFetchError{Resource: resource, Err: err})
		failMu.Unlock()
	}

	var (
		freshVenues []models.Venue
		venuesOK    bool
		g           errgroup.Group
	)
	g.Go(func() error {
		items, err := s.client.ListVenues(ctx)
		if err != nil {
			fail(ResourceVenues, err)
			return nil
		}
		freshVenues, venuesOK = items, true
		s.mu.Lock()
		s.venues.setRemote(items, gen)
		s.mu.Unlock()
		return nil
	})
	g.Go(func() error {
		items, err := s.client.ListVenueMatches(ctx)
		if err != nil {
			fail(ResourceMatches, err)
			return nil
		}
		s.mu.Lock()
		s.matches.setRemote(items, gen)
		s.mu.Unlock()
		return nil
	})
	g.Go(func() error {
		items, err := s.client.ListNotifications(ctx)
		if err != nil {
			fail(ResourceNotifications, err)
			return nil
		}
		s.mu.Lock()
		s.notifications.setRemote(items, gen)
		s.mu.Unlock()
		return nil
	})
	g.Go(func() error {
		summary, err := s.client.AnalyticsSummary(ctx)
		if err != nil {
			fail(ResourceAnalytics, err)
			return nil
		}
		s.mu.Lock()
		s.analytics.setRemote([]models.AnalyticsSummary{*summary}, gen)
		s.mu.Unlock()
		return nil
	})
	g.Go(func() error {
		stats, err := s.client.CustomerStats(ctx)
		if err != nil {
			fail(ResourceCustomers, err)
			return nil
		}
		s.mu.Lock()
		s.customers.setRemote([]models.CustomerStats{*stats}, gen)
		s.mu.Unlock()
		return nil
	})
	_ = g.Wait()

	s.fetchClients(ctx, gen, freshVenues, venuesOK, fail)

	s.updateAvailability(ctx, failures)
	return failures
}

// fetchClients loads reservations venue by venue. A venue whose fetch fails
// keeps the clients it had.
func (s *EntityStore) fetchClients(ctx context.Context, gen uint64, fresh []models.Venue, venuesOK bool, fail func(string, error)) {
	s.mu.RLock()
	venues := fresh
	if !venuesOK {
		venues = s.venues.remote
	}
	previous := make(map[string][]models.ReservationClient)
	for _, c := range s.clients.remote {
		previous[c.VenueID] = append(previous[c.VenueID], c)
	}
	s.mu.RUnlock()

	results := make([][]models.ReservationClient, len(venues))
	fetched := make([]bool, len(venues))

	var g errgroup.Group
	g.SetLimit(clientFetchLimit)
	for i, v := range venues {
		g.Go(func() error {
			items, err := s.client.ListVenueClients(ctx, v.RemoteID)
			if err != nil {
				fail(ResourceClients+"/"+v.RemoteID, err)
				return nil
			}
			results[i], fetched[i] = items, true
			return nil
		})
	}
	_ = g.Wait()

	apply := venuesOK && len(venues) == 0
	var merged []models.ReservationClient
	for i, v := range venues {
		if fetched[i] {
			merged = append(merged, results[i]...)
			apply = true
			continue
		}
		merged = append(merged, previous[v.RemoteID]...)
	}
	if !apply {
		return
	}

	s.mu.Lock()
	s.clients.setRemote(merged, gen)
	s.mu.Unlock()
}

func (s *EntityStore) updateAvailability(ctx context.Context, failures []*PartialFetchError) {
	for _, f := range failures {
		if errors.Is(f.Err, client.ErrUnavailable) {
			s.avail.Set(ctx, models.AvailabilityOffline)
			recheck(ctx, s.sessions)
			return
		}
	}
	if len(failures) == 0 {
		s.avail.Set(ctx, models.AvailabilityOnline)
	}
}

func (s *EntityStore) recomputeLocked() {
	owner := s.statsOwner
	s.stats = models.ComputeStats(
		s.venues.view(owner, s.venues.source),
		s.matches.view(owner, s.matches.source),
		s.clients.view(owner, s.clients.source),
		s.notifications.view(owner, s.notifications.source),
		s.now(),
	)
}

func read[T models.Record[T]](s *EntityStore, c *collection[T], owner string, opts []ReadOption) []T {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := c.source
	if o.source != nil {
		src = c.sourceFor(*o.source)
	}
	return c.view(owner, src)
}

func (s *EntityStore) Venues(owner string, opts ...ReadOption) []models.Venue {
	return read(s, s.venues, owner, opts)
}

func (s *EntityStore) Matches(owner string, opts ...ReadOption) []models.Match {
	return read(s, s.matches, owner, opts)
}

func (s *EntityStore) Clients(owner string, opts ...ReadOption) []models.ReservationClient {
	return read(s, s.clients, owner, opts)
}

func (s *EntityStore) Notifications(owner string, opts ...ReadOption) []models.Notification {
	return read(s, s.notifications, owner, opts)
}

func (s *EntityStore) Analytics(owner string, opts ...ReadOption) (models.AnalyticsSummary, bool) {
	items := read(s, s.analytics, owner, opts)
	if len(items) == 0 {
		return models.AnalyticsSummary{}, false
	}
	return items[0], true
}

func (s *EntityStore) Customers(owner string, opts ...ReadOption) (models.CustomerStats, bool) {
	items := read(s, s.customers, owner, opts)
	if len(items) == 0 {
		return models.CustomerStats{}, false
	}
	return items[0], true
}

// Stats returns the figures derived during the last refresh or local change.
func (s *EntityStore) Stats() models.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Sources reports which source each collection currently serves.
func (s *EntityStore) Sources() map[string]models.SourceKind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]models.SourceKind{
		ResourceVenues:        s.venues.source.Kind(),
		ResourceMatches:       s.matches.source.Kind(),
		ResourceClients:       s.clients.source.Kind(),
		ResourceNotifications: s.notifications.source.Kind(),
		ResourceAnalytics:     s.analytics.source.Kind(),
		ResourceCustomers:     s.customers.source.Kind(),
	}
}

func (s *EntityStore) VenueByLocalID(owner string, id int) (models.Venue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.venues.find(owner, s.venues.source, id)
}

func (s *EntityStore) MatchByLocalID(owner string, id int) (models.Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matches.find(owner, s.matches.source, id)
}

func (s *EntityStore) NotificationByLocalID(owner string, id int) (models.Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notifications.find(owner, s.notifications.source, id)
}

// AddVenue records a venue that exists only on this client.
func (s *EntityStore) AddVenue(owner string, v models.Venue) (models.Venue, error) {
	id, err := idgen.NewLocalID()
	if err != nil {
		return models.Venue{}, err
	}
	v.RemoteID, v.OwnerID = id, owner
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v = s.venues.add(v)
	s.recomputeLocked()
	return v, nil
}

func (s *EntityStore) UpdateVenue(id int, fn func(models.Venue) models.Venue) (models.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.venues.update(id, fn)
	if err != nil {
		return models.Venue{}, err
	}
	s.recomputeLocked()
	return v, nil
}

func (s *EntityStore) DeleteVenue(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.venues.remove(id); err != nil {
		return err
	}
	s.recomputeLocked()
	return nil
}

// AddMatch records a match that exists only on this client.
func (s *EntityStore) AddMatch(owner string, m models.Match) (models.Match, error) {
	id, err := idgen.NewLocalID()
	if err != nil {
		return models.Match{}, err
	}
	m.RemoteID, m.OwnerID = id, owner

	s.mu.Lock()
	defer s.mu.Unlock()
	m = s.matches.add(m)
	s.recomputeLocked()
	return m, nil
}

func (s *EntityStore) UpdateMatch(id int, fn func(models.Match) models.Match) (models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.matches.update(id, fn)
	if err != nil {
		return models.Match{}, err
	}
	s.recomputeLocked()
	return m, nil
}

func (s *EntityStore) DeleteMatch(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.matches.remove(id); err != nil {
		return err
	}
	s.recomputeLocked()
	return nil
}

// SetReservationStatus changes the cached status of a reservation and
// reports how many records changed.
func (s *EntityStore) SetReservationStatus(reservationID string, status models.ReservationStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients.replace(func(c models.ReservationClient) (models.ReservationClient, bool) {
		if c.ReservationID != reservationID || c.Status == status {
			return c, false
		}
		c.Status = status
		return c, true
	})
}

func (s *EntityStore) MarkNotificationRead(notificationID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.notifications.replace(func(n models.Notification) (models.Notification, bool) {
		if n.RemoteID != notificationID || n.Read {
			return n, false
		}
		n.Read = true
		return n, true
	})
	s.recomputeLocked()
	return n
}

// MarkAllNotificationsRead marks every notification of owner as read.
// Remote records without an owner tag belong to the signed-in user.
func (s *EntityStore) MarkAllNotificationsRead(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.notifications.replace(func(n models.Notification) (models.Notification, bool) {
		if n.Read || (n.OwnerID != owner && n.OwnerID != "") {
			return n, false
		}
		n.Read = true
		return n, true
	})
	s.recomputeLocked()
	return n
}

// Reset forgets remote snapshots and local records, e.g. on logout. Results
// of refreshes still in flight are discarded when they land.
func (s *EntityStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	floor := s.gen.Add(1)
	s.floor = floor
	s.venues.reset(floor)
	s.matches.reset(floor)
	s.clients.reset(floor)
	s.notifications.reset(floor)
	s.analytics.reset(floor)
	s.customers.reset(floor)
	s.statsOwner = ""
	s.stats = models.Stats{}
}
