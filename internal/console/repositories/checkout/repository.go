// Package checkout persists the state that must survive a redirect to the
// payment provider: the pending CheckoutState, the in-flight verification
// attempt and every provider session that was already handled.
package checkout

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/matchdesk/internal/console/models"
	"github.com/dmitrijs2005/matchdesk/internal/console/repositories/metadata"
	"github.com/dmitrijs2005/matchdesk/internal/dbx"
)

const (
	KeyState   = "checkout.state"
	KeyAttempt = "checkout.attempt"
	KeyHandled = "checkout.handled"
)

// HandledRetention is how long a handled provider session is remembered.
// Provider sessions expire long before that.
const HandledRetention = 30 * 24 * time.Hour

type Repository struct {
	db        *sql.DB
	ttl       time.Duration
	retention time.Duration
	now       func() time.Time
}

// NewRepository returns a repository whose saved state expires after ttl.
// A zero ttl keeps state until it is deleted. Handled sessions are kept for
// HandledRetention regardless of ttl.
func NewRepository(db *sql.DB, ttl time.Duration) *Repository {
	return &Repository{db: db, ttl: ttl, retention: HandledRetention, now: time.Now}
}

func (r *Repository) meta() metadata.Repository {
	return metadata.NewSQLiteRepository(r.db)
}

// SaveState overwrites any previously saved checkout.
func (r *Repository) SaveState(ctx context.Context, s models.CheckoutState) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now()
	}
	return r.put(ctx, r.meta(), KeyState, s)
}

// LoadState returns the saved checkout, or nil when there is none. Expired
// or unreadable records are removed and reported as absent.
func (r *Repository) LoadState(ctx context.Context) (*models.CheckoutState, error) {
	var s models.CheckoutState
	ok, err := r.get(ctx, KeyState, &s)
	if err != nil || !ok {
		return nil, err
	}
	if !s.Type.Valid() || s.Expired(r.now(), r.ttl) {
		return nil, r.meta().Delete(ctx, KeyState)
	}
	return &s, nil
}

func (r *Repository) DeleteState(ctx context.Context) error {
	return r.meta().Delete(ctx, KeyState)
}

func (r *Repository) SaveAttempt(ctx context.Context, a models.CheckoutAttempt) error {
	return r.put(ctx, r.meta(), KeyAttempt, a)
}

// LoadAttempt returns the unfinished verification attempt, if any.
func (r *Repository) LoadAttempt(ctx context.Context) (*models.CheckoutAttempt, error) {
	var a models.CheckoutAttempt
	ok, err := r.get(ctx, KeyAttempt, &a)
	if err != nil || !ok {
		return nil, err
	}
	return &a, nil
}

// Handled reports whether a verification for sessionID already ran to
// completion, successfully or not.
func (r *Repository) Handled(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	set, err := r.handled(ctx, r.meta())
	if err != nil {
		return false, err
	}
	_, ok := set[sessionID]
	return ok, nil
}

// Finish closes a verification attempt in one transaction: the attempt and
// the checkout state are removed and sessionID is added to the handled set.
// Entries older than the retention are pruned on the way.
func (r *Repository) Finish(ctx context.Context, sessionID string) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, KeyAttempt, KeyState); err != nil {
			return err
		}
		if sessionID == "" {
			return nil
		}

		set, err := r.handled(ctx, repo)
		if err != nil {
			// an unreadable set is rebuilt from this session on
			set = make(map[string]time.Time)
		}
		now := r.now()
		for id, at := range set {
			if now.Sub(at) > r.retention {
				delete(set, id)
			}
		}
		set[sessionID] = now
		return r.put(ctx, repo, KeyHandled, set)
	})
}

func (r *Repository) handled(ctx context.Context, repo metadata.Repository) (map[string]time.Time, error) {
	raw, err := repo.Get(ctx, KeyHandled)
	if err != nil {
		return nil, err
	}
	set := make(map[string]time.Time)
	if raw == nil {
		return set, nil
	}
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyHandled, err)
	}
	return set, nil
}

func (r *Repository) put(ctx context.Context, repo metadata.Repository, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return repo.Set(ctx, key, raw)
}

func (r *Repository) get(ctx context.Context, key string, v any) (bool, error) {
	raw, err := r.meta().Get(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, r.meta().Delete(ctx, key)
	}
	return true, nil
}
