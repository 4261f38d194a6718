package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/matchdesk/internal/console/client"
	"github.com/dmitrijs2005/matchdesk/internal/console/models"
	"github.com/dmitrijs2005/matchdesk/internal/logging"
	"github.com/dmitrijs2005/matchdesk/internal/metrics"
)

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

func (d Decision) status() (models.ReservationStatus, error) {
	switch d {
	case DecisionAccept:
		return models.ReservationConfirmed, nil
	case DecisionReject:
		return models.ReservationDeclined, nil
	}
	return "", fmt.Errorf("unknown decision %q", d)
}

type ToastLevel string

const (
	ToastInfo  ToastLevel = "info"
	ToastError ToastLevel = "error"
)

// Toast is a short, non-blocking message for the user.
type Toast struct {
	Level   ToastLevel
	Message string
}

type Notifier interface {
	Notify(ctx context.Context, t Toast)
}

const remoteActionTimeout = 10 * time.Second

// NotificationRouter applies reservation decisions taken from
// notifications. The cache is updated first; the API call follows in the
// background and only reports failures.
type NotificationRouter struct {
	client   client.Client
	store    *EntityStore
	sessions sessionView
	notifier Notifier
	logger   logging.Logger

	wg sync.WaitGroup
}

func NewNotificationRouter(c client.Client, store *EntityStore, sessions sessionView, notifier Notifier, logger logging.Logger) *NotificationRouter {
	return &NotificationRouter{
		client:   c,
		store:    store,
		sessions: sessions,
		notifier: notifier,
		logger:   logger.With("component", "notifications"),
	}
}

// Act confirms or declines reservationID and marks notificationID read.
// It returns once the cache reflects the decision.
func (r *NotificationRouter) Act(ctx context.Context, notificationID, reservationID string, d Decision) error {
	status, err := d.status()
	if err != nil {
		return err
	}
	if reservationID == "" {
		return ErrNoReservation
	}

	r.store.SetReservationStatus(reservationID, status)
	r.store.MarkNotificationRead(notificationID)

	sess := r.sessions.Current()
	if sess == nil || sess.Demo {
		return nil
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), remoteActionTimeout)
		defer cancel()

		err := r.client.UpdateReservationStatus(ctx, reservationID, status)
		metrics.RecordNotificationAction(string(d), err == nil)
		if err != nil {
			r.logger.Warn(ctx, "reservation update failed", "reservation", reservationID, "status", status, "error", err)
			r.notifier.Notify(ctx, Toast{
				Level:   ToastError,
				Message: fmt.Sprintf("Could not %s reservation %s: %v", d, reservationID, err),
			})
			if errors.Is(err, client.ErrUnavailable) {
				recheck(ctx, r.sessions)
			}
		}
	}()
	return nil
}

// ActByOrdinal resolves a notification by its console ordinal and acts on
// the reservation it refers to.
func (r *NotificationRouter) ActByOrdinal(ctx context.Context, ordinal int, d Decision) (models.Notification, error) {
	sess := r.sessions.Current()
	if sess == nil {
		return models.Notification{}, ErrNotSignedIn
	}
	n, ok := r.store.NotificationByLocalID(sess.UserID, ordinal)
	if !ok {
		return models.Notification{}, ErrNotFound
	}
	if n.ReservationID == "" {
		return n, ErrNoReservation
	}
	return n, r.Act(ctx, n.RemoteID, n.ReservationID, d)
}

// MarkAllRead asks the API to mark every notification read, then marks the
// cache read whatever the API answered.
func (r *NotificationRouter) MarkAllRead(ctx context.Context, userID string) int {
	sess := r.sessions.Current()
	if sess != nil && !sess.Demo {
		if err := r.client.MarkAllNotificationsRead(ctx); err != nil {
			r.logger.Warn(ctx, "mark all read failed, updating cache only", "error", err)
		}
	}
	return r.store.MarkAllNotificationsRead(userID)
}

// Wait blocks until background API calls have finished.
func (r *NotificationRouter) Wait() {
	r.wg.Wait()
}
