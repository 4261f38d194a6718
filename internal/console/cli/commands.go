package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/matchdesk/internal/console/models"
	"github.com/dmitrijs2005/matchdesk/internal/console/services"
	"github.com/dmitrijs2005/matchdesk/internal/idgen"
	"github.com/dustin/go-humanize"
)

func (a *App) owner() string {
	if s := a.sessions.Current(); s != nil {
		return s.UserID
	}
	return ""
}

func (a *App) Health(ctx context.Context) error {
	fmt.Fprintf(a.out, "API is %s\n", a.sessions.ProbeHealth(ctx))
	return nil
}

func (a *App) Status(ctx context.Context) error {
	fmt.Fprintf(a.out, "Connection: %s\n", a.avail.Get())
	if s := a.sessions.Current(); s != nil {
		kind := "account"
		if s.Demo {
			kind = "offline demo account"
		}
		fmt.Fprintf(a.out, "Signed in: %s <%s> (%s)\n", displayName(s), s.Email, kind)
		fmt.Fprintf(a.out, "Onboarding: %s\n", s.OnboardingStep)
	} else {
		fmt.Fprintln(a.out, "Signed in: no")
	}
	fmt.Fprintf(a.out, "Checkout: %s\n", a.checkout.Phase())

	sources := a.store.Sources()
	for _, resource := range slices.Sorted(maps.Keys(sources)) {
		fmt.Fprintf(a.out, "  %-14s %s\n", resource, sources[resource])
	}
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	a.printRefresh(a.store.Refresh(ctx))
	return nil
}

func (a *App) printRefresh(res services.RefreshResult) {
	switch {
	case res.Mode == services.RefreshFallback:
		fmt.Fprintln(a.out, "Offline: showing the last known data")
	case len(res.Failures) > 0:
		names := make([]string, 0, len(res.Failures))
		for _, f := range res.Failures {
			names = append(names, f.Resource)
		}
		fmt.Fprintf(a.out, "Could not refresh %s; showing the last known data\n", strings.Join(names, ", "))
	}
}

// List prints one collection. "fallback" as the first argument shows the
// bundled dataset instead of the live one.
func (a *App) List(_ context.Context, resource string, args []string) error {
	var opts []services.ReadOption
	if len(args) > 0 && args[0] == "fallback" {
		opts = append(opts, services.WithSource(models.SourceFallback))
	}
	owner := a.owner()

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	switch resource {
	case "venues":
		fmt.Fprintln(w, "#\tNAME\tCITY\tCAPACITY\tSUBSCRIPTION\t")
		for _, v := range a.store.Venues(owner, opts...) {
			status := v.SubscriptionStatus
			if idgen.IsLocal(v.RemoteID) {
				status = "local only"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t\n", v.LocalID, v.Name, v.City, v.Capacity, status)
		}
	case "matches":
		fmt.Fprintln(w, "#\tTITLE\tCOMPETITION\tSTARTS\tFILL\tBOOSTED\t")
		for _, m := range a.store.Matches(owner, opts...) {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.0f%%\t%t\t\n",
				m.LocalID, m.Title, m.Competition, humanize.Time(m.StartsAt), m.Fill()*100, m.Boosted)
		}
	case "clients":
		fmt.Fprintln(w, "#\tNAME\tPARTY\tSTATUS\tBOOKED\t")
		for _, c := range a.store.Clients(owner, opts...) {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t\n", c.LocalID, c.Name, c.PartySize, c.Status, humanize.Time(c.CreatedAt))
		}
	case "notifications":
		fmt.Fprintln(w, "#\t\tTITLE\tMESSAGE\tWHEN\t")
		for _, n := range a.store.Notifications(owner, opts...) {
			unread := ""
			if !n.Read {
				unread = "*"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t\n", n.LocalID, unread, n.Title, n.Message, humanize.Time(n.CreatedAt))
		}
	default:
		return fmt.Errorf("unknown collection %q", resource)
	}
	return nil
}

func (a *App) Stats(context.Context) error {
	st := a.store.Stats()
	fmt.Fprintf(a.out, "Venues:               %d\n", st.TotalVenues)
	fmt.Fprintf(a.out, "Matches:              %d (%d upcoming, %d in the last 30 days)\n",
		st.TotalMatches, st.UpcomingMatches, st.Matches30d)
	fmt.Fprintf(a.out, "Reservations (30d):   %d\n", st.Reservations30d)
	fmt.Fprintf(a.out, "Occupancy:            %.0f%%\n", st.OccupancyRate*100)
	fmt.Fprintf(a.out, "Average fill:         %.0f%%\n", st.AverageFill*100)
	fmt.Fprintf(a.out, "Unread notifications: %d\n", st.UnreadNotifications)

	owner := a.owner()
	if an, ok := a.store.Analytics(owner); ok {
		fmt.Fprintf(a.out, "Profile views:        %s\n", humanize.Comma(int64(an.ProfileViews)))
		fmt.Fprintf(a.out, "Boosts available:     %d\n", an.BoostsAvailable)
	}
	if cs, ok := a.store.Customers(owner); ok {
		fmt.Fprintf(a.out, "Customers:            %d (%d returning)\n", cs.TotalCustomers, cs.ReturningCustomers)
	}
	return nil
}

func parseOrdinal(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("usage: accept|reject <notification #>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid notification number %q", args[0])
	}
	return n, nil
}

// Decide accepts or rejects the reservation behind a notification.
func (a *App) Decide(ctx context.Context, args []string, d services.Decision) error {
	ordinal, err := parseOrdinal(args)
	if err != nil {
		return err
	}
	n, err := a.router.ActByOrdinal(ctx, ordinal, d)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return fmt.Errorf("no notification #%d", ordinal)
		}
		return err
	}
	verb := "confirmed"
	if d == services.DecisionReject {
		verb = "declined"
	}
	fmt.Fprintf(a.out, "Reservation %s %s\n", n.ReservationID, verb)
	return nil
}

func (a *App) ReadAll(ctx context.Context) error {
	n := a.router.MarkAllRead(ctx, a.owner())
	fmt.Fprintf(a.out, "Marked %d notification(s) as read\n", n)
	return nil
}

// AddVenue records a venue locally. It reaches the API only through a paid
// subscription (see Checkout).
func (a *App) AddVenue(context.Context) error {
	name, err := getSimpleText(a.reader, "Venue name", a.out)
	if err != nil {
		return err
	}
	if name == "" {
		return errors.New("venue name is required")
	}
	city, err := getSimpleText(a.reader, "City", a.out)
	if err != nil {
		return err
	}
	capText, err := getSimpleText(a.reader, "Capacity", a.out)
	if err != nil {
		return err
	}
	capacity, err := strconv.Atoi(capText)
	if err != nil || capacity < 0 {
		return fmt.Errorf("invalid capacity %q", capText)
	}

	v, err := a.store.AddVenue(a.owner(), models.Venue{Name: name, City: city, Capacity: capacity})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added venue #%d (local only)\n", v.LocalID)
	return nil
}

// Checkout starts a purchase and prints the provider URL.
func (a *App) Checkout(ctx context.Context, t models.CheckoutType, args []string) error {
	if s := a.sessions.Current(); s != nil && s.Demo {
		return errors.New("checkout is not available for the demo account")
	}
	if a.avail.Offline() {
		return errors.New("checkout needs a connection")
	}

	req := services.BeginRequest{Type: t}
	switch t {
	case models.CheckoutBoost:
		if len(args) == 0 {
			return errors.New("usage: boost <quantity>")
		}
		q, err := strconv.Atoi(args[0])
		if err != nil || q <= 0 {
			return fmt.Errorf("invalid quantity %q", args[0])
		}
		req.Quantity, req.ReturnTo = q, "boosts"
	case models.CheckoutOnboarding:
		req.VenueName, req.ReturnTo = strings.Join(args, " "), "onboarding"
	default:
		req.VenueName, req.ReturnTo = strings.Join(args, " "), services.DestVenues
	}

	redirect, err := a.checkout.Begin(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Complete the payment at:\n  %s\nThen paste the address you are sent back to: return <url>\n", redirect)
	return nil
}

// Return handles an address the payment provider redirected to.
func (a *App) Return(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: return <url>")
	}
	u, err := url.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	res, err := a.checkout.HandleReturn(ctx, u)
	return a.printReturn(res, err)
}

// Resume verifies a checkout whose verification was interrupted.
func (a *App) Resume(ctx context.Context) error {
	res, err := a.checkout.ResumeAttempt(ctx)
	if errors.Is(err, services.ErrNoPendingAttempt) {
		fmt.Fprintln(a.out, "Nothing to resume")
		return nil
	}
	return a.printReturn(res, err)
}

func (a *App) printReturn(res *services.ReturnResult, err error) error {
	if err != nil {
		var verr *services.VerificationError
		if errors.As(err, &verr) {
			return fmt.Errorf("payment could not be verified: %w", verr.Err)
		}
		return err
	}

	switch res.Outcome {
	case services.OutcomeNone:
		fmt.Fprintln(a.out, "No checkout information in that address")
	case services.OutcomeCancelled:
		fmt.Fprintf(a.out, "Checkout cancelled, back to %s\n", res.Destination)
	case services.OutcomeDuplicate:
		fmt.Fprintln(a.out, "That checkout was already handled")
	case services.OutcomeVerified:
		switch res.Destination {
		case services.DestBoostConfirmation:
			fmt.Fprintf(a.out, "Boost purchase confirmed: %d added, %d available\n", res.Quantity, res.BoostsAvailable)
		case services.DestOnboardingComplete:
			fmt.Fprintln(a.out, "Payment confirmed, onboarding complete")
		default:
			if res.Venue != nil {
				fmt.Fprintf(a.out, "Payment confirmed, %s is live\n", res.Venue.Name)
			} else {
				fmt.Fprintln(a.out, "Payment confirmed, venue added")
			}
		}
	}
	if res.CleanURL != "" && (res.Outcome == services.OutcomeCancelled || res.Outcome == services.OutcomeVerified) {
		fmt.Fprintf(a.out, "Address: %s\n", res.CleanURL)
	}
	return nil
}
