package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAvailability_OnlyOneStateActive(t *testing.T) {
	SetAvailability("offline")

	assert.Equal(t, 1.0, testutil.ToFloat64(availability.WithLabelValues("offline")))
	assert.Equal(t, 0.0, testutil.ToFloat64(availability.WithLabelValues("online")))
	assert.Equal(t, 0.0, testutil.ToFloat64(availability.WithLabelValues("checking")))

	SetAvailability("online")
	assert.Equal(t, 0.0, testutil.ToFloat64(availability.WithLabelValues("offline")))
	assert.Equal(t, 1.0, testutil.ToFloat64(availability.WithLabelValues("online")))
}

func TestObserveGatewayRequest_Counts(t *testing.T) {
	c := gatewayRequests.WithLabelValues("/health", "ok")
	before := testutil.ToFloat64(c)

	ObserveGatewayRequest("/health", "ok", 12*time.Millisecond)
	ObserveGatewayRequest("/health", "ok", 0)

	assert.Equal(t, before+2, testutil.ToFloat64(c))
}

func TestRecorders_Increment(t *testing.T) {
	ff := fetchFailures.WithLabelValues("matches")
	v := verifications.WithLabelValues("boost-purchase", "failure")
	n := notificationActions.WithLabelValues("accept", "success")
	r := refreshes.WithLabelValues("remote")

	f0, v0, n0, r0 := testutil.ToFloat64(ff), testutil.ToFloat64(v), testutil.ToFloat64(n), testutil.ToFloat64(r)

	RecordFetchFailure("matches")
	RecordVerification("boost-purchase", false)
	RecordNotificationAction("accept", true)
	RecordRefresh("remote")

	assert.Equal(t, f0+1, testutil.ToFloat64(ff))
	assert.Equal(t, v0+1, testutil.ToFloat64(v))
	assert.Equal(t, n0+1, testutil.ToFloat64(n))
	assert.Equal(t, r0+1, testutil.ToFloat64(r))
}

func TestRegistry_Gathers(t *testing.T) {
	SetAvailability("checking")
	mfs, err := Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestHandler_ServesTextFormat(t *testing.T) {
	SetAvailability("online")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `matchdesk_remote_availability{state="online"} 1`)
}
