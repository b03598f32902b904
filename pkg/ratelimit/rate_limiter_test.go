package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLimiterConfig() *Config {
	return &Config{
		Enabled:                 true,
		WindowDuration:          time.Minute,
		DefaultRequests:         60,
		BrowseRequests:          120,
		LiveSyncRequests:        240,
		BookingRequests:         30,
		BookingCriticalRequests: 10,
		HealthRequests:          120,
		WhitelistedIPs:          []string{"10.0.0.1"},
	}
}

func TestResultFromScriptDeniesFullWindow(t *testing.T) {
	// Blocked branch: the script reports {0, count, 0} without recording
	// the request, so the count alone can never look like an allowance.
	result, err := resultFromScript([]interface{}{int64(0), int64(3), int64(0)}, 3, 1234)
	require.NoError(t, err)

	assert.False(t, result.Allowed)
	assert.Equal(t, 3, result.Limit)
	assert.Equal(t, 0, result.Remaining)
	assert.Equal(t, int64(1234), result.ResetTime)
}

func TestResultFromScriptAllowsWithinWindow(t *testing.T) {
	result, err := resultFromScript([]interface{}{int64(1), int64(1), int64(2)}, 3, 1234)
	require.NoError(t, err)

	assert.True(t, result.Allowed)
	assert.Equal(t, 2, result.Remaining)

	// Last slot in the window is still an allowance.
	result, err = resultFromScript([]interface{}{int64(1), int64(3), int64(0)}, 3, 1234)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
}

func TestResultFromScriptRejectsMalformedReply(t *testing.T) {
	_, err := resultFromScript([]interface{}{int64(1), int64(1)}, 3, 1234)
	assert.Error(t, err)
}

func TestIsAllowedBypassesWhenDisabledOrWhitelisted(t *testing.T) {
	ctx := context.Background()

	disabled := testLimiterConfig()
	disabled.Enabled = false
	limiter := NewRateLimiter(nil, disabled)
	result, err := limiter.IsAllowed(ctx, "192.168.1.5", RateLimitTypeBookingCritical)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 10, result.Limit)

	limiter = NewRateLimiter(nil, testLimiterConfig())
	result, err = limiter.IsAllowed(ctx, "10.0.0.1", RateLimitTypeBooking)
	require.NoError(t, err)
	assert.True(t, result.Allowed, "whitelisted IPs bypass the limiter")
}

func TestGetLimitPerTier(t *testing.T) {
	limiter := NewRateLimiter(nil, testLimiterConfig())

	assert.Equal(t, 120, limiter.getLimit(RateLimitTypeBrowse))
	assert.Equal(t, 240, limiter.getLimit(RateLimitTypeLiveSync))
	assert.Equal(t, 30, limiter.getLimit(RateLimitTypeBooking))
	assert.Equal(t, 10, limiter.getLimit(RateLimitTypeBookingCritical))
	assert.Equal(t, 120, limiter.getLimit(RateLimitTypeHealth))
	assert.Equal(t, 60, limiter.getLimit(RateLimitType("unknown")))
}

func TestGetRateLimitTypeRouteMapping(t *testing.T) {
	tests := []struct {
		path string
		want RateLimitType
	}{
		{"/health", RateLimitTypeHealth},
		{"/api/v1/bookings/confirm", RateLimitTypeBookingCritical},
		{"/api/v1/bookings/:id/cancel", RateLimitTypeBookingCritical},
		{"/api/v1/bookings/:id/payment-result", RateLimitTypeBookingCritical},
		{"/api/v1/bookings/:id", RateLimitTypeBooking},
		{"/api/v1/screens/:id/shows/:date/:time/reservations", RateLimitTypeLiveSync},
		{"/api/v1/screens/:id/seatmap", RateLimitTypeBrowse},
		{"/api/v1/screens/:id/shows/:date/:time/suggest", RateLimitTypeBrowse},
		{"/", RateLimitTypeDefault},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, getRateLimitType(tt.path), tt.path)
	}
}
