// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("/api/chat", "POST", "200", 120*time.Millisecond)
	m.ObserveRequest("/api/chat", "POST", "200", 80*time.Millisecond)

	out := scrape(t, m)
	assert.Contains(t, out, `orallm_relay_http_requests_total{method="POST",route="/api/chat",status="200"} 2`)
	assert.Contains(t, out, `orallm_relay_http_request_duration_seconds_count{route="/api/chat"} 2`)
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.StreamDeltasTotal.WithLabelValues("echo").Add(5)

	assert.Contains(t, scrape(t, a), `orallm_relay_stream_deltas_total{provider="echo"} 5`)
	assert.NotContains(t, scrape(t, b), `orallm_relay_stream_deltas_total{provider="echo"}`)
}

func TestHandler_IncludesRuntimeCollectors(t *testing.T) {
	m := New()
	m.StreamsActive.Inc()

	out := scrape(t, m)
	assert.Contains(t, out, "orallm_relay_streams_active 1")
	assert.Contains(t, out, "go_goroutines")
}
