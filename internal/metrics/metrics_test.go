package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Singleton(t *testing.T) {
	assert.Same(t, New(), New())
}

func TestRouter(t *testing.T) {
	m := New()
	m.Dispatches.WithLabelValues("Messages", "clipboard").Inc()

	srv := httptest.NewServer(Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.GreaterOrEqual(t, testutil.ToFloat64(m.Dispatches.WithLabelValues("Messages", "clipboard")), 1.0)
}
