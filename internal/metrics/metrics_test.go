package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersAll(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)

	m.TokensEmitted.Inc()
	m.Deliveries.WithLabelValues(ResultOK).Add(2)
	m.Subscribers.Set(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokensEmitted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Deliveries.WithLabelValues(ResultOK)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Subscribers))
}

func TestNew_DoubleRegisterPanics(t *testing.T) {
	reg := NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)
	m.ChatterLines.Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "rfidbridge_serial_chatter_lines_total 1"))
}
