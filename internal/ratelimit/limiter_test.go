package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, remoteAddr string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	req, err := http.NewRequest(http.MethodGet, "/ws", nil)
	require.NoError(t, err)
	req.RemoteAddr = remoteAddr
	c.Request = req
	return c, rec
}

func TestNew_RejectsMalformedRate(t *testing.T) {
	_, err := New("not-a-rate")
	require.Error(t, err)
}

func TestAllowConnect_AllowsWithinRate(t *testing.T) {
	l, err := New("5-M")
	require.NoError(t, err)

	c, rec := newTestContext(t, "10.0.0.1:1234")
	assert.True(t, l.AllowConnect(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAllowConnect_RejectsOverRate(t *testing.T) {
	l, err := New("1-M")
	require.NoError(t, err)

	c1, _ := newTestContext(t, "10.0.0.2:1234")
	require.True(t, l.AllowConnect(c1))

	c2, rec2 := newTestContext(t, "10.0.0.2:5678")
	assert.False(t, l.AllowConnect(c2))
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
}

func TestAllowConnect_TracksPerIPIndependently(t *testing.T) {
	l, err := New("1-M")
	require.NoError(t, err)

	a, _ := newTestContext(t, "10.0.0.3:1111")
	require.True(t, l.AllowConnect(a))

	b, _ := newTestContext(t, "10.0.0.4:2222")
	assert.True(t, l.AllowConnect(b), "a different source IP must have its own bucket")
}
