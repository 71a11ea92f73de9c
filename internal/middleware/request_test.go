package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newRouter(log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), AccessLog(log))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"request_id":     c.GetString(RequestIDKey),
			"participant_id": c.GetString(ParticipantIDKey),
		})
	})
	return r
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	r := newRouter(zerolog.Nop())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get("X-Request-Id")
	require.NotEmpty(t, id)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, id, body["request_id"])
}

func TestRequestIDAndParticipantFromRequest(t *testing.T) {
	r := newRouter(zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "/ping?participant_id=p1", nil)
	req.Header.Set("X-Request-Id", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "req-42", body["request_id"])
	require.Equal(t, "p1", body["participant_id"])
}

func TestAccessLogLevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	r := newRouter(zerolog.New(&buf))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "warn", line["level"])
	require.Equal(t, "/missing", line["path"])
	require.EqualValues(t, http.StatusNotFound, line["status"])
}
