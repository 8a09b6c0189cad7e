package bridge

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tyrion/nucleus-sms-bridge/internal/ack"
)

//nolint:gochecknoinits // Keeps gin quiet for every test in the package.
func init() {
	gin.SetMode(gin.TestMode)
}

// notifyBody builds a valid notify request payload.
func notifyBody(message string) string {
	return fmt.Sprintf(`{
		"user": {
			"name": "operators/jamie",
			"contacts": [{"type": "sms", "value": "5551234567"}]
		},
		"events": [{"id": %q, "source": "prov:default:/alm:Tank Level", "displayPath": "Tank Level"}],
		"message": %q
	}`, uuid.New(), message)
}

// TestHandler_Notify verifies the notify endpoint dispatches and reports sent.
func TestHandler_Notify(t *testing.T) {
	t.Parallel()

	registry := ack.NewRegistry()
	sender := &fakeSender{failAfter: -1}
	router := newRouter(newTestService(t, registry, sender, new(memorySink), false), registry, "plant-a")

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(notifyBody("Tank Level is High")))

	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, sender.chunks, 1)
	require.Contains(t, sender.chunks[0], "Tank Level is High")
	require.Contains(t, sender.chunks[0], "To acknowledge, reply")
	require.Equal(t, 1, registry.Len())
}

// TestHandler_NotifyRendersTemplate verifies an absent message falls back to
// the profile template.
func TestHandler_NotifyRendersTemplate(t *testing.T) {
	t.Parallel()

	registry := ack.NewRegistry()
	sender := &fakeSender{failAfter: -1}
	router := newRouter(newTestService(t, registry, sender, new(memorySink), false), registry, "plant-a")

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(notifyBody("")))

	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, sender.chunks, 1)
	require.Contains(t, sender.chunks[0], `Alarm "Tank Level" requires attention.`)
}

// TestHandler_NotifyBadRequest verifies malformed bodies are rejected.
func TestHandler_NotifyBadRequest(t *testing.T) {
	t.Parallel()

	registry := ack.NewRegistry()
	router := newRouter(newTestService(t, registry, &fakeSender{failAfter: -1}, new(memorySink), false),
		registry, "plant-a")

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(`{"user":{}}`))

	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Equal(t, 0, registry.Len())
}

// TestHandler_NotifyGatewayFailure verifies dispatch failures surface as a
// bad gateway response.
func TestHandler_NotifyGatewayFailure(t *testing.T) {
	t.Parallel()

	registry := ack.NewRegistry()
	router := newRouter(newTestService(t, registry, &fakeSender{failAfter: 0}, new(memorySink), false),
		registry, "plant-a")

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(notifyBody("boom")))

	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusBadGateway, recorder.Code)
}

// TestHandler_Status verifies the status surface reports the pending count.
func TestHandler_Status(t *testing.T) {
	t.Parallel()

	registry := ack.NewRegistry()
	sender := &fakeSender{failAfter: -1}
	router := newRouter(newTestService(t, registry, sender, new(memorySink), false), registry, "plant-a")

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(notifyBody("hello")))
	router.ServeHTTP(recorder, request)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/status", http.NoBody))

	require.Equal(t, http.StatusOK, recorder.Code)

	var status struct {
		Profile string `json:"profile"`
		Pending int    `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &status))
	require.Equal(t, "plant-a", status.Profile)
	require.Equal(t, 1, status.Pending)
}
