package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/resourcegateway/internal/gateway/domain"
	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
	identityHTTP "github.com/allisson/resourcegateway/internal/identity/http"
	"github.com/allisson/resourcegateway/internal/testutil"
)

func newStreamServer(t *testing.T, principal *identityDomain.Principal) (*httptest.Server, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, _ := newSeeded(t)
	hub := NewHub()
	handler := NewStreamHandler(s, hub, testutil.DiscardLogger())

	router := gin.New()
	router.GET("/ws/notifications", func(c *gin.Context) {
		if principal != nil {
			c.Request = c.Request.WithContext(identityHTTP.WithPrincipal(c.Request.Context(), principal))
		}
		c.Next()
	}, handler.Stream)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, hub
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/notifications"
}

func TestStreamHandler(t *testing.T) {
	server, hub := newStreamServer(t, &identityDomain.Principal{UserID: "4", Login: "jdoe"})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "notification", msg.Type)
	assert.Equal(t, "1", msg.Notification["id"])
	assert.Equal(t, "Request 1 was submitted", msg.Notification["text"])

	require.Eventually(t, func() bool { return hub.Subscribers("4") == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.Publish("4", domain.Entity{ID: "9", Type: "notification", Attributes: map[string]any{"text": "done"}})

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "9", msg.Notification["id"])
	assert.Equal(t, "done", msg.Notification["text"])

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Subscribers("4") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStreamHandler_Unauthenticated(t *testing.T) {
	server, _ := newStreamServer(t, nil)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, `Basic realm="Application"`, resp.Header.Get("WWW-Authenticate"))
}
