package hmr

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almostnode/core/internal/vfstest"
	"github.com/almostnode/core/kit/cryptoutil"
)

func TestBridgeBroadcastsUpdateToConnectedSocket(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{"/app/page.tsx": "export default function Page() {}"})
	emitter := New(fs, Options{Now: func() int64 { return 99 }})
	bridge := NewBridge(emitter, BridgeOptions{})

	server := httptest.NewServer(http.HandlerFunc(bridge.ServeHTTP))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, emitter.Watch("/app"))

	assert.Eventually(t, func() bool { return bridge.ConnCount() == 1 }, time.Second, 5*time.Millisecond)

	fs.Touch("/app/page.tsx")

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "next-hmr", payload["channel"])
	assert.Equal(t, "update", payload["type"])
	assert.Equal(t, float64(99), payload["timestamp"])
}

func TestBridgeSignsBroadcastWhenSigningKeySet(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{"/app/page.tsx": "export default function Page() {}"})
	emitter := New(fs, Options{Now: func() int64 { return 99 }})
	key, err := cryptoutil.ToKey32(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	bridge := NewBridge(emitter, BridgeOptions{SigningKey: key})

	server := httptest.NewServer(http.HandlerFunc(bridge.ServeHTTP))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, emitter.Watch("/app"))
	assert.Eventually(t, func() bool { return bridge.ConnCount() == 1 }, time.Second, 5*time.Millisecond)

	fs.Touch("/app/page.tsx")

	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, msgType)

	verified, err := cryptoutil.VerifyAndReadSymmetric(data, key)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(verified, &payload))
	assert.Equal(t, "next-hmr", payload["channel"])
}

func TestBridgeCheckOriginRejectsUnlistedHost(t *testing.T) {
	fs := vfstest.New()
	emitter := New(fs, Options{})
	bridge := NewBridge(emitter, BridgeOptions{AllowedOrigins: []string{"example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.test")
	assert.False(t, bridge.checkOrigin(req))

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.Header.Set("Origin", "https://example.com")
	assert.True(t, bridge.checkOrigin(req2))
}
