package hmr

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/net/idna"

	"github.com/almostnode/core/kit/cryptoutil"
)

// BridgeOptions configures the optional ws:// fallback transport.
type BridgeOptions struct {
	// SigningKey, when set, causes every broadcast to be signed with
	// cryptoutil.SignSymmetric and sent as a binary frame instead of
	// plain JSON text, so a client reached over this out-of-process
	// transport can tell a genuine update from anything else able to
	// reach the socket. Nil means unsigned (the in-process
	// TargetWindow.PostMessage channel has no equivalent need, since
	// nothing untrusted shares that call stack).
	SigningKey cryptoutil.Key32

	// AllowedOrigins restricts the WebSocket handshake's Origin header
	// to a fixed hostname allowlist, compared after IDNA normalization
	// so unicode and punycode forms of the same host match. Empty
	// means allow any origin, the permissive single-host local dev
	// default.
	AllowedOrigins []string
}

// Bridge is the optional ws:// fallback HMR transport for hosts that
// run the dev server out-of-process from the tab it serves (e.g. a
// test harness driving a real browser over CDP), alongside the
// primary in-process TargetWindow.PostMessage channel. Every Update
// delivered to the Emitter is broadcast, best-effort, to every
// connected socket.
type Bridge struct {
	mu       sync.Mutex
	conns    map[*websocket.Conn]struct{}
	opts     BridgeOptions
	upgrader websocket.Upgrader
}

// NewBridge registers itself as an Emitter listener and returns the
// http.Handler hosts mount at the HMR websocket endpoint.
func NewBridge(e *Emitter, opts BridgeOptions) *Bridge {
	b := &Bridge{conns: map[*websocket.Conn]struct{}{}, opts: opts}
	b.upgrader = websocket.Upgrader{CheckOrigin: b.checkOrigin}
	e.OnUpdate(b.broadcast)
	return b
}

// checkOrigin allows any origin when AllowedOrigins is empty;
// otherwise the request's Origin host must IDNA-normalize to match one
// of the allowlisted hosts.
func (b *Bridge) checkOrigin(r *http.Request) bool {
	if len(b.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host, err := idna.Lookup.ToASCII(u.Hostname())
	if err != nil {
		return false
	}
	for _, allowed := range b.opts.AllowedOrigins {
		allowedHost, err := idna.Lookup.ToASCII(allowed)
		if err != nil {
			continue
		}
		if strings.EqualFold(host, allowedHost) {
			return true
		}
	}
	return false
}

// ServeHTTP upgrades the request and registers the connection until it
// disconnects or a write fails.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.conns[conn] = struct{}{}
	b.mu.Unlock()

	go b.readUntilClose(conn)
}

// readUntilClose drains inbound frames (the client never sends
// anything meaningful) until the socket closes, so the read buffer
// doesn't back up and Close() is detected promptly.
func (b *Bridge) readUntilClose(conn *websocket.Conn) {
	defer b.remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Bridge) remove(conn *websocket.Conn) {
	b.mu.Lock()
	delete(b.conns, conn)
	b.mu.Unlock()
	conn.Close()
}

// ConnCount reports the number of currently connected sockets.
func (b *Bridge) ConnCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

func (b *Bridge) broadcast(u Update) {
	payload := map[string]any{
		"type":      string(u.Type),
		"path":      u.Path,
		"timestamp": u.Timestamp,
		"channel":   "next-hmr",
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	msgType := websocket.TextMessage
	if b.opts.SigningKey != nil {
		signed, err := cryptoutil.SignSymmetric(data, b.opts.SigningKey)
		if err != nil {
			return
		}
		data = signed
		msgType = websocket.BinaryMessage
	}

	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.conns))
	for c := range b.conns {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteMessage(msgType, data); err != nil {
			b.remove(c)
		}
	}
}
