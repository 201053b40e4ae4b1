package apiexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRequestContextParsesQueryAndCookies(t *testing.T) {
	req := NewRequestContext("get", "/api/hello?name=world", map[string]string{
		"Cookie": "session=abc123; theme=dark",
	}, nil)

	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/api/hello", req.URL)
	assert.Equal(t, "world", req.Query["name"])
	assert.Equal(t, "abc123", req.Cookies["session"])
	assert.Equal(t, "dark", req.Cookies["theme"])
	assert.Nil(t, req.Body)
}

func TestNewRequestContextPercentDecodesCookieValue(t *testing.T) {
	req := NewRequestContext("GET", "/api/hello", map[string]string{
		"Cookie": "session=hello%20world; greeting=caf%C3%A9",
	}, nil)

	assert.Equal(t, "hello world", req.Cookies["session"])
	assert.Equal(t, "café", req.Cookies["greeting"])
}

func TestNewRequestContextKeepsMalformedCookieEscapeRaw(t *testing.T) {
	req := NewRequestContext("GET", "/api/hello", map[string]string{
		"Cookie": "broken=100%",
	}, nil)

	assert.Equal(t, "100%", req.Cookies["broken"])
}

func TestNewRequestContextParsesJSONBody(t *testing.T) {
	req := NewRequestContext("POST", "/api/hello", map[string]string{
		"Content-Type": "application/json",
	}, []byte(`{"name":"ada"}`))

	m, ok := req.Body.(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "ada", m["name"])
}

func TestNewRequestContextSniffsJSONWithoutContentType(t *testing.T) {
	req := NewRequestContext("POST", "/api/hello", nil, []byte(`[1,2,3]`))
	arr, ok := req.Body.([]any)
	assert.True(t, ok)
	assert.Len(t, arr, 3)
}

func TestNewRequestContextKeepsPlainTextBody(t *testing.T) {
	req := NewRequestContext("POST", "/api/hello", nil, []byte("plain text"))
	assert.Equal(t, "plain text", req.Body)
}
