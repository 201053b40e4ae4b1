package apiexec

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferedResponseJSONEndsAndSetsContentType(t *testing.T) {
	res := NewBufferedResponse()
	err := res.JSON(map[string]any{"ok": true})
	assert.NoError(t, err)
	assert.True(t, res.IsEnded())

	out := res.ToResponse()
	assert.Equal(t, 200, out.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", out.Headers["Content-Type"])
	assert.JSONEq(t, `{"ok":true}`, string(out.Body))
	assert.Equal(t, "11", out.Headers["Content-Length"])
}

func TestBufferedResponseRedirectDefaultsTo307(t *testing.T) {
	res := NewBufferedResponse()
	res.Redirect("/login")
	out := res.ToResponse()
	assert.Equal(t, 307, out.StatusCode)
	assert.Equal(t, "/login", out.Headers["Location"])
}

func TestBufferedResponseRedirectWithExplicitStatus(t *testing.T) {
	res := NewBufferedResponse()
	res.Redirect(302, "/home")
	out := res.ToResponse()
	assert.Equal(t, 302, out.StatusCode)
	assert.Equal(t, "/home", out.Headers["Location"])
}

func TestBufferedResponseWaitForEndBlocksUntilEnd(t *testing.T) {
	res := NewBufferedResponse()
	var wg sync.WaitGroup
	wg.Add(1)
	finished := false
	go func() {
		defer wg.Done()
		res.WaitForEnd()
		finished = true
	}()

	assert.False(t, res.IsEnded())
	res.End([]byte("done"))
	wg.Wait()
	assert.True(t, finished)
}

func TestStreamingResponseFreezesHeadersOnFirstWrite(t *testing.T) {
	var started bool
	var chunks [][]byte
	var ended bool

	sink := StreamSink{
		OnStart: func(code int, msg string, headers map[string]string) {
			started = true
			assert.Equal(t, 201, code)
			assert.Equal(t, "abc", headers["X-Test"])
		},
		OnChunk: func(chunk []byte) { chunks = append(chunks, chunk) },
		OnEnd:   func() { ended = true },
	}
	res := NewStreamingResponse(sink)
	res.Status(201)
	res.SetHeader("X-Test", "abc")
	res.Write([]byte("hello"))
	assert.True(t, started)

	// headers are frozen now; further mutation attempts are no-ops
	res.SetHeader("X-Test", "changed")
	res.End([]byte("world"))

	assert.True(t, ended)
	assert.Len(t, chunks, 2)
	assert.Equal(t, "hello", string(chunks[0]))
	assert.Equal(t, "world", string(chunks[1]))
}
