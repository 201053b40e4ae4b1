package apiexec

import (
	"encoding/json"
	"strconv"
	"sync"
)

// ResponseData is the serialized result of a buffered handler run
// (spec.md §4.6 "toResponse()").
type ResponseData struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// BufferedResponse is the mock res object in buffered mode: a handler
// builds up status/headers/body and the caller waits on End.
type BufferedResponse struct {
	mu          sync.Mutex
	statusCode  int
	headers     map[string]string
	body        []byte
	ended       bool
	headersSent bool
	waiters     []chan struct{}
}

func NewBufferedResponse() *BufferedResponse {
	return &BufferedResponse{statusCode: 200, headers: map[string]string{}}
}

func (r *BufferedResponse) Status(code int) *BufferedResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusCode = code
	return r
}

func (r *BufferedResponse) SetHeader(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headers[key] = value
}

func (r *BufferedResponse) GetHeader(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.headers[key]
	return v, ok
}

// Write appends a chunk and marks headers as sent, without ending.
func (r *BufferedResponse) Write(chunk []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headersSent = true
	r.body = append(r.body, chunk...)
}

// JSON serializes data, sets Content-Type, and ends the response.
func (r *BufferedResponse) JSON(data any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}
	r.SetHeader("Content-Type", "application/json; charset=utf-8")
	r.End(encoded)
	return nil
}

func (r *BufferedResponse) Send(data []byte) { r.End(data) }

// End writes an optional final chunk and marks the response complete,
// waking anyone blocked in WaitForEnd.
func (r *BufferedResponse) End(data []byte) {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return
	}
	if len(data) > 0 {
		r.body = append(r.body, data...)
	}
	r.headersSent = true
	r.ended = true
	waiters := r.waiters
	r.waiters = nil
	r.mu.Unlock()
	for _, ch := range waiters {
		close(ch)
	}
}

// Redirect sets Location and ends with the given status (307 default,
// matching the one-arg `redirect(url)` / two-arg `redirect(status,
// url)` call shapes).
func (r *BufferedResponse) Redirect(statusOrURL any, maybeURL ...string) {
	status := 307
	target := ""
	if s, ok := statusOrURL.(int); ok && len(maybeURL) > 0 {
		status = s
		target = maybeURL[0]
	} else if s, ok := statusOrURL.(string); ok {
		target = s
	}
	r.Status(status)
	r.SetHeader("Location", target)
	r.End(nil)
}

func (r *BufferedResponse) IsEnded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

// WaitForEnd blocks until End has been called (resolved immediately if
// already ended).
func (r *BufferedResponse) WaitForEnd() {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	r.waiters = append(r.waiters, ch)
	r.mu.Unlock()
	<-ch
}

// ToResponse serializes the buffered state into ResponseData, filling
// Content-Length.
func (r *BufferedResponse) ToResponse() ResponseData {
	r.mu.Lock()
	defer r.mu.Unlock()
	headers := make(map[string]string, len(r.headers)+1)
	for k, v := range r.headers {
		headers[k] = v
	}
	headers["Content-Length"] = strconv.Itoa(len(r.body))
	body := make([]byte, len(r.body))
	copy(body, r.body)
	return ResponseData{StatusCode: r.statusCode, Headers: headers, Body: body}
}

// StreamSink is the callback set a streaming-mode response forwards
// through (spec.md §4.6 "streaming mode").
type StreamSink struct {
	OnStart func(statusCode int, statusMessage string, headers map[string]string)
	OnChunk func(chunk []byte)
	OnEnd   func()
}

// StreamingResponse freezes headers lazily, at the moment of the first
// write or end, then forwards chunks and signals completion exactly
// once.
type StreamingResponse struct {
	mu         sync.Mutex
	statusCode int
	statusMsg  string
	headers    map[string]string
	started    bool
	ended      bool
	sink       StreamSink
}

func NewStreamingResponse(sink StreamSink) *StreamingResponse {
	return &StreamingResponse{statusCode: 200, statusMsg: "OK", headers: map[string]string{}, sink: sink}
}

func (r *StreamingResponse) Status(code int) *StreamingResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		r.statusCode = code
	}
	return r
}

func (r *StreamingResponse) SetHeader(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		r.headers[key] = value
	}
}

func (r *StreamingResponse) freezeHeadersLocked() {
	if r.started {
		return
	}
	r.started = true
	r.sink.OnStart(r.statusCode, r.statusMsg, r.headers)
}

func (r *StreamingResponse) Write(chunk []byte) {
	r.mu.Lock()
	r.freezeHeadersLocked()
	r.mu.Unlock()
	r.sink.OnChunk(chunk)
}

func (r *StreamingResponse) End(data []byte) {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return
	}
	r.freezeHeadersLocked()
	r.ended = true
	r.mu.Unlock()
	if len(data) > 0 {
		r.sink.OnChunk(data)
	}
	r.sink.OnEnd()
}

func (r *StreamingResponse) IsEnded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}
