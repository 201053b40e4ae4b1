package apiexec

import "strconv"

// WebResponse is the Go-side stand-in for the Fetch API Response
// object an App Router route.ts handler may return directly instead
// of driving the mock res (spec.md §4.6 "If result is a Response").
type WebResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	// BodyStream, when non-nil, is drained chunk by chunk instead of
	// using Body directly (the ReadableStream case).
	BodyStream <-chan []byte
}

// ToResponseData converts a WebResponse into the same shape a
// buffered mock res produces, draining BodyStream when set and filling
// Content-Length from the resulting body.
func ToResponseData(r WebResponse) ResponseData {
	headers := make(map[string]string, len(r.Headers)+1)
	for k, v := range r.Headers {
		headers[k] = v
	}

	body := r.Body
	if r.BodyStream != nil {
		var collected []byte
		for chunk := range r.BodyStream {
			collected = append(collected, chunk...)
		}
		body = collected
	}
	headers["Content-Length"] = strconv.Itoa(len(body))

	return ResponseData{StatusCode: r.StatusCode, Headers: headers, Body: body}
}

// StreamWebResponse pipes a WebResponse's body through sink: OnStart,
// then one OnChunk per BodyStream chunk (or one for a non-empty Body),
// then OnEnd.
func StreamWebResponse(r WebResponse, sink StreamSink) {
	sink.OnStart(r.StatusCode, "", r.Headers)
	if r.BodyStream != nil {
		for chunk := range r.BodyStream {
			sink.OnChunk(chunk)
		}
	} else if len(r.Body) > 0 {
		sink.OnChunk(r.Body)
	}
	sink.OnEnd()
}
