package httputil

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DoneMarker is the literal payload that terminates every event stream.
const DoneMarker = "[DONE]"

// maxEventSize bounds a single buffered SSE line on the reading side.
const maxEventSize = 1 << 20

// ErrStreamingUnsupported is returned when the ResponseWriter cannot flush.
var ErrStreamingUnsupported = errors.New("streaming not supported by response writer")

// EventWriter writes `data: <json>\n\n` events and flushes each one immediately.
// After the first failed write (usually a client disconnect) every further
// write is dropped and returns that same error.
type EventWriter struct {
	w       io.Writer
	flusher http.Flusher
	err     error
}

// NewEventWriter sets the event-stream headers, sends the 200 status line and
// flushes it so the client starts reading before any event is produced.
func NewEventWriter(w http.ResponseWriter) (*EventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &EventWriter{w: w, flusher: flusher}, nil
}

// WriteEvent marshals v as JSON and writes it as one event.
func (e *EventWriter) WriteEvent(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return e.writeData(data)
}

// WriteDone writes the terminating `data: [DONE]` event.
func (e *EventWriter) WriteDone() error {
	return e.writeData([]byte(DoneMarker))
}

// Err returns the first write error, if any.
func (e *EventWriter) Err() error {
	return e.err
}

func (e *EventWriter) writeData(data []byte) error {
	if e.err != nil {
		return e.err
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		e.err = err
		return err
	}
	e.flusher.Flush()
	return nil
}

// EventReader parses a `text/event-stream` body into data payloads. Events may
// arrive split across arbitrary read boundaries; the reader only yields a
// payload once its terminating blank line (or EOF) has been seen.
type EventReader struct {
	scanner *bufio.Scanner
}

// NewEventReader wraps r.
func NewEventReader(r io.Reader) *EventReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	return &EventReader{scanner: scanner}
}

// Next returns the next event payload. done is true when the payload is the
// DoneMarker. io.EOF is returned once the body is exhausted.
func (r *EventReader) Next() (data []byte, done bool, err error) {
	var buf bytes.Buffer
	hasData := false

	for r.scanner.Scan() {
		line := r.scanner.Bytes()

		if len(line) == 0 {
			if hasData {
				return r.finish(buf.Bytes())
			}
			continue
		}
		if line[0] == ':' {
			continue // comment / keep-alive
		}

		field, value, found := bytes.Cut(line, []byte(":"))
		if !found || string(field) != "data" {
			continue
		}
		value = bytes.TrimPrefix(value, []byte(" "))
		if hasData {
			buf.WriteByte('\n')
		}
		buf.Write(value)
		hasData = true
	}

	if err := r.scanner.Err(); err != nil {
		return nil, false, fmt.Errorf("read event stream: %w", err)
	}
	if hasData {
		return r.finish(buf.Bytes())
	}
	return nil, false, io.EOF
}

func (r *EventReader) finish(payload []byte) ([]byte, bool, error) {
	if string(payload) == DoneMarker {
		return nil, true, nil
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, false, nil
}
