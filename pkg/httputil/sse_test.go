package httputil

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventWriterHeadersAndFraming(t *testing.T) {
	rec := httptest.NewRecorder()

	ew, err := NewEventWriter(rec)
	require.NoError(t, err)

	require.NoError(t, ew.WriteEvent(map[string]string{"role": "assistant", "content": "Hi"}))
	require.NoError(t, ew.WriteDone())

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, rec.Flushed)
	assert.Equal(t, "data: {\"content\":\"Hi\",\"role\":\"assistant\"}\n\ndata: [DONE]\n\n", rec.Body.String())
}

type failingWriter struct {
	header http.Header
	writes int
}

func (f *failingWriter) Header() http.Header {
	if f.header == nil {
		f.header = http.Header{}
	}
	return f.header
}
func (f *failingWriter) WriteHeader(int) {}
func (f *failingWriter) Flush()          {}
func (f *failingWriter) Write([]byte) (int, error) {
	f.writes++
	return 0, errors.New("broken pipe")
}

func TestEventWriterStopsAfterFirstFailure(t *testing.T) {
	fw := &failingWriter{}
	ew, err := NewEventWriter(fw)
	require.NoError(t, err)

	err1 := ew.WriteEvent("a")
	err2 := ew.WriteDone()

	require.Error(t, err1)
	assert.Equal(t, err1, err2)
	assert.Equal(t, 1, fw.writes)
	assert.Equal(t, err1, ew.Err())
}

func TestEventReaderHandlesSplitReads(t *testing.T) {
	body := "data: {\"content\":\"Hel\"}\n\n: keep-alive\n\ndata: {\"content\":\"lo\"}\n\ndata: [DONE]\n\n"
	// one byte per Read call
	r := NewEventReader(&oneByteReader{r: strings.NewReader(body)})

	first, done, err := r.Next()
	require.NoError(t, err)
	assert.False(t, done)
	assert.JSONEq(t, `{"content":"Hel"}`, string(first))

	second, done, err := r.Next()
	require.NoError(t, err)
	assert.False(t, done)
	assert.JSONEq(t, `{"content":"lo"}`, string(second))

	_, done, err = r.Next()
	require.NoError(t, err)
	assert.True(t, done)

	_, _, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestEventReaderJoinsMultilineDataAndFlushesAtEOF(t *testing.T) {
	r := NewEventReader(strings.NewReader("event: msg\ndata: a\ndata:b"))

	data, done, err := r.Next()
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, "a\nb", string(data))
}

type oneByteReader struct{ r io.Reader }

func (o *oneByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return o.r.Read(p[:1])
}
