package event

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineAssembler_SplitAcrossFeeds(t *testing.T) {
	var a LineAssembler

	assert.Empty(t, a.Feed([]byte("data: {\"ty")))
	assert.Empty(t, a.Feed([]byte("pe\":\"content\"")))

	lines := a.Feed([]byte(",\"content\":\"hi\"}\n\ndata: next"))
	require.Equal(t, []string{`data: {"type":"content","content":"hi"}`, ""}, lines)
	assert.Equal(t, "data: next", a.Pending())
}

func TestLineAssembler_CRLF(t *testing.T) {
	var a LineAssembler
	lines := a.Feed([]byte("data: {}\r\n\r\n"))
	assert.Equal(t, []string{"data: {}", ""}, lines)
}

// chunkReader returns bytes in fixed-size pieces to simulate arbitrary
// network chunking.
type chunkReader struct {
	data []byte
	size int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := min(c.size, len(c.data), len(p))
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func TestStream_ChunkBoundaryInsensitivity(t *testing.T) {
	wire := `data: {"type":"content","content":"The "}` + "\n\n" +
		`data: {"type":"content","content":"answer"}` + "\n\n" +
		`data: {"type":"content","content":" is 42."}` + "\n\n" +
		`data: {"type":"done","conversation_id":"abc"}` + "\n\n"

	// Every chunk size must reassemble to the identical envelope sequence.
	for _, size := range []int{1, 2, 3, 7, 16, len(wire)} {
		var text strings.Builder
		var kinds []Kind

		for e, err := range Stream(&chunkReader{data: []byte(wire), size: size}) {
			require.NoError(t, err, "chunk size %d", size)
			kinds = append(kinds, e.Kind)
			if e.Kind == KindContent {
				text.WriteString(e.Content)
			}
		}

		assert.Equal(t, "The answer is 42.", text.String(), "chunk size %d", size)
		assert.Equal(t, []Kind{KindContent, KindContent, KindContent, KindDone}, kinds, "chunk size %d", size)
	}
}

func TestStream_SkipsCommentsAndSeparators(t *testing.T) {
	wire := ": keepalive\n\n" +
		"event: message\n" +
		`data: {"type":"content","content":"x"}` + "\n\n"

	var got []Envelope
	for e, err := range Stream(strings.NewReader(wire)) {
		require.NoError(t, err)
		got = append(got, e)
	}

	require.Len(t, got, 1)
	assert.Equal(t, Content("x"), got[0])
}

func TestStream_MalformedFrameEndsSequence(t *testing.T) {
	wire := `data: {"type":"content","content":"ok"}` + "\n\n" +
		"data: {broken\n\n" +
		`data: {"type":"done","conversation_id":"abc"}` + "\n\n"

	var envelopes []Envelope
	var streamErr error
	for e, err := range Stream(strings.NewReader(wire)) {
		if err != nil {
			streamErr = err
			break
		}
		envelopes = append(envelopes, e)
	}

	require.Error(t, streamErr)
	require.Len(t, envelopes, 1)
	assert.Equal(t, Content("ok"), envelopes[0])
}

func TestStream_EarlyBreakStops(t *testing.T) {
	wire := strings.Repeat(`data: {"type":"content","content":"x"}`+"\n\n", 10)

	count := 0
	for _, err := range Stream(strings.NewReader(wire)) {
		require.NoError(t, err)
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
}
