package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/switchback/internal/core/domain"
)

func TestFramer_SingleChunk(t *testing.T) {
	raw := "POST /v1/messages HTTP/1.1\r\nHost: localhost\r\nContent-Type: application/json\r\nContent-Length: 17\r\n\r\n{\"model\":\"smart\"}"

	f := NewFramer(0)
	req, err := f.Feed([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, req)

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "/v1/messages", req.Target)
	assert.Equal(t, "HTTP/1.1", req.Version)
	assert.Equal(t, `{"model":"smart"}`, string(req.Body))
	assert.Len(t, req.Headers, 3)
	assert.Equal(t, int64(len(raw)), req.Size())

	ct, ok := req.Header("content-type")
	assert.True(t, ok)
	assert.Equal(t, "application/json", ct)
}

func TestFramer_ByteAtATime(t *testing.T) {
	raw := "POST /v1/chat/completions HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"

	f := NewFramer(0)
	assert.False(t, f.Started())

	var req *Request
	for i := 0; i < len(raw); i++ {
		var err error
		req, err = f.Feed([]byte{raw[i]})
		require.NoError(t, err)
		if i < len(raw)-1 {
			require.Nil(t, req, "request completed early at byte %d", i)
			assert.True(t, f.Started())
		}
	}

	require.NotNil(t, req)
	assert.Equal(t, "hello", string(req.Body))
	assert.Zero(t, f.Buffered())
}

func TestFramer_BodyAcrossReads(t *testing.T) {
	f := NewFramer(0)

	req, err := f.Feed([]byte("POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\n01234"))
	require.NoError(t, err)
	assert.Nil(t, req)
	assert.Positive(t, f.Buffered())

	req, err = f.Feed([]byte("56789"))
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "0123456789", string(req.Body))
}

func TestFramer_NoBody(t *testing.T) {
	req, err := NewFramer(0).Feed([]byte("GET /v1/models HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Empty(t, req.Body)
}

func TestFramer_IgnoresBytesPastContentLength(t *testing.T) {
	req, err := NewFramer(0).Feed([]byte("POST / HTTP/1.1\r\nContent-Length: 2\r\n\r\nokEXTRA"))
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "ok", string(req.Body))
}

func TestFramer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
		wantMsg string
	}{
		{"two token request line", "GET /\r\n\r\n", domain.ErrMalformedRequest, MsgInvalidRequestFormat},
		{"four token request line", "GET / HTTP/1.1 extra\r\n\r\n", domain.ErrMalformedRequest, MsgInvalidRequestFormat},
		{"not http", "GET / FTP/1.0\r\n\r\n", domain.ErrMalformedRequest, MsgInvalidRequestFormat},
		{"header without colon", "GET / HTTP/1.1\r\nbroken\r\n\r\n", domain.ErrMalformedRequest, MsgInvalidHeaderLine},
		{"space in header name", "GET / HTTP/1.1\r\nBad Name: x\r\n\r\n", domain.ErrMalformedRequest, MsgInvalidHeaderLine},
		{"negative content length", "POST / HTTP/1.1\r\nContent-Length: -1\r\n\r\n", domain.ErrInvalidContentLen, MsgInvalidContentLength},
		{"non numeric content length", "POST / HTTP/1.1\r\nContent-Length: ten\r\n\r\n", domain.ErrInvalidContentLen, MsgInvalidContentLength},
		{"conflicting content length", "POST / HTTP/1.1\r\nContent-Length: 1\r\nContent-Length: 2\r\n\r\n", domain.ErrInvalidContentLen, MsgInvalidContentLength},
		{"chunked body", "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n", domain.ErrMalformedRequest, MsgChunkedUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewFramer(0).Feed([]byte(tt.raw))
			assert.Nil(t, req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var fe *domain.FramingError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.wantMsg, fe.Message)
		})
	}
}

func TestFramer_RepeatedMatchingContentLength(t *testing.T) {
	req, err := NewFramer(0).Feed([]byte("POST / HTTP/1.1\r\nContent-Length: 2\r\ncontent-length: 2\r\n\r\nhi"))
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "hi", string(req.Body))
}

func TestFramer_HeaderTooLarge(t *testing.T) {
	f := NewFramer(64)
	_, err := f.Feed([]byte("GET / HTTP/1.1\r\nX-Pad: " + strings.Repeat("a", 100)))
	assert.ErrorIs(t, err, domain.ErrHeaderTooLarge)
}

func TestFramer_FeedAfterDone(t *testing.T) {
	f := NewFramer(0)
	first, err := f.Feed([]byte("GET / HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)

	again, err := f.Feed([]byte("more"))
	require.NoError(t, err)
	assert.Same(t, first, again)
}
