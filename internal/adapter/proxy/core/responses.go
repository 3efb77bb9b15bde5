package core

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/thushan/switchback/internal/core/constants"
)

const (
	MsgInternalError       = "Internal proxy error"
	MsgUpstreamUnavailable = "Upstream unavailable"
)

// SyntheticResponse renders the fixed layout used for responses the relay answers itself:
// status line, Content-Type, Content-Length, Connection: close, blank line, message.
func SyntheticResponse(code int, message string) []byte {
	reason := http.StatusText(code)
	if reason == "" {
		reason = "Unknown"
	}

	var b bytes.Buffer
	b.Grow(128 + len(message))
	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(code))
	b.WriteByte(' ')
	b.WriteString(reason)
	b.WriteString("\r\n")
	b.WriteString(constants.HeaderContentType + ": " + constants.ContentTypeText + "\r\n")
	b.WriteString(constants.HeaderContentLength + ": " + strconv.Itoa(len(message)) + "\r\n")
	b.WriteString(constants.HeaderConnection + ": " + constants.ConnectionClose + "\r\n")
	b.WriteString("\r\n")
	b.WriteString(message)
	return b.Bytes()
}

// ParseStatusCode reads the numeric code from the status line at the start of a response
func ParseStatusCode(resp []byte) (int, bool) {
	end := bytes.IndexByte(resp, '\n')
	if end < 0 {
		end = len(resp)
	}
	line := strings.TrimRight(string(resp[:end]), "\r")
	if !strings.HasPrefix(line, "HTTP/") {
		return 0, false
	}
	_, rest, ok := strings.Cut(line, " ")
	if !ok || len(rest) < 3 {
		return 0, false
	}
	code, err := strconv.Atoi(rest[:3])
	if err != nil || code < 100 || code > 999 {
		return 0, false
	}
	return code, true
}

// SplitResponse locates the end of the response header block. ok is false until
// the whole block has arrived.
func SplitResponse(resp []byte) (header []byte, body []byte, ok bool) {
	idx := bytes.Index(resp, headerTerminator)
	if idx < 0 {
		return nil, nil, false
	}
	return resp[:idx], resp[idx+len(headerTerminator):], true
}

// ResponseHeader finds a header value in a raw response header block
func ResponseHeader(header []byte, name string) (string, bool) {
	lines := strings.Split(string(header), "\r\n")
	for _, line := range lines[1:] {
		k, v, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(k), name) {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}
