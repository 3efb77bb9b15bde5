package core

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/thushan/switchback/internal/core/constants"
	"github.com/thushan/switchback/internal/core/domain"
)

const (
	MsgInvalidRequestFormat = "Invalid request format"
	MsgInvalidHeaderLine    = "Invalid header line"
	MsgInvalidContentLength = "Invalid Content-Length"
	MsgHeaderTooLarge       = "Request header too large"
	MsgChunkedUnsupported   = "Chunked request bodies are not supported"
)

var headerTerminator = []byte("\r\n\r\n")

// Header is a single request header as the client sent it
type Header struct {
	Name  string
	Value string
}

// Request is one fully framed client request
type Request struct {
	Method      string
	Target      string
	Version     string
	Headers     []Header
	Body        []byte
	HeaderBytes int
}

// Header returns the first value for name, compared case-insensitively
func (r *Request) Header(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// Size is the number of bytes the client sent for this request
func (r *Request) Size() int64 {
	return int64(r.HeaderBytes + len(r.Body))
}

type framerState int

const (
	stateHeaders framerState = iota
	stateBody
	stateDone
)

// Framer assembles a single HTTP/1.1 request from successive reads.
// Feed is called once per chunk from a plain loop; nothing recurses on the chunk count.
type Framer struct {
	req            *Request
	buf            []byte
	maxHeaderBytes int
	contentLength  int
	scanFrom       int
	state          framerState
}

func NewFramer(maxHeaderBytes int) *Framer {
	if maxHeaderBytes <= 0 {
		maxHeaderBytes = constants.DefaultMaxHeaderBytes
	}
	return &Framer{maxHeaderBytes: maxHeaderBytes}
}

// Feed appends chunk and returns the request once it is complete. A nil request
// with a nil error means more bytes are needed.
func (f *Framer) Feed(chunk []byte) (*Request, error) {
	if f.state == stateDone {
		return f.req, nil
	}
	f.buf = append(f.buf, chunk...)

	if f.state == stateHeaders {
		idx := bytes.Index(f.buf[f.scanFrom:], headerTerminator)
		if idx < 0 {
			if len(f.buf) > f.maxHeaderBytes {
				return nil, framingError(domain.ErrHeaderTooLarge, MsgHeaderTooLarge)
			}
			// the terminator may straddle two reads
			f.scanFrom = max(0, len(f.buf)-len(headerTerminator)+1)
			return nil, nil
		}
		idx += f.scanFrom

		headerLen := idx + len(headerTerminator)
		req, contentLength, err := parseHead(f.buf[:idx])
		if err != nil {
			return nil, err
		}
		req.HeaderBytes = headerLen
		f.req = req
		f.contentLength = contentLength
		f.state = stateBody
	}

	received := len(f.buf) - f.req.HeaderBytes
	if received < f.contentLength {
		return nil, nil
	}

	if f.contentLength > 0 {
		body := make([]byte, f.contentLength)
		copy(body, f.buf[f.req.HeaderBytes:f.req.HeaderBytes+f.contentLength])
		f.req.Body = body
	}
	f.buf = nil
	f.state = stateDone
	return f.req, nil
}

// Buffered reports how many bytes are held while waiting for the rest of the request
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Started reports whether any bytes have been received
func (f *Framer) Started() bool {
	return len(f.buf) > 0 || f.state != stateHeaders
}

func parseHead(head []byte) (*Request, int, error) {
	lines := strings.Split(string(head), "\r\n")

	parts := strings.Split(lines[0], " ")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || !strings.HasPrefix(parts[2], "HTTP/") {
		return nil, 0, framingError(domain.ErrMalformedRequest, MsgInvalidRequestFormat)
	}

	req := &Request{
		Method:  parts[0],
		Target:  parts[1],
		Version: parts[2],
		Headers: make([]Header, 0, len(lines)-1),
	}

	contentLength := -1
	chunked := false
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return nil, 0, framingError(domain.ErrMalformedRequest, MsgInvalidHeaderLine)
		}
		value = strings.TrimSpace(value)
		req.Headers = append(req.Headers, Header{Name: name, Value: value})

		switch {
		case strings.EqualFold(name, constants.HeaderContentLength):
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return nil, 0, framingError(domain.ErrInvalidContentLen, MsgInvalidContentLength)
			}
			if contentLength >= 0 && contentLength != n {
				return nil, 0, framingError(domain.ErrInvalidContentLen, MsgInvalidContentLength)
			}
			contentLength = n
		case strings.EqualFold(name, constants.HeaderTransferEncoding):
			if strings.Contains(strings.ToLower(value), "chunked") {
				chunked = true
			}
		}
	}

	if chunked && contentLength < 0 {
		return nil, 0, framingError(domain.ErrMalformedRequest, MsgChunkedUnsupported)
	}
	if contentLength < 0 {
		contentLength = 0
	}
	return req, contentLength, nil
}

func framingError(err error, msg string) *domain.FramingError {
	return &domain.FramingError{Err: err, Message: msg}
}
