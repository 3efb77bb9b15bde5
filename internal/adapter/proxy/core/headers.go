package core

import (
	"bytes"
	"slices"
	"strconv"
	"strings"

	"github.com/thushan/switchback/internal/core/constants"
)

// regeneratedHeaders are dropped from the client request and rebuilt for every attempt
var regeneratedHeaders = []string{
	constants.HeaderConnection,
	constants.HeaderContentLength,
	constants.HeaderHost,
	constants.HeaderTransferEncoding,
	constants.HeaderAcceptEncoding,
}

func isRegeneratedHeader(name string) bool {
	return slices.ContainsFunc(regeneratedHeaders, func(h string) bool {
		return strings.EqualFold(h, name)
	})
}

// BuildUpstreamRequest serialises the request line, the surviving client headers
// in their original order, and body into a single buffer for one write.
// The upstream always sees Connection: close and a Content-Length matching body.
func BuildUpstreamRequest(req *Request, body []byte, upstreamHost string) []byte {
	var b bytes.Buffer
	b.Grow(len(body) + 512)

	b.WriteString(req.Method)
	b.WriteByte(' ')
	b.WriteString(req.Target)
	b.WriteByte(' ')
	b.WriteString(req.Version)
	b.WriteString("\r\n")

	for _, h := range req.Headers {
		if isRegeneratedHeader(h.Name) {
			continue
		}
		writeHeader(&b, h.Name, h.Value)
	}
	writeHeader(&b, constants.HeaderHost, upstreamHost)
	writeHeader(&b, constants.HeaderConnection, constants.ConnectionClose)
	writeHeader(&b, constants.HeaderContentLength, strconv.Itoa(len(body)))
	b.WriteString("\r\n")
	b.Write(body)

	return b.Bytes()
}

func writeHeader(b *bytes.Buffer, name, value string) {
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}
