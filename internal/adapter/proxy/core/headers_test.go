package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildUpstreamRequest(t *testing.T) {
	req := &Request{
		Method:  "POST",
		Target:  "/v1/messages?beta=true",
		Version: "HTTP/1.1",
		Headers: []Header{
			{Name: "Host", Value: "localhost:8318"},
			{Name: "x-api-key", Value: "secret"},
			{Name: "Connection", Value: "keep-alive"},
			{Name: "content-length", Value: "17"},
			{Name: "Accept-Encoding", Value: "gzip"},
			{Name: "Transfer-Encoding", Value: "identity"},
			{Name: "anthropic-version", Value: "2023-06-01"},
		},
	}
	body := []byte(`{"model":"claude-sonnet-4"}`)

	got := BuildUpstreamRequest(req, body, "127.0.0.1:8317")

	want := "POST /v1/messages?beta=true HTTP/1.1\r\n" +
		"x-api-key: secret\r\n" +
		"anthropic-version: 2023-06-01\r\n" +
		"Host: 127.0.0.1:8317\r\n" +
		"Connection: close\r\n" +
		"Content-Length: 27\r\n" +
		"\r\n" +
		`{"model":"claude-sonnet-4"}`
	assert.Equal(t, want, string(got))
}

func TestBuildUpstreamRequest_EmptyBody(t *testing.T) {
	req := &Request{Method: "GET", Target: "/v1/models", Version: "HTTP/1.1"}

	got := BuildUpstreamRequest(req, nil, "127.0.0.1:8317")
	assert.Equal(t, "GET /v1/models HTTP/1.1\r\nHost: 127.0.0.1:8317\r\nConnection: close\r\nContent-Length: 0\r\n\r\n", string(got))
}
