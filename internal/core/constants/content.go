package constants

const (
	ContentTypeJSON = "application/json"
	HeaderRequestID = "X-Switchback-Request-ID"
)
