package constants

const (
	DefaultInspectionThreshold = 4096
	DefaultReadBufferSize      = 32 * 1024
	DefaultMaxHeaderBytes      = 1 << 20

	HeaderConnection       = "Connection"
	HeaderContentLength    = "Content-Length"
	HeaderContentType      = "Content-Type"
	HeaderHost             = "Host"
	HeaderTransferEncoding = "Transfer-Encoding"
	HeaderAcceptEncoding   = "Accept-Encoding"

	ConnectionClose = "close"
	ContentTypeText = "text/plain"

	// SanitizedPlaceholder replaces a message whose content was entirely reasoning blocks
	SanitizedPlaceholder = "[thinking omitted]"
)
