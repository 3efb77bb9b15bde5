package constants

type contextKey string

const (
	ContextConnIDKey    contextKey = "conn_id"    // assigned when the acceptor admits a connection
	ContextRequestIDKey contextKey = "request_id" // metadata id of the exchange, shared with logs
)
