package httpserver

import "context"

// Endpoint is a registrable request handler.
//
// VerifyPath must be cheap and free of side effects; it runs under the
// registry read lock, once per registered endpoint per request.
// CreateStreamResponse serves GET, PostComplete serves POST once the body
// is complete. Both return the response status; a returned error replaces
// any buffered output with an error response.
//
// Endpoints are compared by identity, so implementations should be
// pointer types.
type Endpoint interface {
	VerifyPath(path, method string) bool
	CreateStreamResponse(ctx context.Context, conn *Connection) (int, error)
	PostComplete(ctx context.Context, conn *Connection) (int, error)
}
