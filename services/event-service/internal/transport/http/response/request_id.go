package response

import (
	"net/http"

	"github.com/baechuer/real-time-ressys/pkg/requestctx"
)

// RequestIDFromRequest prefers the id stored by the RequestID middleware
// and falls back to the inbound header.
func RequestIDFromRequest(r *http.Request) string {
	if v := requestctx.GetRequestID(r.Context()); v != "" {
		return v
	}
	return r.Header.Get(requestctx.HeaderRequestID)
}
