package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// corsPolicy is the header set sent with every API response. The API is
// read-only, so dashboards on any origin may poll it.
type corsPolicy map[string]string

func readOnlyCORS() corsPolicy {
	return corsPolicy{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, OPTIONS",
		"Access-Control-Allow-Headers": "Accept, Authorization, Cache-Control, Content-Type, Last-Event-ID",
		"Access-Control-Max-Age":       "86400",
	}
}

// middleware sets the policy on huma operations.
func (p corsPolicy) middleware(ctx huma.Context, next func(huma.Context)) {
	for k, v := range p {
		ctx.SetHeader(k, v)
	}
	next(ctx)
}

// preflight answers OPTIONS on the mux, which huma never routes.
func (p corsPolicy) preflight(w http.ResponseWriter, _ *http.Request) {
	for k, v := range p {
		w.Header().Set(k, v)
	}
	w.WriteHeader(http.StatusNoContent)
}
