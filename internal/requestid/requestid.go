// Package requestid carries the HTTP request id through context.Context so
// log lines written below the handlers can be matched to the access log.
package requestid

import "context"

type key struct{}

func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, key{}, id)
}

// From returns the request id, or "-" outside a request.
func From(ctx context.Context) string {
	if id, ok := ctx.Value(key{}).(string); ok && id != "" {
		return id
	}
	return "-"
}
