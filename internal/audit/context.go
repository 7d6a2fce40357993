package audit

import "context"

type clientIPKey struct{}

// WithClientIP stores the request's client address so Record can stamp it on
// entries without every service threading it through.
func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func clientIPFromContext(ctx context.Context) *string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok && ip != "" {
		return &ip
	}
	return nil
}
