package ai

import (
	"context"
	"strings"
)

type requestAPIKey struct{}

// WithRequestAPIKey returns a copy of ctx carrying an API key scoped to the
// current request. Concurrent requests use distinct contexts and never see
// each other's key.
func WithRequestAPIKey(ctx context.Context, key string) context.Context {
	key = strings.TrimSpace(key)
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, requestAPIKey{}, key)
}

// RequestAPIKey returns the request-scoped API key stored in ctx, if any.
func RequestAPIKey(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	key, _ := ctx.Value(requestAPIKey{}).(string)
	return key
}

// AuthDefaults holds the process-wide credential configuration.
type AuthDefaults struct {
	APIKey   string
	Project  string
	Location string
}

// DefaultLocation is used for project based auth when no location is set.
const DefaultLocation = "us-central1"

// Auth is the outcome of credential resolution. Exactly one of APIKey or
// Project is set; an empty Auth means an unauthenticated backend.
type Auth struct {
	APIKey   string
	Project  string
	Location string
}

// UsesProject reports whether the alternate project based mode was selected.
func (a Auth) UsesProject() bool {
	return a.APIKey == "" && a.Project != ""
}

// ResolveAuth picks credentials in priority order: the explicit key, the
// request-scoped key from ctx, the process default key and finally the
// process default project. When nothing resolves and required is set it
// fails with ErrNotConfigured wrapped in a *ConfigurationError.
func ResolveAuth(ctx context.Context, explicit string, defaults AuthDefaults, required bool) (Auth, error) {
	for _, key := range []string{explicit, RequestAPIKey(ctx), defaults.APIKey} {
		if k := strings.TrimSpace(key); k != "" {
			return Auth{APIKey: k}, nil
		}
	}

	if project := strings.TrimSpace(defaults.Project); project != "" {
		location := strings.TrimSpace(defaults.Location)
		if location == "" {
			location = DefaultLocation
		}
		return Auth{Project: project, Location: location}, nil
	}

	if required {
		return Auth{}, &ConfigurationError{Err: ErrNotConfigured}
	}
	return Auth{}, nil
}
