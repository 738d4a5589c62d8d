package core

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSMiddleware answers preflight requests and decorates responses with
// CORS headers when the request origin is allowed. A nil or disabled
// config passes requests straight through.
func CORSMiddleware(config *CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config == nil || !config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			applyCORS(w, r, config)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func applyCORS(w http.ResponseWriter, r *http.Request, config *CORSConfig) {
	origin := r.Header.Get("Origin")
	if !isOriginAllowed(origin, config.AllowedOrigins) {
		return
	}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Add("Vary", "Origin")

	if config.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if len(config.AllowedMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
	}
	if len(config.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
	}
	if len(config.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(config.ExposedHeaders, ", "))
	}
	if config.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
	}
}

// isOriginAllowed matches an origin against the allow list. Entries may be
// "*", an exact origin, a subdomain wildcard ("https://*.example.com") or a
// port wildcard ("http://localhost:*"). An empty origin never matches.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}

	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}

		if idx := strings.Index(allowed, "*."); idx >= 0 {
			prefix, suffix := allowed[:idx], allowed[idx+1:] // suffix keeps the leading dot
			if strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
				// the wildcard must stand for at least one label
				if len(origin) > len(prefix)+len(suffix) {
					return true
				}
			}
			continue
		}

		if base, ok := strings.CutSuffix(allowed, ":*"); ok {
			if strings.HasPrefix(origin, base+":") {
				return true
			}
		}
	}

	return false
}
