package api

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"

	"github.com/kestrel-trading/kestrel/audit"
)

// AuditMiddleware injects audit context (IP address, API key identifier)
// into the request context for downstream logging. It delegates to
// audit.WithHTTPOrigin so the same keys risk.RiskEngine and broker.SimBroker
// read via audit.IPFromCtx/audit.KeyIDFromCtx are the ones set here.
// The API key identifier is a truncated SHA-256 hash of the key,
// safe for logging without exposing the full key.
func AuditMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr

		apiKey := r.Header.Get("X-Kestrel-API-Key")
		keyID := "dev-mode"
		if apiKey != "" {
			hash := sha256.Sum256([]byte(apiKey))
			keyID = fmt.Sprintf("%x", hash[:4]) // First 8 hex chars
		}

		ctx := audit.WithHTTPOrigin(r.Context(), ip, keyID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuditIPFromCtx extracts the requestor IP from context.
// Returns "unknown" if not present.
func AuditIPFromCtx(ctx context.Context) string {
	return audit.IPFromCtx(ctx)
}

// AuditKeyIDFromCtx extracts the API key identifier from context.
// Returns "unknown" if not present.
func AuditKeyIDFromCtx(ctx context.Context) string {
	return audit.KeyIDFromCtx(ctx)
}
