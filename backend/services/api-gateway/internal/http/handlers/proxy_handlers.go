package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"greenhouse/backend/services/api-gateway/internal/clients"
)

const maxProxyBody = 1 << 20

// forwardedHeaders are copied from the client request to the upstream.
var forwardedHeaders = []string{"Content-Type", "X-User-ID", "X-Request-ID"}

// Forwarder relays a request to one upstream service.
type Forwarder interface {
	Name() string
	Forward(ctx context.Context, method, requestURI string, body []byte, headers map[string]string) (int, []byte, error)
}

// NewProxyHandler relays the request unchanged (method, path, query, body
// and identity headers) to upstream and copies the answer back.
func NewProxyHandler(upstream Forwarder, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProxyBody))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}

		headers := make(map[string]string, len(forwardedHeaders))
		for _, h := range forwardedHeaders {
			if v := r.Header.Get(h); v != "" {
				headers[h] = v
			}
		}

		status, respBody, err := upstream.Forward(r.Context(), r.Method, r.URL.RequestURI(), body, headers)
		if err != nil {
			if errors.Is(err, clients.ErrCircuitOpen) {
				logger.Warn("upstream circuit open", zap.String("upstream", upstream.Name()), zap.String("path", r.URL.Path))
				writeError(w, http.StatusServiceUnavailable, upstream.Name()+" temporarily unavailable")
				return
			}
			logger.Error("proxy failed", zap.String("upstream", upstream.Name()), zap.String("path", r.URL.Path), zap.Error(err))
			writeError(w, http.StatusBadGateway, upstream.Name()+" unavailable")
			return
		}
		writeRaw(w, status, respBody)
	}
}
