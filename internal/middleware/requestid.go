// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package middleware

import (
	"net/http"

	"github.com/tomtom215/alertrelay/internal/logging"
)

// RequestIDHeader is honored when set by an upstream proxy and echoed back.
const RequestIDHeader = "X-Request-ID"

// maxUpstreamIDLen bounds ids accepted from upstream proxies.
const maxUpstreamIDLen = 64

// RequestID assigns every request an id, echoes it in the response header,
// and stores it in the request context for logging.Ctx.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxUpstreamIDLen {
			requestID = logging.GenerateRequestID()
		}

		w.Header().Set(RequestIDHeader, requestID)
		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
