// Package httpapi exposes the token operations over a JSON HTTP API. The
// server signs with its configured wallet; callers supply everything else.
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bjeschke/solanahub/internal/lifecycle"
	"github.com/bjeschke/solanahub/internal/observability"
	"github.com/bjeschke/solanahub/internal/tokenops"
	"github.com/bjeschke/solanahub/internal/validate"
)

// Server wires the lifecycle service and inspector into a chi router.
type Server struct {
	svc       *lifecycle.Service
	inspector *tokenops.Inspector

	// actor is the signing wallet's public key; every mutating request
	// acts on its behalf.
	actor common.PublicKey
}

// NewServer creates a Server.
func NewServer(svc *lifecycle.Service, inspector *tokenops.Inspector, actor common.PublicKey) *Server {
	return &Server{svc: svc, inspector: inspector, actor: actor}
}

// Router builds the HTTP route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", observability.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Route("/tokens", func(r chi.Router) {
			r.Post("/", s.handleCreateToken)

			r.Route("/{mint}", func(r chi.Router) {
				r.Post("/mint", s.handleMintTo)
				r.Post("/authority", s.handleSetAuthority)
				r.Post("/authority/revoke", s.handleRevokeAuthority)
				r.Post("/freeze", s.handleFreeze)
				r.Post("/thaw", s.handleThaw)
				r.Post("/metadata", s.handleCreateMetadata)
				r.Put("/metadata", s.handleUpdateMetadata)
				r.Get("/metadata", s.handleLookupMetadata)
				r.Get("/frozen", s.handleFrozenAccounts)
			})
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/tokens", s.handleWalletTokens)
			r.Get("/transactions", s.handleRecentTransactions)
			r.Get("/records", s.handleRecords)
			r.Delete("/records/{mint}", s.handleRemoveRecord)
			r.Get("/lookups", s.handleLookupHistory)
			r.Get("/attempts", s.handleAttempts)
		})
	})

	return r
}

// metricsMiddleware records request counts and latency per route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		observability.RecordHTTPRequest(route, strconv.Itoa(ww.Status()), time.Since(started).Seconds())
	})
}

// parseLimit reads a ?limit query parameter with a default and ceiling.
func parseLimit(r *http.Request, def, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// mintParam parses the {mint} path segment.
func mintParam(r *http.Request) (common.PublicKey, error) {
	return validate.ParseAddress(chi.URLParam(r, "mint"))
}
