package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(apiHandler *APIHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Chat accepts anonymous requests; a bearer credential enables the
		// per-user quota and subscription bypass.
		r.With(apiHandler.OptionalAuth).Post("/chat", apiHandler.ChatHandler)

		r.Post("/import", apiHandler.ImportHandler)

		r.Group(func(r chi.Router) {
			r.Use(apiHandler.RequireAuth)
			r.Get("/wishlist", apiHandler.ListWishlistHandler)
			r.Post("/wishlist", apiHandler.AddWishlistHandler)
			r.Delete("/wishlist", apiHandler.RemoveWishlistHandler)
		})
	})

	return r
}

// requestLogger is the zap flavor of chi's request logger.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logger.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)))
		})
	}
}
