package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bidzhoyandavid/auto-bot/pkg/httpx/reply"
)

func (s Server) RegisterRoutes(r chi.Router) {
	// unauthorized zone: liveness для внешних аптайм-проверок
	r.Get("/", handler(s.getLiveness))
	r.Get("/health", handler(s.getLiveness))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/stats", handler(s.getV1Stats))
		r.Get("/proxies", handler(s.getV1Proxies))
	})
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			reply.Error(r.Context(), w, err)
		}
	}
}
