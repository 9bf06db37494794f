package handlers

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics renders the registry in the Prometheus text format. Without
// background scraping, a scrape cycle runs first; if the cycle cannot run the
// response is a 500 carrying the error text.
func (h *Handler) Metrics() http.Handler {
	render := promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
		ErrorLog:      zapErrorLog{h},
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.scraper.Background() {
			if _, err := h.scraper.Scrape(r.Context()); err != nil {
				h.logger.Errorw("Scrape failed", "error", err)
				w.Header().Set("Content-Type", "text/html")
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, err.Error())
				return
			}
		}
		render.ServeHTTP(w, r)
	})
}

// zapErrorLog adapts the handler logger to promhttp.Logger
type zapErrorLog struct {
	h *Handler
}

func (l zapErrorLog) Println(v ...interface{}) {
	l.h.logger.Errorw("Metrics rendering error", "error", fmt.Sprint(v...))
}
