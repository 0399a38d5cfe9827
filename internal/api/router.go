package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "retail-insights/docs"
	"retail-insights/internal/api/handler"
	"retail-insights/pkg/router"
)

// RegisterRoutes mounts the data, insight and operational endpoints on r.
func RegisterRoutes(r *router.Router, h *handler.Handler) {
	r.POST("/load-data/", h.LoadData)
	r.POST("/process-data/", h.ProcessData)

	r.GET("/insights/daily-revenue", h.DailyRevenue)
	r.GET("/insights/top-skus", h.TopSKUs)
	r.GET("/insights/asp-order-count", h.ASPOrderCount)

	if h.HasRunStore() {
		r.GET("/runs", h.ListRuns)
		r.GET("/runs/{id}", h.GetRun)
	}

	r.GET("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.GET("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
