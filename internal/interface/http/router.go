package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/thermostraw/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *DashboardHandler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
	)

	router.GET("/healthz", handler.Health)

	sessions := newSessionManager(cfg.Session)
	app := router.Group("/")
	app.Use(
		errorHandlingMiddleware(handler.logger),
		rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger),
		sessionMiddleware(sessions, handler.logger),
	)
	{
		app.GET("/", handler.Page)
		app.POST("/predict", handler.PredictForm)
	}

	api := app.Group("/api/v1")
	{
		api.POST("/predictions", handler.Predict)
		api.GET("/state", handler.State)
		api.GET("/fractions/total", handler.FractionTotal)

		api.GET("/chart.png", handler.ChartPNG)
		api.POST("/chart/export", handler.ExportChart)

		api.GET("/report.txt", handler.ReportText)
		api.POST("/report/copy", handler.CopyReport)
		api.GET("/report.pdf", handler.ReportPDF)

		api.GET("/threshold", handler.Threshold)
		api.POST("/threshold/open", handler.OpenThreshold)
		api.POST("/threshold/pin", handler.SubmitThresholdPIN)
		api.POST("/threshold/value", handler.SubmitThresholdValue)
		api.POST("/threshold/back", handler.BackThreshold)
		api.POST("/threshold/cancel", handler.CancelThreshold)
		api.GET("/threshold/dialog", handler.ThresholdDialog)

		api.GET("/export.csv", handler.ExportCSV)
		api.GET("/history", handler.History)
		api.GET("/history.xlsx", handler.HistoryXLSX)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
