//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/thermostraw/internal/bootstrap"
	"github.com/yanqian/thermostraw/internal/domain/dashboard"
	"github.com/yanqian/thermostraw/internal/infra/config"
	"github.com/yanqian/thermostraw/internal/infra/document"
	"github.com/yanqian/thermostraw/internal/infra/predictor"
	httpiface "github.com/yanqian/thermostraw/internal/interface/http"
	"github.com/yanqian/thermostraw/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideDashboardConfig,
		providePredictorClient,
		provideChartExporter,
		provideThresholdStore,
		provideThresholdRegistry,
		provideValkeyClient,
		provideSessionStore,
		provideJobQueue,
		provideDashboardQueue,
		provideRecordRepository,
		provideChartArchive,
		document.NewRenderer,
		wire.Bind(new(dashboard.Predictor), new(*predictor.Client)),
		wire.Bind(new(dashboard.Documents), new(*document.Renderer)),
		dashboard.NewService,
		httpiface.NewDashboardHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
