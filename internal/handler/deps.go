package handler

import (
	"github.com/prometheus/client_golang/prometheus"

	"vibecheck/internal/app/gateway"
	"vibecheck/internal/app/prefsync"
	"vibecheck/internal/app/session"
	"vibecheck/internal/app/storage"
	"vibecheck/internal/configs"
	"vibecheck/internal/pkg/metrics"
)

type AppDeps struct {
	Config      *configs.AppConfig
	Gateway     *gateway.Client
	Sessions    *session.Service
	Preferences *prefsync.Manager
	Storage     storage.LocalStorage
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
}
