//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/behave/internal/config"
	"github.com/zeusync/behave/internal/core/observability/log"
)

var runtimeSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideBus,
	ProvideMetrics,
	ProvideRegistry,
	ProvideManager,
	ProvideServer,
	wire.Struct(new(Runtime), "*"),
)

func InitializeRuntime(cfg config.Config) (*Runtime, error) {
	wire.Build(runtimeSet)
	return nil, nil
}
