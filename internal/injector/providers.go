package injector

import (
	"github.com/zeusync/behave/internal/config"
	"github.com/zeusync/behave/internal/core/agent"
	"github.com/zeusync/behave/internal/core/bt/loader"
	"github.com/zeusync/behave/internal/core/bt/script"
	"github.com/zeusync/behave/internal/core/events/bus"
	"github.com/zeusync/behave/internal/core/observability/log"
	"github.com/zeusync/behave/internal/server"
)

// Runtime is everything btrun needs to drive a population of agents.
// Server is nil when no trace listen address is configured.
type Runtime struct {
	Logger   *log.Logger
	Bus      bus.EventBus
	Metrics  *agent.Metrics
	Registry *loader.Registry
	Manager  *agent.Manager
	Server   *server.Server
}

func ProvideLogger(cfg config.Config) *log.Logger {
	return log.New(cfg.Level())
}

func ProvideBus() bus.EventBus {
	return bus.New()
}

func ProvideMetrics(cfg config.Config, events bus.EventBus) (*agent.Metrics, error) {
	m := agent.NewMetrics(cfg.Trace.Namespace)
	if err := m.Attach(events); err != nil {
		return nil, err
	}
	return m, nil
}

// ProvideRegistry returns the builtin actions and conditions plus the
// scripted action.
func ProvideRegistry() *loader.Registry {
	reg := loader.NewDefaultRegistry()
	script.Register(reg)
	return reg
}

func ProvideManager(cfg config.Config, reg *loader.Registry, events bus.EventBus, metrics *agent.Metrics, logger log.Log) *agent.Manager {
	return agent.NewManager(agent.Config{
		Workers:         cfg.Agents.Workers,
		MaxStepsPerTick: cfg.Tick.MaxSteps,
	}, reg, events, metrics, logger)
}

func ProvideServer(cfg config.Config, events bus.EventBus, metrics *agent.Metrics, logger log.Log) (*server.Server, error) {
	if cfg.Trace.Listen == "" {
		return nil, nil
	}
	sc := server.DefaultConfig()
	sc.ListenAddr = cfg.Trace.Listen
	sc.Token = cfg.Trace.Token
	return server.New(sc, events, metrics.Handler(), logger)
}
