package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/hupe1980/agentweave/config"
	"github.com/hupe1980/agentweave/engine"
	"github.com/hupe1980/agentweave/logging"
	"github.com/hupe1980/agentweave/metrics"
	"github.com/hupe1980/agentweave/model"
	anthropicmodel "github.com/hupe1980/agentweave/model/anthropic"
	"github.com/hupe1980/agentweave/model/gemini"
	"github.com/hupe1980/agentweave/model/ollama"
	"github.com/hupe1980/agentweave/model/openai"
	"github.com/hupe1980/agentweave/patterns"
	"github.com/hupe1980/agentweave/tracing"
)

// app bundles everything a command needs to run workflows.
type app struct {
	cfg      *config.Config
	logger   logging.Logger
	recorder *metrics.Recorder
	engine   *engine.Engine
	provider *trace.TracerProvider
}

// newApp loads the configuration and wires the engine with every prebuilt
// workflow registered. Logs go to logOut.
func newApp(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: logOut,
	})

	recorder := metrics.NewRecorder()

	llm, err := newModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	observed := model.Observe(llm, func(o *model.ObservedOptions) {
		o.Logger = logger
		o.Recorder = recorder
	})

	a := &app{cfg: cfg, logger: logger, recorder: recorder}

	var tracer *tracing.Tracer

	if cfg.Telemetry.Tracing {
		tp, err := tracing.NewProvider(ctx, "agentweave")
		if err != nil {
			return nil, err
		}

		tracing.Install(tp)

		a.provider = tp
		tracer = tracing.NewTracer(tp)
	}

	a.engine = engine.New(func(o *engine.Options) {
		o.Logger = logger
		o.Tracer = tracer
		o.Recorder = recorder
		o.Hooks = append(o.Hooks, recorder)
		o.MaxModelCalls = cfg.Model.MaxCallsPerInvocation
	})

	if strings.EqualFold(cfg.Log.Level, "debug") {
		registerTraceCallbacks(a.engine.Callbacks(), logger)
	}

	if err := patterns.Register(a.engine, observed, patterns.WithConfig(cfg), func(o *patterns.Options) {
		o.Logger = logger
	}); err != nil {
		return nil, err
	}

	logger.Info("app.ready",
		"provider", cfg.Model.Provider,
		"model", observed.Info().Name,
		"workflows", len(a.engine.Workflows()),
	)

	return a, nil
}

// registerTraceCallbacks logs every lifecycle event of every agent at debug
// level.
func registerTraceCallbacks(cm *engine.CallbackManager, logger logging.Logger) {
	for _, typ := range []engine.CallbackType{
		engine.CallbackBeforeWorkflow,
		engine.CallbackBeforeAgent,
		engine.CallbackAfterAgent,
		engine.CallbackOnError,
		engine.CallbackAfterWorkflow,
	} {
		cm.RegisterCallback(engine.NewLoggingCallback(typ, func(msg string) {
			logger.Debug("workflow.trace", "event", msg)
		}))
	}
}

// Close flushes telemetry.
func (a *app) Close(ctx context.Context) error {
	if a.provider == nil {
		return nil
	}

	return a.provider.Shutdown(ctx)
}

// newModel creates the model adapter selected by cfg.Provider.
func newModel(cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return gemini.NewModel(func(o *gemini.Options) {
			o.APIKey = cfg.APIKey
			o.Temperature = float32(cfg.Temperature)
			o.MaxOutputTokens = int32(cfg.MaxTokens)

			if cfg.Name != "" {
				o.Model = cfg.Name
			}
		}), nil
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = cfg.APIKey
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = int64(cfg.MaxTokens)
			o.BaseURL = cfg.Host

			if cfg.Name != "" {
				o.Model = cfg.Name
			}
		}), nil
	case config.ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.APIKey = cfg.APIKey
			o.Temperature = cfg.Temperature
			o.MaxTokens = int64(cfg.MaxTokens)

			if cfg.Name != "" {
				o.Model = anthropic.Model(cfg.Name)
			}
		}), nil
	case config.ProviderOllama:
		return ollama.NewModel(func(o *ollama.Options) {
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens

			if cfg.Name != "" {
				o.Model = cfg.Name
			}

			if cfg.Host != "" {
				o.Host = cfg.Host
			}
		}), nil
	case config.ProviderMock:
		return model.NewMockModel(cfg.Name), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}
