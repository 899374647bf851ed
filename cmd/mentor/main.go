// Command mentor runs the DSA tutoring service: an LLM mentor with a
// persistent Go code runner, streamed to clients over HTTP as NDJSON.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dsalab/mentor"
	"github.com/dsalab/mentor/internal/config"
	"github.com/dsalab/mentor/observer"
	"github.com/dsalab/mentor/provider/resolve"
	"github.com/dsalab/mentor/server"
	"github.com/dsalab/mentor/tools/advisor"
	"github.com/dsalab/mentor/tools/runner"
)

func main() {
	// 1. Load config
	cfg := config.Load(os.Getenv("MENTOR_CONFIG"))

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Create provider
	llm, err := resolve.Provider(resolve.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		log.Fatalf("provider: %v", err)
	}
	llm = mentor.WithRetry(llm, mentor.RetryLogger(logger))

	// 3. Observability (optional)
	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		pricing := make(map[string]observer.ModelPricing, len(cfg.Observer.Pricing))
		for model, p := range cfg.Observer.Pricing {
			pricing[model] = observer.ModelPricing{InputPerMillion: p.Input, OutputPerMillion: p.Output}
		}
		var shutdown func(context.Context) error
		inst, shutdown, err = observer.Init(ctx, pricing)
		if err != nil {
			log.Fatalf("observer: %v", err)
		}
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := shutdown(shutCtx); err != nil {
				logger.Error("observer shutdown", "error", err)
			}
		}()
		llm = observer.WrapProvider(llm, cfg.LLM.Model, inst)
	}

	// 4. Create mentor with tools
	advisorTool := advisor.New(llm, advisor.WithLogger(logger))

	opts := []mentor.Option{
		mentor.WithLogger(logger),
		mentor.WithSessionTool(func() mentor.Tool {
			var t mentor.Tool = runner.New()
			if inst != nil {
				t = observer.WrapTool(t, inst)
			}
			return t
		}),
	}
	if inst != nil {
		opts = append(opts,
			mentor.WithTools(observer.WrapTool(advisorTool, inst)),
			mentor.WithTracer(observer.NewTracer()),
		)
	} else {
		opts = append(opts, mentor.WithTools(advisorTool))
	}
	if cfg.Mentor.MaxRounds > 0 {
		opts = append(opts, mentor.WithMaxRounds(cfg.Mentor.MaxRounds))
	}
	if cfg.Mentor.SystemPrompt != "" {
		opts = append(opts, mentor.WithSystemPrompt(cfg.Mentor.SystemPrompt))
	}
	m := mentor.New(llm, opts...)

	// 5. Serve until interrupted
	srv := server.New(m,
		server.WithLogger(logger),
		server.WithPaceDelay(time.Duration(cfg.Server.StreamDelayMS)*time.Millisecond),
	)
	if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
		log.Fatalf("server: %v", err)
	}
	logger.Info("stopped")
}
