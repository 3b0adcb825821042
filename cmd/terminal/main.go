// Command terminal runs the door/till session loop: it mounts the guarded
// view for its role, drops to the closed page when the branch closes and
// returns once it reopens.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/spec-kit/ebingo-service/internal/apiclient"
	"github.com/spec-kit/ebingo-service/internal/clock"
	"github.com/spec-kit/ebingo-service/internal/config"
	"github.com/spec-kit/ebingo-service/internal/gate"
	"github.com/spec-kit/ebingo-service/internal/observability"
)

type navigation struct {
	path     string
	branchID *int64
}

type closer interface {
	Close()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App, "terminal")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	routes := gate.DefaultRoutes()
	if cfg.Terminal.RoutesFile != "" {
		routes, err = gate.LoadRoutes(cfg.Terminal.RoutesFile)
		if err != nil {
			logger.Fatal("failed to load routes", zap.Error(err))
		}
	}

	client := apiclient.New(cfg.Terminal.APIURL, cfg.Terminal.Token, cfg.Terminal.Timeout())
	if client.Token() == "" && cfg.Terminal.Username != "" {
		if _, err := client.Login(ctx, cfg.Terminal.Username, cfg.Terminal.Password); err != nil {
			logger.Fatal("login failed", zap.Error(err))
		}
	}

	g, err := gate.New(gate.Options{
		Routes:             routes,
		Source:             client,
		Clock:              clock.NewVenue(cfg.Schedule.Timezone),
		PollInterval:       cfg.Schedule.GatePollInterval(),
		ClosedPollInterval: cfg.Schedule.ClosedPollInterval(),
		FailureThreshold:   cfg.Schedule.FailureThreshold,
		Logger:             logger,
		Metrics:            observability.NewMetrics(),
	})
	if err != nil {
		logger.Fatal("failed to build gate", zap.Error(err))
	}

	run(ctx, g, client.Token(), cfg.Terminal.Path, logger)
}

func run(ctx context.Context, g *gate.Gate, token, start string, logger *zap.Logger) {
	nav := make(chan navigation, 1)
	nav <- navigation{path: start}
	redirect := func(o gate.Outcome) {
		select {
		case nav <- navigation{path: o.Redirect, branchID: o.BranchID}:
		default:
		}
	}

	var current closer
	defer func() {
		if current != nil {
			current.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("terminal stopping")
			return
		case next := <-nav:
			if current != nil {
				current.Close()
				current = nil
			}

			switch next.path {
			case g.Routes().Login:
				logger.Warn("session required; log in again")
				return
			case g.Routes().Closed:
				current = g.Closed(ctx, next.branchID, token, func(v gate.ClosedView) {
					fields := []zap.Field{zap.String("message", v.Message), zap.Bool("unset", v.Unset), zap.Bool("unavailable", v.Unavailable)}
					if v.Countdown != nil {
						fields = append(fields, zap.String("opens_in", v.Countdown.String()))
					}
					logger.Info("closed", fields...)
				}, redirect)
			default:
				view, outcome := g.Mount(ctx, token, next.path, redirect)
				if view == nil {
					redirect(outcome)
					continue
				}
				logger.Info("view mounted", zap.String("path", next.path))
				current = view
			}
		}
	}
}
