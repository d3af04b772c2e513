package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crowdfund/internal/campaign"
	"crowdfund/internal/chain"
	"crowdfund/internal/config"
	"crowdfund/internal/logger"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)

	go func() {
		configuration, err := config.Load()
		if err != nil {
			errCh <- err
			return
		}

		logger.Initialize(logger.Configuration{
			LogFile:   configuration.LogFile,
			ErrorFile: configuration.LogErrorFile,
			Level:     configuration.LogLevel,
			Console:   configuration.LogConsole,
		})

		gateway, err := chain.NewGateway(configuration)
		if err != nil {
			errCh <- err
			return
		}

		reader, err := gateway.ReadOnly(ctx)
		if err != nil {
			errCh <- err
			return
		}
		defer reader.Close()

		cache := campaign.NewCache(reader.GetAllCampaigns)

		ticker := time.NewTicker(configuration.PollInterval)
		defer ticker.Stop()

		for {
			report(ctx, cache)

			select {
			case <-ctx.Done():
				logger.Info("watcher stopped")
				return
			case <-ticker.C:
			}
		}
	}()

	select {
	case err := <-errCh:
		fmt.Printf("stopping due to error: %v\n", err)
		cancel()
	case <-waitForInterrupt():
		fmt.Println("interrupt received")
		cancel()
	}
}

func report(ctx context.Context, cache *campaign.Cache) {
	now := time.Now()
	for _, c := range cache.GetAll(ctx) {
		derived := campaign.Derive(c, now)
		logger.Info("campaign",
			zap.Uint64("id", c.ID()),
			zap.String("title", c.Title),
			zap.String("status", string(derived.Status)),
			zap.Float64("progressPct", derived.ProgressPct),
			zap.Duration("timeRemaining", derived.TimeRemaining),
		)
	}
}

func waitForInterrupt() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	return sigCh
}
