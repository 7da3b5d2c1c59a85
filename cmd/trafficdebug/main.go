package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/suparena/docstore"
	"github.com/suparena/docstore/config"
	"github.com/suparena/docstore/registry"
	"github.com/suparena/docstore/traffic"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
	envFile     = flag.String("env", ".env", "Environment file to load before reading the environment")
	appID       = flag.String("app", "", "Application id (UUID) to list traffic for")
	idsOnly     = flag.Bool("ids", false, "Print only document ids")
	seed        = flag.Int("seed", 0, "Record this many sample requests for -app before querying")
)

func main() {
	flag.Parse()

	if *versionFlag || *vFlag {
		info := docstore.GetVersionInfo()
		fmt.Printf("docstore trafficdebug version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		os.Exit(0)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}
	logger := config.NewLogger(cfg.Log)

	if *appID == "" {
		fmt.Fprintln(os.Stderr, "usage: trafficdebug -app <application-id> [-ids] [-seed n]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("trafficdebug failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if cfg.Database != "" || cfg.Collection != "" {
		registry.Bind[traffic.Traffic](orDefault(cfg.Database, traffic.DatabaseName), orDefault(cfg.Collection, traffic.CollectionName))
	}

	provider, err := docstore.NewClientProvider(cfg.Endpoint, cfg.Key,
		docstore.WithConnectionPolicy(cfg.Policy),
		docstore.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Reset(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("failed to close client")
		}
	}()

	svc := traffic.NewService(provider, traffic.WithLogger(logger), traffic.WithPageSize(cfg.Policy.PageSize))
	defer svc.Close()

	for i := 0; i < *seed; i++ {
		_, err := svc.Record(ctx, traffic.Traffic{
			RequestPath: fmt.Sprintf("/debug/%d", i),
			Method:      "GET",
			StatusCode:  200,
			Headers:     map[string]string{traffic.ApplicationIDHeader: *appID},
		})
		if err != nil {
			return fmt.Errorf("failed to seed traffic: %w", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	if *idsOnly {
		ids, err := svc.GetTrafficIDs(ctx, *appID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		logger.Info().Int("count", len(ids)).Msg("traffic ids listed")
		return nil
	}

	all, err := svc.GetAllTraffic(ctx, *appID)
	if err != nil {
		return err
	}
	for _, t := range all {
		if err := enc.Encode(t); err != nil {
			return err
		}
	}
	logger.Info().Int("count", len(all)).Msg("traffic listed")
	return nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
