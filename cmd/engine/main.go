package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/engine"
	"main/internal/feed"
	"main/internal/journal"
	"main/internal/ops"
	"main/internal/store"
)

const defaultWsURL = "wss://advanced-trade-ws.coinbase.com"

func main() {
	if err := run(); err != nil {
		logs.Errorf("engine: %v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to KEY=VALUE config file")
	logDir := flag.String("log-dir", "logs", "directory for log streams and reports")
	wsURL := flag.String("ws-url", defaultWsURL, "level-2 websocket endpoint")
	synthetic := flag.Bool("synthetic", false, "use the synthetic tick generator instead of the websocket feed")
	redisAddr := flag.String("redis", "", "redis address for the order cache (empty = no persistence)")
	postgresDSN := flag.String("postgres-dsn", "", "postgres DSN for the order archive (empty = no persistence)")
	profile := flag.Bool("pyroscope", false, "enable pyroscope profiling")
	profileServer := flag.String("pyroscope-server", "http://localhost:4040", "pyroscope server address")
	flag.Parse()

	cfg, err := ops.Load(*configPath)
	if err != nil {
		return err
	}

	if *profile {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "hft/engine",
			ServerAddress:   *profileServer,
			Tags: map[string]string{
				"symbol": cfg.TradingSymbol,
			},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	jnl, err := journal.Open(*logDir, journal.ParseLevel(cfg.LogLevel))
	if err != nil {
		return err
	}

	kv, err := openStore(*redisAddr, *postgresDSN)
	if err != nil {
		return err
	}

	source := openSource(cfg, *wsURL, *synthetic)

	if !cfg.PaperTrading {
		return fmt.Errorf("live trading gateway is not wired in this build; set PAPER_TRADING=true")
	}

	eng := engine.New(engine.Options{
		Config:  cfg,
		Source:  source,
		Store:   kv,
		Journal: jnl,
		LogDir:  *logDir,
	})

	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		return err
	}
	logs.Infof("quoting %s | capital $%.2f | size %.4f | spread target %.1f bps | paper=%v",
		cfg.TradingSymbol, cfg.InitialCapital, cfg.OrderSize, cfg.SpreadThresholdBps, cfg.PaperTrading)

	done := make(chan struct{})
	go func() {
		eng.Wait()
		close(done)
	}()

	select {
	case <-sys.Shutdown():
		logs.Info("shutdown requested")
	case <-done:
		if eng.EmergencyTriggered() {
			logs.Error("engine stopped itself: risk emergency")
		}
	}

	// A second interrupt inside the grace window forces an exit.
	force := make(chan os.Signal, 1)
	signal.Notify(force, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-force
		logs.Error("forced exit")
		os.Exit(1)
	}()

	stopped := make(chan struct{})
	go func() {
		eng.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(15 * time.Second):
		return fmt.Errorf("shutdown timed out")
	}
	return nil
}

func openStore(redisAddr, postgresDSN string) (store.KeyValueStore, error) {
	switch {
	case redisAddr != "":
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return store.NewRedis(ctx, redisAddr, "", 0, 24*time.Hour)
	case postgresDSN != "":
		return store.NewPostgres(store.PostgresOption{ConnString: postgresDSN})
	default:
		return store.NewNoop(), nil
	}
}

func openSource(cfg ops.Config, wsURL string, synthetic bool) feed.Source {
	if synthetic {
		return feed.NewSynth(feed.SynthConfig{
			BasePrice: 3000,
			Spread:    0.02,
			BaseSize:  1,
			Depth:     20,
			Interval:  50 * time.Millisecond,
		})
	}
	return feed.NewWSSource(feed.WSConfig{URL: wsURL})
}
