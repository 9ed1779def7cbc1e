// Package main runs the reasongate server: an OpenAI-compatible proxy that
// applies named inference approaches to chat completions before they reach
// the backing model.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	reasongate "github.com/cortexflow-ai/reasongate"
	"github.com/cortexflow-ai/reasongate/internal/logging"
	"github.com/cortexflow-ai/reasongate/internal/version"

	// Register shipped extension factories so manifests can reference them.
	_ "github.com/cortexflow-ai/reasongate/internal/extension/majority"
)

type serverFlags struct {
	configPath string
	port       int
	approach   string
	repeat     int
	baseURL    string
	apiKey     string
	rateLimit  float64

	bestOfN          int
	mctsSimulations  int
	mctsExploration  float64
	mctsDepth        int
	rstarMaxDepth    int
	rstarNumRollouts int
	rstarC           float64
	returnFull       bool

	extensionsDir string
	bundledDir    string
	logDriver     string
	logDSN        string
	logLevel      string
	logFormat     string
}

func main() {
	flags := &serverFlags{}

	root := &cobra.Command{
		Use:     "reasongate",
		Short:   "OpenAI-compatible proxy that applies inference approaches to chat completions",
		Version: version.String(),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd, flags)
		},
	}

	f := root.Flags()
	f.StringVar(&flags.configPath, "config", "", "path to a JSON or YAML config file")
	f.IntVar(&flags.port, "port", 8000, "port to listen on")
	f.StringVar(&flags.approach, "approach", "auto", "default approach applied when the request carries none")
	f.IntVar(&flags.repeat, "n", 1, "number of times to execute the request's combination")
	f.StringVar(&flags.baseURL, "base-url", "", "base URL of an OpenAI-compatible backend")
	f.StringVar(&flags.apiKey, "api-key", "", "bearer token clients must present (empty disables auth)")
	f.Float64Var(&flags.rateLimit, "rate-limit", 0, "requests per second allowed per caller (0 disables)")
	f.IntVar(&flags.bestOfN, "best-of-n", 3, "samples drawn by the best_of_n approach")
	f.IntVar(&flags.mctsSimulations, "mcts-simulations", 2, "simulations per MCTS run")
	f.Float64Var(&flags.mctsExploration, "mcts-exploration", 0.2, "MCTS exploration weight")
	f.IntVar(&flags.mctsDepth, "mcts-depth", 1, "MCTS simulation depth")
	f.IntVar(&flags.rstarMaxDepth, "rstar-max-depth", 3, "maximum search depth for rStar")
	f.IntVar(&flags.rstarNumRollouts, "rstar-num-rollouts", 5, "rollouts per rStar run")
	f.Float64Var(&flags.rstarC, "rstar-c", 1.4, "rStar exploration constant")
	f.BoolVar(&flags.returnFull, "return-full-response", false, "return full responses including reasoning tags")
	f.StringVar(&flags.extensionsDir, "extensions-dir", "", "directory of operator extension manifests")
	f.StringVar(&flags.bundledDir, "bundled-extensions-dir", "", "directory of bundled extension manifests")
	f.StringVar(&flags.logDriver, "request-log", "", "request log driver: sqlite or postgres")
	f.StringVar(&flags.logDSN, "request-log-dsn", "", "request log connection string")
	f.StringVar(&flags.logLevel, "log", "info", "log level: debug, info, warn, error")
	f.StringVar(&flags.logFormat, "log-format", "json", "log format: json or text")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, flags *serverFlags) error {
	// A .env file in the working directory supplies backend credentials.
	_ = godotenv.Load()

	cfg, err := buildConfig(cmd, flags)
	if err != nil {
		return err
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	gw, err := reasongate.New(cfg)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	defer func() {
		_ = gw.Close()
	}()
	gw.LoadExtensions()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(gw, cfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Println("Shutting down gracefully…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("reasongate %s listening on %s", version.Short(), srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stop()
		return fmt.Errorf("server error: %w", err)
	}
	log.Println("Server stopped.")
	return nil
}

// buildConfig layers the effective configuration: defaults, then the config
// file, then any flag the operator set explicitly.
func buildConfig(cmd *cobra.Command, flags *serverFlags) (reasongate.Config, error) {
	cfg := reasongate.DefaultConfig()
	if flags.configPath != "" {
		loaded, err := reasongate.LoadConfig(flags.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = *loaded
	}

	set := cmd.Flags().Changed
	if set("port") {
		cfg.Server.Port = flags.port
	}
	if set("api-key") {
		cfg.Server.APIKey = flags.apiKey
	}
	if set("rate-limit") {
		cfg.Server.RateLimit = flags.rateLimit
	}
	if set("approach") {
		cfg.Approach = flags.approach
	}
	if set("n") {
		cfg.Repeat = flags.repeat
	}
	if set("base-url") {
		cfg.Upstream.BaseURL = flags.baseURL
	}
	if set("best-of-n") {
		cfg.Defaults.BestOfN = flags.bestOfN
	}
	if set("mcts-simulations") {
		cfg.Defaults.MCTSSimulations = flags.mctsSimulations
	}
	if set("mcts-exploration") {
		cfg.Defaults.MCTSExploration = flags.mctsExploration
	}
	if set("mcts-depth") {
		cfg.Defaults.MCTSDepth = flags.mctsDepth
	}
	if set("rstar-max-depth") {
		cfg.Defaults.RStarMaxDepth = flags.rstarMaxDepth
	}
	if set("rstar-num-rollouts") {
		cfg.Defaults.RStarNumRollouts = flags.rstarNumRollouts
	}
	if set("rstar-c") {
		cfg.Defaults.RStarC = flags.rstarC
	}
	if set("return-full-response") {
		cfg.Defaults.ReturnFull = flags.returnFull
	}
	if set("extensions-dir") {
		cfg.Extensions.LocalDir = flags.extensionsDir
	}
	if set("bundled-extensions-dir") {
		cfg.Extensions.BundledDir = flags.bundledDir
	}
	if set("request-log") {
		cfg.RequestLog.Driver = flags.logDriver
	}
	if set("request-log-dsn") {
		cfg.RequestLog.DSN = flags.logDSN
	}
	if set("log") {
		cfg.Log.Level = flags.logLevel
	}
	if set("log-format") {
		cfg.Log.Format = flags.logFormat
	}
	return cfg, nil
}
