package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	fqdn "github.com/Showmax/go-fqdn"
	"github.com/alecthomas/kingpin/v2"
	"github.com/jonboulle/clockwork"

	"github.com/driftwatch/provision-relay/internal/agent/callback"
	"github.com/driftwatch/provision-relay/internal/agent/lockfile"
	"github.com/driftwatch/provision-relay/internal/agent/scheduler"
	"github.com/driftwatch/provision-relay/internal/config"
	"github.com/driftwatch/provision-relay/pkg/logger"
)

var (
	app = kingpin.New("provision-agent",
		"Host agent that periodically requests reprovisioning from the relay.")

	configPath = app.Flag("config", "Path to the agent configuration file.").
			Short('c').Envar("AGENT_CONFIG").Default(config.DefaultAgentConfigPath).String()

	daemonCmd = app.Command("daemon", "Run the callback loop.").Default()
	onceCmd   = app.Command("once", "Perform a single callback and exit.")
	testCmd   = app.Command("test", "Print the resolved hostname, delay and configuration.")
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	log, err := logger.NewLoggerFromEnv("agent")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	explicit := *configPath != config.DefaultAgentConfigPath
	cfg, err := config.LoadAgentConfig(*configPath, explicit)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	host := resolveHostname(cfg)

	switch command {
	case daemonCmd.FullCommand():
		os.Exit(runDaemon(cfg, host, log))
	case onceCmd.FullCommand():
		os.Exit(runOnce(cfg, host, log))
	case testCmd.FullCommand():
		runTest(cfg, host)
	}
}

// resolveHostname prefers the configured override, then the FQDN, then the
// kernel hostname. Relay-side validation is the authority on the value.
func resolveHostname(cfg *config.AgentConfig) string {
	if cfg.HostnameOverride != "" {
		return cfg.HostnameOverride
	}
	if name, err := fqdn.FqdnHostname(); err == nil && name != "" {
		return name
	}
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return name
}

func runDaemon(cfg *config.AgentConfig, host string, log *logger.CanonicalLogger) int {
	if !cfg.IsEnabled() {
		log.Warn("agent is disabled by configuration, exiting")
		return 0
	}

	lockPath := cfg.LockPath
	if lockPath == "" {
		lockPath = lockfile.DefaultPath()
	}
	lock, err := lockfile.Acquire(lockPath, host, log)
	if err != nil {
		if errors.Is(err, lockfile.ErrAlreadyRunning) {
			// Another instance is doing the job; that is the desired state.
			log.Info("another agent instance holds the lock, exiting")
			return 0
		}
		log.WithError(err).Error("failed to acquire instance lock")
		return 1
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.WithError(err).Error("failed to release instance lock")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigChan
		log.Info("shutdown signal received", logger.String("signal", sig.String()))
		cancel()
	}()

	client := callback.NewClient(cfg.RelayURL, cfg.RequestTimeout(), log)
	sched := scheduler.New(host, cfg.Interval(), client, clockwork.NewRealClock(), log)

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("scheduler stopped with error")
		return 1
	}

	log.Info("agent stopped gracefully")
	return 0
}

func runOnce(cfg *config.AgentConfig, host string, log *logger.CanonicalLogger) int {
	if !cfg.IsEnabled() {
		log.Error("agent is disabled by configuration, refusing one-shot callback")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout()+5*time.Second)
	defer cancel()

	client := callback.NewClient(cfg.RelayURL, cfg.RequestTimeout(), log)
	result := client.Do(ctx, host)

	switch result.Outcome {
	case callback.Success, callback.SoftFailure:
		return 0
	default:
		return 1
	}
}

// runTest prints the resolved scheduling decision without touching the
// network, so operators can check a host's configuration before enrolling it.
func runTest(cfg *config.AgentConfig, host string) {
	delay := scheduler.DelayFor(host, cfg.Interval())
	fmt.Printf("hostname:       %s\n", host)
	fmt.Printf("relay_url:      %s\n", cfg.RelayURL)
	fmt.Printf("interval_hours: %d\n", cfg.IntervalHours)
	fmt.Printf("enabled:        %t\n", cfg.IsEnabled())
	fmt.Printf("delay_seconds:  %d\n", int(delay/time.Second))
	fmt.Printf("first_callback: %s\n", time.Now().Add(delay).Format(time.RFC3339))
}
