package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/2beens/gymsession/internal"
	"github.com/2beens/gymsession/internal/config"
	"github.com/2beens/gymsession/internal/logging"
	"github.com/2beens/gymsession/pkg"

	log "github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	if cfg.LogsPath != "" {
		logsDir := filepath.Dir(cfg.LogsPath)
		exists, err := pkg.PathExists(logsDir, true)
		if err != nil {
			panic(fmt.Sprintf("check logs dir: %s", err))
		}
		if !exists {
			if err := os.MkdirAll(logsDir, 0o755); err != nil {
				panic(fmt.Sprintf("create logs dir: %s", err))
			}
		}
	}

	flushSentry := logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    cfg.LogFormatJSON,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        os.Getenv("SENTRY_DSN"),
		SentryServerName: "gymsession-service",
	})
	defer flushSentry()

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)

	versionInfo, err := tryGetLastCommitHash()
	if err != nil {
		log.Tracef("failed to get last commit hash / version info: %s", err)
	} else {
		log.Tracef("running version: %s", versionInfo)
	}

	appSecretHash := os.Getenv("GYMSESSION_APP_SECRET_HASH")
	if appSecretHash == "" {
		log.Errorf("app secret hash not set, all workout requests will be rejected. use GYMSESSION_APP_SECRET_HASH")
	}

	redisPassword := os.Getenv("GYMSESSION_REDIS_PASS")
	if redisPassword == "" {
		log.Warnln("redis password not set. use GYMSESSION_REDIS_PASS")
	}

	dbPassword := os.Getenv("GYMSESSION_DB_PASS")
	if dbPassword == "" && cfg.Storage == "postgres" {
		log.Warnln("db password not set. use GYMSESSION_DB_PASS")
	}

	webhookSecret := os.Getenv("GYMSESSION_WEBHOOK_SECRET")
	if webhookSecret == "" && cfg.NotificationWebhookURL != "" {
		log.Warnln("notification webhook secret not set, webhook requests will be unsigned. use GYMSESSION_WEBHOOK_SECRET")
	}

	honeycombEnabled := os.Getenv("HONEYCOMB_ENABLED") == "true"
	if honeycombEnabled {
		if honeycombApiKey := os.Getenv("HONEYCOMB_API_KEY"); honeycombApiKey == "" {
			log.Warnln("HONEYCOMB_API_KEY env var not set")
		}
	} else {
		log.Debugln("honeycomb tracing disabled")
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:                  cfg,
			AppSecretHash:           appSecretHash,
			RedisPassword:           redisPassword,
			DBPassword:              dbPassword,
			WebhookSecret:           webhookSecret,
			VersionInfo:             versionInfo,
			HoneycombTracingEnabled: honeycombEnabled,
		},
	)
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(ctx, cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, killing everything ...", receivedSig)
	cancel()

	server.GracefulShutdown()
}

// tryGetLastCommitHash will try to get the last commit hash
// assumes that the built main executable is in project root
func tryGetLastCommitHash() (string, error) {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	stdout, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(pkg.BytesToString(stdout)), nil
}
