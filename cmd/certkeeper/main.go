// Command certkeeper ensures a valid TLS certificate exists for a domain
// set: it checks the current registry state and, when the certificate is
// absent or close to expiry, obtains a fresh one over ACME DNS-01 and
// persists it. A single invocation makes at most one renewal decision, so
// the binary suits cron jobs and scheduled serverless handlers alike.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrymomot/certkeeper/core/config"
	"github.com/dmitrymomot/certkeeper/core/guard"
	"github.com/dmitrymomot/certkeeper/core/logger"
	"github.com/dmitrymomot/certkeeper/core/renewal"
	"github.com/dmitrymomot/certkeeper/integration/aws/acm"
	"github.com/dmitrymomot/certkeeper/integration/aws/route53"
	"github.com/dmitrymomot/certkeeper/integration/aws/ssm"
	"github.com/dmitrymomot/certkeeper/integration/database/redis"
	"github.com/dmitrymomot/certkeeper/pkg/acmeorder"
)

type appConfig struct {
	Name                 string   `env:"CERT_NAME,required"`
	Domains              []string `env:"CERT_DOMAINS,required" envSeparator:","`
	Email                string   `env:"ACME_EMAIL,required"`
	Staging              bool     `env:"ACME_STAGING" envDefault:"true"`
	RenewalThresholdDays int      `env:"RENEWAL_THRESHOLD_DAYS" envDefault:"30"`
	RedisURL             string   `env:"REDIS_URL"`
	Environment          string   `env:"ENVIRONMENT" envDefault:"production"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "configuration:", err)
		os.Exit(2)
	}

	log := newLogger(cfg.Environment)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("renewal failed",
			logger.CertName(cfg.Name),
			logger.Error(err),
			renewalStage(err),
		)
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	var dnsCfg route53.Config
	if err := config.Load(&dnsCfg); err != nil {
		return err
	}
	dns, err := route53.New(ctx, dnsCfg)
	if err != nil {
		return err
	}

	var acmCfg acm.Config
	if err := config.Load(&acmCfg); err != nil {
		return err
	}
	registry, err := acm.New(ctx, acmCfg)
	if err != nil {
		return err
	}

	var ssmCfg ssm.Config
	if err := config.Load(&ssmCfg); err != nil {
		return err
	}
	secrets, err := ssm.New(ctx, ssmCfg)
	if err != nil {
		return err
	}

	orderer, err := acmeorder.NewOrderer(dns,
		acmeorder.WithDNSTimeout(dnsCfg.PropagationTimeout),
		acmeorder.WithLogger(log),
	)
	if err != nil {
		return err
	}

	runGuard, cleanup, err := newGuard(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer cleanup()

	engine := renewal.NewEngine(registry, secrets, orderer,
		renewal.WithGuard(runGuard),
		renewal.WithLogger(log),
	)

	desc, err := engine.Ensure(ctx, renewal.Request{
		Name:      cfg.Name,
		Domains:   cfg.Domains,
		Email:     cfg.Email,
		Staging:   cfg.Staging,
		Threshold: time.Duration(cfg.RenewalThresholdDays) * 24 * time.Hour,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode descriptor: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// newGuard returns a cross-process lock when a Redis URL is configured and
// falls back to the in-process guard otherwise.
func newGuard(ctx context.Context, redisURL string) (guard.Guard, func(), error) {
	if redisURL == "" {
		return guard.NewLocal(), func() {}, nil
	}

	client, err := redis.Connect(ctx, redis.Config{
		ConnectionURL:  redisURL,
		RetryAttempts:  3,
		RetryInterval:  5 * time.Second,
		ConnectTimeout: 30 * time.Second,
	})
	if err != nil {
		return nil, nil, err
	}
	return redis.NewLock(client), func() { _ = client.Close() }, nil
}

func newLogger(environment string) *slog.Logger {
	if environment == "development" {
		return logger.New(logger.WithDevelopment("certkeeper"))
	}
	return logger.New(logger.WithProduction("certkeeper"))
}

// renewalStage surfaces the failed stage as a log attribute when the error
// carries one.
func renewalStage(err error) slog.Attr {
	var rerr *renewal.Error
	if errors.As(err, &rerr) {
		return logger.Stage(string(rerr.Stage))
	}
	return slog.Attr{}
}

// exitCode maps error classes to distinct exit codes so schedulers can
// tell contention and bad input from genuine failures.
func exitCode(err error) int {
	switch {
	case errors.Is(err, guard.ErrBusy):
		return 3
	case errors.Is(err, renewal.ErrInvalidInput):
		return 2
	default:
		return 1
	}
}
