// Package config provides type-safe environment variable loading with caching
// using Go generics. Each configuration type is loaded once and cached for
// subsequent calls.
//
// The package automatically loads .env files on first use and uses the
// caarlos0/env library for parsing environment variables into struct fields.
//
// Basic usage:
//
//	import "github.com/dmitrymomot/certkeeper/core/config"
//
//	type DNSConfig struct {
//		HostedZoneID string        `env:"ROUTE53_HOSTED_ZONE_ID,required"`
//		Region       string        `env:"AWS_REGION" envDefault:"us-east-1"`
//		PollInterval time.Duration `env:"ROUTE53_POLL_INTERVAL" envDefault:"5s"`
//	}
//
//	func main() {
//		var dns DNSConfig
//
//		// Load with error handling
//		if err := config.Load(&dns); err != nil {
//			log.Fatal(err)
//		}
//
//		// Or panic on failure (useful for startup)
//		config.MustLoad(&dns)
//	}
//
// # Caching Behavior
//
// Each configuration type is loaded only once per application lifetime:
//
//	var cfg1 DNSConfig
//	config.Load(&cfg1) // Loads from environment
//
//	var cfg2 DNSConfig
//	config.Load(&cfg2) // Returns cached value, cfg1 == cfg2
//
// Different types are cached independently:
//
//	type RenewalConfig struct {
//		Threshold time.Duration `env:"RENEWAL_THRESHOLD" envDefault:"720h"`
//	}
//
//	type RedisConfig struct {
//		URL string `env:"REDIS_URL,required"`
//	}
//
//	// Each type has its own cache entry
//	config.MustLoad(&RenewalConfig{})
//	config.MustLoad(&RedisConfig{})
package config
