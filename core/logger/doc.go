// Package logger provides slog-based structured logging with environment
// presets and nil-safe attribute helpers for renewal workflows.
//
// # Basic Usage
//
// Create loggers using the factory function with configuration options:
//
//	import "github.com/dmitrymomot/certkeeper/core/logger"
//
//	// Development: text format, debug level, stdout
//	log := logger.New(logger.WithDevelopment("certkeeper"))
//
//	// Production: JSON format, info level, stdout
//	log := logger.New(logger.WithProduction("certkeeper"))
//
//	// Custom configuration
//	log := logger.New(
//		logger.WithLevel(slog.LevelWarn),
//		logger.WithJSONFormatter(),
//		logger.WithOutput(os.Stderr),
//		logger.WithAttr(slog.String("service", "renewer")),
//	)
//
//	log.Info("renewal decided",
//		logger.Component("engine"),
//		logger.CertName("api-example-com"),
//		logger.State("expiring_soon"),
//	)
//
// # Attribute Helpers
//
// Helpers return an empty Attr for nil or zero input, so call sites never
// need explicit nil checks:
//
//	log.Error("import failed",
//		logger.Error(err),           // safe when err == nil
//		logger.ARN(arn),             // safe when arn == ""
//		logger.Elapsed(start),
//	)
//
// Domain helpers (CertName, Domains, Zone, ARN, NotAfter, State, Stage,
// FQDN) keep attribute keys consistent across the engine, the ACME
// orderer, and the AWS adapters, which makes log-based debugging of a
// renewal run tractable: filter by cert_name and the whole story lines up.
//
// Private key material must never reach the logger. Helpers accept only
// identifiers and metadata; there is deliberately no helper that takes
// certificate or key bytes.
package logger
