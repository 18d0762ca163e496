// Package config provides configuration loading and validation for clientvault.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (CLIENTVAULT_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with CLIENTVAULT_ prefix:
//   - server.port → CLIENTVAULT_SERVER_PORT
//   - database.type → CLIENTVAULT_DATABASE_TYPE
//   - object_store.bucket → CLIENTVAULT_OBJECT_STORE_BUCKET
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: HTTP listen port
//   - Service: op_timeout and verify_uploads for the record service
//   - Broker: grant_ttl (seconds) and key_prefix for upload grants
//   - Database: type, DSN, and table names
//   - ObjectStore: region, bucket, and optional endpoint/credentials
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - Grant TTL must be 60-900 seconds
//   - Log level must be debug, info, warn, or error
package config
