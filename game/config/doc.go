// Package config holds the server configuration.
//
// Values are filled from command line flags and environment variables in
// main (see the urfave/cli flag definitions there). The package only
// supplies defaults and validation, so it has no dependency on how the
// values were obtained.
//
// Usage:
//
//	cfg := config.Default()
//	cfg.Port = 9090
//	if err := cfg.Validate(); err != nil {
//		// every problem is listed, see multierr.Errors
//	}
//	listener, _ := net.Listen("tcp", cfg.Addr())
package config
