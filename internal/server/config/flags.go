package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/usersvc/internal/flagx"
)

var (
	valueFlags = []string{"-a", "-g", "-d", "-s", "-t", "-o", "-l"}
	boolFlags  = []string{"-u"}
	fileFlags  = []string{"-c", "-config", "--config"}
)

// CommandArgs returns the arguments left after removing every configuration
// flag and its value, e.g. the subcommand and operands of the admin CLI.
func CommandArgs(args []string) []string {
	return flagx.Positional(args, append(append([]string{}, fileFlags...), valueFlags...), boolFlags...)
}

// parseFlags overlays Config fields from command-line flags.
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-g string   gRPC bind address (e.g. ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      token validity, minutes
//	-o int      credential store call timeout, seconds
//	-l string   log backend: slog or zap
//	-u          allow unverified accounts to log in
//
// Only these flags are picked out of os.Args, so subcommands of the admin
// CLI can carry their own arguments.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], valueFlags, boolFlags...)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token signing secret")
	tokenTTL := fs.Int("t", int(config.TokenTTL.Minutes()), "token validity (in minutes)")
	storeTimeout := fs.Int("o", int(config.StoreTimeout.Seconds()), "store call timeout (in seconds)")
	fs.StringVar(&config.LogBackend, "l", config.LogBackend, "log backend (slog|zap)")
	fs.BoolVar(&config.AllowUnverifiedLogin, "u", config.AllowUnverifiedLogin, "allow unverified accounts to log in")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// The int flags cannot represent every duration the file or env layers
	// accept, so they only apply when given explicitly.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.TokenTTL = time.Duration(*tokenTTL) * time.Minute
		case "o":
			config.StoreTimeout = time.Duration(*storeTimeout) * time.Second
		}
	})
}
