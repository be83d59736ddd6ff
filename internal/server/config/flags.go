package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/healthrecords/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-k string   JWT signing key
//	-i string   JWT issuer
//	-u string   JWT audience
//	-t int      access token validity, minutes
//	-r int      refresh token validity, days
//	-l int      login attempts per minute per IP
//	-p string   comma separated trusted proxy CIDRs
//
// Only the flags above are taken from os.Args (see flagx.FilterArgs).
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-k", "-i", "-u", "-t", "-r", "-l", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run the HTTP API")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to run the gRPC health endpoint")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SigningKey, "k", config.SigningKey, "JWT signing key")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "JWT issuer")
	fs.StringVar(&config.Audience, "u", config.Audience, "JWT audience")

	accessMinutes := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshDays := fs.Int("r", int(config.RefreshTokenValidityDuration.Hours()/24), "refresh token validity (in days)")

	fs.IntVar(&config.LoginRateLimit, "l", config.LoginRateLimit, "login attempts per minute per client IP")

	proxies := fs.String("p", strings.Join(config.TrustedProxies, ","), "trusted proxy CIDRs, comma separated")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TrustedProxies = splitList(*proxies)

	config.AccessTokenValidityDuration = time.Duration(*accessMinutes) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshDays) * 24 * time.Hour
}
