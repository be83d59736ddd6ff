// Package config loads runtime configuration for the Health Records CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the auth server API
//	-g string   address:port of the gRPC health endpoint ("" disables probing)
//	-i int      online status check interval (seconds)
//	-t int      request timeout (seconds)
//	-d string   local data directory
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be either strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "health_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "request_timeout": "15s",
//	  "data_dir": ".healthrecords"
//	}
package config
