// Package config loads runtime configuration for the sessionkeeper shell.
//
// Sources & precedence (later wins)
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A dotenv file (./.env, or the path given with -env) and the process
//     environment, both with the SK_ prefix. Real environment variables win
//     over the file.
//  3. An optional JSON file selected with -c or -config.
//  4. Command-line flags.
//
// # JSON schema
//
// Durations use timex.Duration, so "15m" and integer nanoseconds both work:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "storage_path": "session.db",
//	  "directory_file": "users.toml",
//	  "session_timeout": "15m",
//	  "warning_margin": "5m",
//	  "tracked_events": "click,keypress,mousemove,touchstart"
//	}
package config
