// Package config loads runtime configuration for the SiteKeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   API base url (default http://localhost:3000/api)
//	-v string   collection, assets or tools
//	-n int      page size
//	-t int      request timeout (seconds)
//	-i int      online status check interval (seconds)
//	-d string   data directory (default ~/.sitekeeper)
//	-l string   log level
//	-o string   QR label directory
//	-b string   QR label S3 bucket
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "server_base_url": "http://localhost:3000/api",
//	  "collection": "tools",
//	  "online_check_interval": "5s",
//	  "voice_auto_close": "3s",
//	  "recorder_command": ["arecord", "-q", "-f", "cd", "-t", "wav"],
//	  "label_bucket": "site-labels",
//	  "s3_endpoint": "http://localhost:9000"
//	}
//
// Environment variables are not read here; the S3 label sink falls back to
// the AWS default credential chain when no keys are configured.
package config
