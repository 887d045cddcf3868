// Package config handles configuration loading for livechat-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and duration parsing.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${LIVECHAT_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	presence:
//	  ttl: "30s"
//
//	assistant:
//	  timeout: "30s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # Customer and operator API
//
// Database:
//
//	database:
//	  path: "/var/lib/livechat/livechat.db"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${LIVECHAT_JWT_SECRET}"   # Required
//
// Operator liveness:
//
//	presence:
//	  ttl: "30s"
//
// Assistant:
//
//	assistant:
//	  api_key: "${GEMINI_API_KEY}"
//	  base_url: "https://generativelanguage.googleapis.com/v1beta"
//	  model: "gemini-pro"
//	  timeout: "30s"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
//	cfg, err := config.Load("/etc/livechat/gateway.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
