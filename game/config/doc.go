// Package config loads the roomsync server configuration.
//
// Configuration is layered, each layer overriding the previous one:
//   - Built-in defaults (Default)
//   - A YAML file (Load), path from --config or CONFIG_PATH
//   - Environment variables (ApplyEnv)
//   - Command-line flags, applied by the caller
//
// Configuration Format:
//
//	server:
//	  host: 0.0.0.0
//	  port: 8080
//	  allowedOrigins: ["*"]
//	websocket:
//	  idleTimeout: 0s      # 0 disables heartbeats and idle disconnects
//	  pingPeriod: 54s
//	  writeWait: 10s
//	  maxMessageSize: 4096
//	  sendBuffer: 64
//	rooms:
//	  idDigits: 4
//	  idAttempts: 32
//	  spawn: {x: 0, y: 1, z: 0}
//	logging:
//	  env: dev
//	  backend: std         # std|zap
//	  level: info
//	ngrok:
//	  enabled: false
//	  authToken: ""
//	  domain: ""
//
// Environment:
//
// ROOMSYNC_HOST, ROOMSYNC_PORT, ROOMSYNC_IDLE_TIMEOUT, APP_ENV, LOG_LEVEL,
// LOG_BACKEND, NGROK_ENABLED, NGROK_AUTHTOKEN and NGROK_DOMAIN override the
// matching keys.
//
// Validation:
//
// Validate fills defaults for empty fields, then rejects a port outside
// 1..65535, room ID widths outside 1..9, non-positive ID attempts, negative
// durations, a ping period not shorter than a non-zero idle timeout, an
// unknown logging backend or level, and ngrok without an auth token. All
// problems are reported together, each wrapping ErrInvalidConfig.
package config
