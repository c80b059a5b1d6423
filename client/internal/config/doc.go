// Package config loads and watches the statuswatch configuration file.
//
// Top-level types:
//   - Config{Client} is the full tree parsed from YAML
//   - ClientConfig holds api_base, ws_base, force_poll, log_level,
//     metrics_addr and the poll, push, render and notify sections
//   - WebhookConfig is one notification target; URL() resolves it from
//     the environment
//
// Load(path) applies defaults (5s poll interval, 10s request timeout,
// reconnect with 1s..60s backoff and 10 retries, 30s stale threshold, 5m
// notify cooldown) and then validates. An empty path yields the defaults,
// which point at the monitor on localhost:9999.
//
// Watch(ctx, path, onChange) reloads the file on write or create events.
package config
