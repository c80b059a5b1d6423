// Package pusher implements the push transport over a WebSocket to
// {ws_base}/socket-status.
//
// After each successful handshake the client sends the literal text
// "status" exactly once; the monitor then streams full replacement HTML
// fragments, each rendered verbatim and classified by the "down" token.
//
// Pusher.Run reconnects with truncated exponential backoff (initial..max,
// ±25% jitter) and returns ErrGaveUp after max_retries consecutive failures.
// A drop only restores the budget when the connection delivered a message
// or stayed up for a few seconds. With reconnect disabled, the first drop
// returns ErrDisconnected.
package pusher
