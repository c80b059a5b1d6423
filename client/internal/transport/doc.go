// Package transport picks the status transport once at startup.
//
// Detect decides whether push is available (a socket URL is configured and
// force_poll is off). Client.Select returns a pusher.Pusher in that case and
// a poller.Poller otherwise; Client.Run logs the choice and runs it. The
// poller renders immediately, then every interval. The pusher renders on
// every message for as long as its connection policy allows.
package transport
