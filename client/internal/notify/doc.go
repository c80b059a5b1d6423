// Package notify sends outage notifications when the status display turns
// to the error class, and a recovery notice when it clears. Down
// notifications repeat at most once per cooldown while the error persists.
// Webhooks are delivered to Slack, Teams or generic HTTP targets.
package notify
