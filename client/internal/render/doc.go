// Package render implements the status display.
//
// Display is the single render sink both transports write to. Render
// replaces the content with the payload verbatim (no diffing, no
// sanitisation) and, when classification is enabled, applies the
// error/success class carried by the update. Rendering the same payload
// twice yields the same state.
//
// Outputs publish the state: HTMLFile rewrites a page whose #app-container
// holds the payload and whose body carries the class, and Writer prints a
// line per update.
//
// Watch flags the display stale when updates stop arriving, so a dropped
// push connection no longer stalls silently.
package render
