// Package types defines the Go types shared by every statuswatch component:
// the Update produced by a transport, the coarse display Class, and the
// Classify rule that derives one from the other.
//
// The payload itself is opaque. The only thing ever read from it is whether
// it contains the token "down", which the monitor uses to flag an outage.
package types
