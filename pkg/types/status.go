package types

import (
	"strings"
	"time"
)

// DownToken is the substring the monitor embeds in a payload to signal an
// outage. It must match exactly; the monitor has no other error channel.
const DownToken = "down"

// PollErrorMessage replaces the display content when a poll does not
// complete with HTTP 200. The server body is discarded.
const PollErrorMessage = "Error fetching status from monitor app"

// Class is the coarse status class applied to the display.
type Class string

const (
	ClassNone    Class = ""
	ClassError   Class = "error"
	ClassSuccess Class = "success"
)

// Source identifies which transport produced an Update.
type Source string

const (
	SourcePoll Source = "poll"
	SourcePush Source = "push"
)

// Update is one received status payload on its way to the render sink.
type Update struct {
	// Seq orders poll responses. Zero for push messages, which arrive in
	// order on a single connection.
	Seq uint64

	// Payload is the HTML fragment to render verbatim.
	Payload string

	// Class is the class to apply when classification is enabled.
	Class Class

	Source     Source
	ReceivedAt time.Time
}

// Classify returns ClassError when payload contains DownToken and
// ClassSuccess otherwise.
func Classify(payload string) Class {
	if strings.Contains(payload, DownToken) {
		return ClassError
	}
	return ClassSuccess
}

// NewUpdate builds an Update for payload with its class derived by Classify.
func NewUpdate(src Source, seq uint64, payload string, at time.Time) Update {
	return Update{
		Seq:        seq,
		Payload:    payload,
		Class:      Classify(payload),
		Source:     src,
		ReceivedAt: at,
	}
}
