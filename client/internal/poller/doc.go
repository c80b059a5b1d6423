// Package poller implements the polling transport: GET {api_base}/status/
// every interval, starting immediately, rendering the body on HTTP 200 and a
// fixed error message otherwise.
//
// Requests are independent: a slow request never delays the next tick.
// Sequence numbers make the render sink last-writer-wins by request order,
// not by arrival order.
package poller
