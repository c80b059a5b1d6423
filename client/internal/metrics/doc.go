// Package metrics instruments the status client with Prometheus counters and
// gauges on a private registry. Handler/Serve expose it over HTTP; WriteText
// renders a one-off dump in the text exposition format.
package metrics
