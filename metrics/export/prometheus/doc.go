// Package prometheus provides Prometheus collectors for triauth metrics.
//
// [NewPrometheusExporter] accepts a [triauth.Engine] and exposes an
// [http.Handler] that renders all triauth counters and histograms in
// Prometheus text exposition format. Counter names are prefixed
// triauth_*_total; the single histogram is triauth_login_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
