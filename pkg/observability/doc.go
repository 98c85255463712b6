/*
Package observability turns engine lifecycle events into logs and Prometheus
metrics.

Every helper returns a domain.LifecycleHooks value; Combine merges several of
them so that a workspace can log and count at once:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	ws := topoedit.New(topoedit.WithLifecycleHooks(observability.Combine(
		metrics.Hooks(),
		observability.LogHooks(logger),
	)))
*/
package observability
