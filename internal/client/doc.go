/*
Package client talks to a running daemon.

BusClient calls the Manager and pool objects over D-Bus and turns each
reply's (status, message) pair into a *status.E. StatusClient reads the HTTP
status endpoint with resty; requests are rate limited, retried on transport
errors and 5xx replies, and run through a circuit breaker that only counts
daemon failures, not answers such as "pool not found".

	bc, err := client.DialBus("system", paths.ServiceName, paths.BasePath)
	path, err := bc.CreatePool(ctx, "tank", []string{"/dev/sda"}, 1)

	sc := client.NewStatusClient("http://127.0.0.1:8700", client.DefaultStatusConfig())
	pools, err := sc.Pools(ctx)
*/
package client
