/*
Package http serves the read-only status endpoint.

Routes:

	GET /                        service banner
	GET /health                  registry and bus counters
	GET /errors                  status code table
	GET /pools                   every live pool
	GET /pools/:name             one pool
	GET /pools/:name/volumes     its volumes and snapshots
	GET /pools/:name/devices     its regular devices
	GET /pools/:name/cachedevs   its cache devices

Failures reply with types.Error; the status code maps to HTTP as
not-found codes to 404, bad input to 400, name conflicts to 409 and the
rest to 500.
*/
package http
