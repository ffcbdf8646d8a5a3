// Package types provides the JSON views served by the status endpoint and
// read back by the status client.
//
// Views:
//   - Banner, Health: service liveness
//   - Pool, PoolList, Volume, Device: registry entities with their paths
//   - Code: the status code table
//   - Error: body of every failed request
//
// Event Stream:
//   - Event: added/removed notifications on /events
//   - WSMessage: ping and subscribe requests from the client
package types
