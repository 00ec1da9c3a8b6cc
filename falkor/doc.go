// Package falkor provides a minimal FalkorDB client built on go-redis.
//
// FalkorDB speaks the Redis wire protocol, so the client wraps a
// *redis.Client and issues graph commands (GRAPH.QUERY, GRAPH.DELETE) with
// Do. One Client can serve any number of named graphs; SelectGraph returns a
// lightweight handle bound to a graph name.
//
// Example:
//
//	client, err := falkor.NewClient(falkor.Options{Addr: "localhost:6379"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	graph := client.SelectGraph("social")
//	result, err := graph.Query(ctx, "CREATE (n:Person {name: 'Alice'})")
//
// An existing *redis.Client can be reused with NewClientFromRedis, which
// leaves connection lifecycle management to the caller.
//
// Every query is wrapped in an OpenTelemetry span carrying the graph name
// and the statement text.
package falkor
