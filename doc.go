// Package json2graph converts arbitrary JSON values into a property graph
// stored in FalkorDB.
//
// The importer walks a decoded JSON value recursively and turns every object
// and array into a graph node, every nesting relationship into a directed
// edge, and every scalar field into a node property. Nodes are
// content-addressed: each node carries a deterministic SHA-256 hash of its
// properties in a reserved _hash property, which doubles as its identity for
// relationship creation and as a deduplication key. Structurally identical
// subtrees therefore produce a single node, no matter how many times they
// appear in the input.
//
// # Graph Mapping Rules
//
// The mapping from JSON to graph follows a small set of rules:
//
//   - Objects become nodes labeled after their key (sanitized), with their
//     scalar members stored directly as node properties.
//   - Arrays of scalars become a single node holding the whole array as one
//     list-valued property.
//   - Arrays containing objects or arrays become a container node with one
//     "item" edge per composite element.
//   - Scalars nested inside an object never become nodes of their own; they
//     are folded into the owning object's properties.
//   - A null field nested under a parent is dropped entirely; a bare null
//     at the root still produces a Null node.
//
// # Getting Started
//
// Create an importer and convert a value:
//
//	importer, err := json2graph.New(
//		json2graph.WithAddr("localhost:6379"),
//		json2graph.WithGraphName("example_graph"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	data := map[string]any{
//		"name": "John Doe",
//		"age":  30,
//	}
//	if err := importer.Convert(context.Background(), data,
//		json2graph.WithRootLabel("Person"),
//	); err != nil {
//		log.Fatal(err)
//	}
//
// JSON files can be imported directly with LoadFromFile, which decodes the
// file and delegates to Convert.
//
// # Connection Reuse
//
// Importers can share a single FalkorDB connection. Construct a
// falkor.Client yourself and hand it to each importer:
//
//	client, err := falkor.NewClient(falkor.Options{Addr: "localhost:6379"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	users, _ := json2graph.New(
//		json2graph.WithClient(client),
//		json2graph.WithGraphName("users"),
//	)
//	orders, _ := json2graph.New(
//		json2graph.WithClient(client),
//		json2graph.WithGraphName("orders"),
//	)
//
// # Error Handling
//
// Failures are split into fatal and non-fatal categories. Node creation
// failures abort the whole conversion, because every later relationship
// depends on the node existing. Relationship creation failures are logged
// and skipped, leaving a partially connected but still useful graph. All
// errors can be inspected with errors.Is against the package sentinel
// errors (ErrNodeCreation, ErrFileNotFound, ...).
//
// # Concurrency
//
// An Importer is not safe for concurrent use. The node cache is mutated
// throughout a conversion, so concurrent Convert calls on one instance must
// be serialized by the caller. Independent importers, including importers
// sharing one falkor.Client, may run concurrently.
package json2graph
