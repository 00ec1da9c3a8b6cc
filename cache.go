package json2graph

// CachePolicy controls the lifetime of the importer's node cache, which
// tracks which content hashes already have a node in the store.
//
// The cache is an in-memory optimization layered over store state: a cache
// hit suppresses the CREATE statement for a node that was already emitted.
// Whether that memory should survive across Convert calls depends on how the
// target graph is managed, so the policy is configurable.
type CachePolicy int

const (
	// CachePerImporter keeps the node cache for the lifetime of the
	// Importer. Repeated Convert calls against the same graph reuse nodes
	// created by earlier calls. This is the default.
	CachePerImporter CachePolicy = iota

	// CachePerConvert resets the node cache at the start of every Convert
	// call. Use this when the target graph may be modified between calls by
	// other writers.
	CachePerConvert
)

// nodeCache is the dedup tracker: a set of content hashes for which a node
// creation statement has already been issued. Pure in-memory set semantics;
// nothing is persisted across process restarts.
//
// nodeCache is not safe for concurrent use. It is owned by a single Importer
// and mutated only during Convert.
type nodeCache struct {
	seen map[string]bool
}

func newNodeCache() *nodeCache {
	return &nodeCache{seen: make(map[string]bool)}
}

// has reports whether a node with the given content hash was already created.
func (c *nodeCache) has(hash string) bool {
	return c.seen[hash]
}

// mark records that a node with the given content hash now exists.
func (c *nodeCache) mark(hash string) {
	c.seen[hash] = true
}

// reset drops all recorded hashes.
func (c *nodeCache) reset() {
	c.seen = make(map[string]bool)
}

// size returns the number of distinct hashes recorded.
func (c *nodeCache) size() int {
	return len(c.seen)
}
