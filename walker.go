package json2graph

import (
	"context"
	"fmt"
	"sort"
)

// relItem is the relationship name used for composite elements of arrays,
// which carry no key of their own.
const relItem = "item"

// runStats accumulates emission outcomes over one Convert call.
type runStats struct {
	nodesCreated         int
	cacheHits            int
	relationshipsCreated int
	relationshipFailures int
}

// isComposite reports whether v is a JSON object or array.
func isComposite(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

// isScalarArray reports whether v is an array whose elements are all
// scalars or null. Such arrays are stored as a single list-valued property
// instead of a container node with children. An empty array counts as a
// scalar array.
func isScalarArray(v any) bool {
	arr, ok := v.([]any)
	if !ok {
		return false
	}
	for _, elem := range arr {
		if isComposite(elem) {
			return false
		}
	}
	return true
}

// processValue classifies a JSON value and dispatches it.
//
// parentHash is the content hash of the owning node, or "" at the traversal
// root. The return value is the hash of the node created for this value, or
// "" when the value was folded into its parent or skipped:
//
//   - null under a parent is dropped entirely (no node, no edge); a bare
//     null at the root still gets a Null node
//   - scalars under a parent were already embedded in the parent's
//     properties by the object processor and create nothing here
//   - objects and arrays always produce a node
func (imp *Importer) processValue(ctx context.Context, st *runStats, value any, parentHash, relName, keyName string) (string, error) {
	switch v := value.(type) {
	case map[string]any:
		return imp.processObject(ctx, st, v, parentHash, relName, keyName)

	case []any:
		return imp.processArray(ctx, st, v, parentHash, relName, keyName)

	case nil:
		if parentHash != "" {
			return "", nil
		}
		return imp.createNode(ctx, st, labelNull, map[string]any{"value": nil})

	default:
		if parentHash != "" {
			return "", nil
		}
		label := labelPrimitive
		if keyName != "" {
			label = keyName
		}
		return imp.createNode(ctx, st, label, map[string]any{"value": v})
	}
}

// processObject turns an object into a node holding its scalar members as
// properties, then recurses into its composite members. Composite members
// are visited in sorted key order so statement order is deterministic.
func (imp *Importer) processObject(ctx context.Context, st *runStats, obj map[string]any, parentHash, relName, keyName string) (string, error) {
	props := make(map[string]any)
	var compositeKeys []string
	for k, v := range obj {
		if isComposite(v) {
			compositeKeys = append(compositeKeys, k)
		} else {
			props[k] = v
		}
	}
	sort.Strings(compositeKeys)

	label := labelObject
	if keyName != "" {
		label = keyName
	}

	hash, err := imp.createNode(ctx, st, label, props)
	if err != nil {
		return "", err
	}

	if parentHash != "" {
		imp.createRelationship(ctx, st, parentHash, hash, relName)
	}

	for _, k := range compositeKeys {
		if _, err := imp.processValue(ctx, st, obj[k], hash, k, k); err != nil {
			return "", err
		}
	}

	return hash, nil
}

// processArray turns an array into either a single node with one list-valued
// property (all elements scalar or null) or a container node with one "item"
// edge per composite element. Scalar elements of a mixed array drop out in
// processValue, same as scalar fields of an object would.
func (imp *Importer) processArray(ctx context.Context, st *runStats, arr []any, parentHash, relName, keyName string) (string, error) {
	label := labelArray
	if keyName != "" {
		label = keyName
	}

	if isScalarArray(arr) {
		hash, err := imp.createNode(ctx, st, label, map[string]any{"value": arr})
		if err != nil {
			return "", err
		}
		if parentHash != "" {
			imp.createRelationship(ctx, st, parentHash, hash, relName)
		}
		return hash, nil
	}

	hash, err := imp.createNode(ctx, st, label, map[string]any{})
	if err != nil {
		return "", err
	}
	if parentHash != "" {
		imp.createRelationship(ctx, st, parentHash, hash, relName)
	}

	for _, elem := range arr {
		if _, err := imp.processValue(ctx, st, elem, hash, relItem, ""); err != nil {
			return "", err
		}
	}

	return hash, nil
}

// createNode issues a CREATE statement for a node, unless a node with the
// same content hash was already emitted.
//
// The hash is taken from an explicit _hash property when the caller supplies
// one, which lets an emission be keyed by an externally computed identity;
// otherwise it is computed from the properties. A cache hit returns the hash
// without touching the store. Store failures are fatal: every downstream
// relationship depends on the node existing.
func (imp *Importer) createNode(ctx context.Context, st *runStats, label string, props map[string]any) (string, error) {
	hash, ok := props["_hash"].(string)
	if !ok || hash == "" {
		hash = contentHash(props)
	}

	if imp.cache.has(hash) {
		st.cacheHits++
		imp.metrics.cacheHits.Add(ctx, 1)
		return hash, nil
	}

	full := make(map[string]any, len(props)+1)
	for k, v := range props {
		full[k] = v
	}
	full["_hash"] = hash

	query := fmt.Sprintf("CREATE (n:%s %s)", sanitizeLabel(label), formatProperties(full))
	if _, err := imp.graph.Query(ctx, query); err != nil {
		return "", newStorageError("Importer.createNode",
			fmt.Errorf("%w: %w", ErrNodeCreation, err)).
			WithContext(map[string]any{"label": label})
	}

	imp.cache.mark(hash)
	st.nodesCreated++
	imp.metrics.nodesCreated.Add(ctx, 1)
	return hash, nil
}

// createRelationship issues a MATCH + MERGE statement linking two nodes by
// their _hash identity property. Failures are logged and swallowed: a
// missing edge still leaves a usable graph, and the nodes on both ends are
// already in place.
func (imp *Importer) createRelationship(ctx context.Context, st *runStats, fromHash, toHash, name string) {
	relType := sanitizeLabel(name)
	query := fmt.Sprintf(
		"MATCH (a {_hash: '%s'}), (b {_hash: '%s'}) MERGE (a)-[:%s]->(b)",
		fromHash, toHash, relType,
	)

	if _, err := imp.graph.Query(ctx, query); err != nil {
		st.relationshipFailures++
		imp.metrics.relationshipFailures.Add(ctx, 1)
		imp.logger.Warn("skipping relationship",
			"type", relType,
			"from", fromHash,
			"to", toHash,
			"error", fmt.Errorf("%w: %w", ErrRelationshipCreation, err),
		)
		return
	}

	st.relationshipsCreated++
	imp.metrics.relationshipsCreated.Add(ctx, 1)
}
