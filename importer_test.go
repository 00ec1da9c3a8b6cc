package json2graph

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/FalkorDB/json2graph/falkor"
)

// fakeGraph records every statement it receives and can be told to fail
// selected statements.
type fakeGraph struct {
	queries []string
	failOn  func(cypher string) error
}

func (f *fakeGraph) Query(_ context.Context, cypher string) (*falkor.Result, error) {
	if f.failOn != nil {
		if err := f.failOn(cypher); err != nil {
			return nil, err
		}
	}
	f.queries = append(f.queries, cypher)
	return &falkor.Result{}, nil
}

func (f *fakeGraph) creates() []string {
	return f.filter(func(q string) bool { return strings.HasPrefix(q, "CREATE ") })
}

func (f *fakeGraph) merges() []string {
	return f.filter(func(q string) bool { return strings.Contains(q, "MERGE") })
}

func (f *fakeGraph) filter(keep func(string) bool) []string {
	var out []string
	for _, q := range f.queries {
		if keep(q) {
			out = append(out, q)
		}
	}
	return out
}

func newTestImporter(t *testing.T, g Graph, opts ...Option) *Importer {
	t.Helper()

	opts = append([]Option{
		WithGraph(g),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)

	imp, err := New(opts...)
	require.NoError(t, err)
	return imp
}

func TestConvertSimpleObject(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	err := imp.Convert(context.Background(), map[string]any{"a": 1}, WithRootLabel("R"))
	require.NoError(t, err)

	require.Len(t, g.creates(), 1)
	assert.Empty(t, g.merges())

	node := g.creates()[0]
	assert.True(t, strings.HasPrefix(node, "CREATE (n:R "), "query: %s", node)
	assert.Contains(t, node, "a: 1")
	assert.Contains(t, node, "_hash: '")
}

func TestConvertNestedObject(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	err := imp.Convert(context.Background(), map[string]any{"a": map[string]any{"b": 1}}, WithRootLabel("R"))
	require.NoError(t, err)

	require.Len(t, g.creates(), 2)
	require.Len(t, g.merges(), 1)

	// Both nodes must be emitted before the relationship referencing them.
	assert.True(t, strings.Contains(g.queries[2], "MERGE"), "expected relationship last, got: %v", g.queries)
	assert.Contains(t, g.merges()[0], "[:a]")
}

func TestConvertDuplicateSubtrees(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	data := map[string]any{
		"x": map[string]any{"v": 1},
		"y": map[string]any{"v": 1},
	}
	err := imp.Convert(context.Background(), data, WithRootLabel("R"))
	require.NoError(t, err)

	// The shared subtree is created once; each parent field still gets its
	// own relationship.
	assert.Len(t, g.creates(), 2)
	assert.Len(t, g.merges(), 2)
}

func TestConvertDefaultRootLabel(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	err := imp.Convert(context.Background(), map[string]any{"a": 1})
	require.NoError(t, err)

	require.Len(t, g.creates(), 1)
	assert.True(t, strings.HasPrefix(g.creates()[0], "CREATE (n:Root "))
}

func TestConvertDefaultRootLabelOption(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g, WithDefaultRootLabel("Catalog"))

	err := imp.Convert(context.Background(), map[string]any{"a": 1})
	require.NoError(t, err)
	require.Len(t, g.creates(), 1)
	assert.True(t, strings.HasPrefix(g.creates()[0], "CREATE (n:Catalog "))

	// The per-call option still wins over the constructor default.
	err = imp.Convert(context.Background(), map[string]any{"b": 2}, WithRootLabel("Override"))
	require.NoError(t, err)
	require.Len(t, g.creates(), 2)
	assert.True(t, strings.HasPrefix(g.creates()[1], "CREATE (n:Override "))
}

func TestConvertNullRoot(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	err := imp.Convert(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, g.creates(), 1)
	assert.Contains(t, g.creates()[0], ":Null")
}

func TestConvertNullFieldFoldedIntoParent(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	err := imp.Convert(context.Background(), map[string]any{"a": nil, "b": 1})
	require.NoError(t, err)

	require.Len(t, g.creates(), 1)
	assert.Contains(t, g.creates()[0], "a: null")
	assert.Empty(t, g.merges())
}

func TestConvertScalarRoot(t *testing.T) {
	t.Run("with root label", func(t *testing.T) {
		g := &fakeGraph{}
		imp := newTestImporter(t, g)

		err := imp.Convert(context.Background(), 42, WithRootLabel("Number"))
		require.NoError(t, err)

		require.Len(t, g.creates(), 1)
		assert.Contains(t, g.creates()[0], ":Number")
		assert.Contains(t, g.creates()[0], "value: 42")
	})

	t.Run("without root label", func(t *testing.T) {
		g := &fakeGraph{}
		imp := newTestImporter(t, g)

		err := imp.Convert(context.Background(), "test", WithRootLabel(""))
		require.NoError(t, err)

		require.Len(t, g.creates(), 1)
		assert.Contains(t, g.creates()[0], ":Primitive")
	})
}

func TestConvertScalarArray(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	data := map[string]any{"tags": []any{"python", "javascript", "go"}}
	err := imp.Convert(context.Background(), data, WithRootLabel("R"))
	require.NoError(t, err)

	require.Len(t, g.creates(), 2)
	require.Len(t, g.merges(), 1)

	var tagsNode string
	for _, q := range g.creates() {
		if strings.Contains(q, ":tags") {
			tagsNode = q
		}
	}
	require.NotEmpty(t, tagsNode, "no node labeled tags in %v", g.queries)
	assert.Contains(t, tagsNode, "value: ['python', 'javascript', 'go']")
	assert.Contains(t, g.merges()[0], "[:tags]")
}

func TestConvertMixedArray(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	data := map[string]any{
		"items": []any{
			"string",
			123,
			map[string]any{"object": "value"},
			[]any{"nested", "array"},
			true,
			nil,
		},
	}
	err := imp.Convert(context.Background(), data)
	require.NoError(t, err)

	// Root and the items container both carry empty properties, so the
	// container is a cache hit against the root: one CREATE covers both.
	// The object element and the nested array element get their own nodes;
	// scalar and null elements are skipped.
	assert.Len(t, g.creates(), 3)
	require.Len(t, g.merges(), 3)
	for _, q := range g.merges()[1:] {
		assert.Contains(t, q, "[:item]")
	}
}

func TestConvertEmptyStructures(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	data := map[string]any{
		"empty_object": map[string]any{},
		"empty_array":  []any{},
		"normal_field": "value",
	}
	err := imp.Convert(context.Background(), data)
	require.NoError(t, err)

	assert.Len(t, g.creates(), 3)
	assert.Len(t, g.merges(), 2)

	var emptyArrayNode string
	for _, q := range g.creates() {
		if strings.Contains(q, ":empty_array") {
			emptyArrayNode = q
		}
	}
	require.NotEmpty(t, emptyArrayNode)
	assert.Contains(t, emptyArrayNode, "value: []")
}

func TestConvertSpecialCharacters(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	data := map[string]any{
		"text": "It's a test with 'quotes'",
		"code": `function() { return 'value'; }`,
		"path": `C:\Users\test`,
	}
	err := imp.Convert(context.Background(), data)
	require.NoError(t, err)

	node := g.creates()[0]
	assert.Contains(t, node, `It\'s a test with \'quotes\'`)
	assert.Contains(t, node, `C:\\Users\\test`)
}

func TestConvertUnicode(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	data := map[string]any{
		"name":     "José García",
		"greeting": "こんにちは",
		"emoji":    "🎉🚀💻",
	}
	err := imp.Convert(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, g.creates(), 1)
	assert.Contains(t, g.creates()[0], "こんにちは")
}

func TestConvertRootArray(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	data := []any{
		map[string]any{"id": 1, "name": "Item 1"},
		map[string]any{"id": 2, "name": "Item 2"},
	}
	err := imp.Convert(context.Background(), data, WithRootLabel("Items"))
	require.NoError(t, err)

	// Container node plus one node per element.
	assert.Len(t, g.creates(), 3)
	assert.Len(t, g.merges(), 2)
	assert.Contains(t, g.creates()[0], ":Items")
}

func TestConvertCachePersistsAcrossCalls(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	data := map[string]any{"a": map[string]any{"b": 1}}

	require.NoError(t, imp.Convert(context.Background(), data))
	firstCreates := len(g.creates())

	require.NoError(t, imp.Convert(context.Background(), data))

	// Second conversion re-issues relationships only.
	assert.Len(t, g.creates(), firstCreates)
	assert.Len(t, g.merges(), 2)
}

func TestConvertCachePerConvert(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g, WithCachePolicy(CachePerConvert))

	data := map[string]any{"a": map[string]any{"b": 1}}

	require.NoError(t, imp.Convert(context.Background(), data))
	require.NoError(t, imp.Convert(context.Background(), data))

	assert.Len(t, g.creates(), 4)
}

func TestConvertWithClearDB(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	err := imp.Convert(context.Background(), map[string]any{"a": 1}, WithClearDB())
	require.NoError(t, err)

	require.NotEmpty(t, g.queries)
	assert.Equal(t, "MATCH (n) DETACH DELETE n", g.queries[0])
}

func TestClearDBResetsCache(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	data := map[string]any{"a": 1}
	require.NoError(t, imp.Convert(context.Background(), data))
	require.NoError(t, imp.ClearDB(context.Background()))
	require.NoError(t, imp.Convert(context.Background(), data))

	assert.Len(t, g.creates(), 2)
}

func TestClearDBFailure(t *testing.T) {
	g := &fakeGraph{
		failOn: func(q string) error {
			if strings.Contains(q, "DETACH DELETE") {
				return errors.New("database error")
			}
			return nil
		},
	}
	imp := newTestImporter(t, g)

	err := imp.ClearDB(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClearFailed)
}

func TestConvertNodeCreationFailureIsFatal(t *testing.T) {
	g := &fakeGraph{
		failOn: func(q string) error {
			if strings.HasPrefix(q, "CREATE ") {
				return errors.New("database error")
			}
			return nil
		},
	}
	imp := newTestImporter(t, g)

	err := imp.Convert(context.Background(), map[string]any{"a": map[string]any{"b": 1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNodeCreation)

	var impErr *ImportError
	require.ErrorAs(t, err, &impErr)
	assert.Equal(t, KindStorage, impErr.Kind)
}

func TestConvertRelationshipFailureIsNotFatal(t *testing.T) {
	g := &fakeGraph{
		failOn: func(q string) error {
			if strings.Contains(q, "MERGE") {
				return errors.New("node not found")
			}
			return nil
		},
	}
	imp := newTestImporter(t, g)

	data := map[string]any{
		"a": map[string]any{"b": 1},
		"c": map[string]any{"d": 2},
	}
	err := imp.Convert(context.Background(), data)
	require.NoError(t, err)

	// Every node is still created even though no relationship succeeded.
	assert.Len(t, g.creates(), 3)
	assert.Empty(t, g.merges())
}

func TestCreateNodeExplicitHash(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	st := &runStats{}
	hash, err := imp.createNode(context.Background(), st, "TestLabel", map[string]any{
		"value": "test",
		"_hash": "somehash123",
	})
	require.NoError(t, err)
	assert.Equal(t, "somehash123", hash)
	assert.Contains(t, g.creates()[0], "_hash: 'somehash123'")
}

func TestCreateNodeCacheHitIssuesNoStatement(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)
	imp.cache.mark("somehash123")

	st := &runStats{}
	hash, err := imp.createNode(context.Background(), st, "TestLabel", map[string]any{
		"value": "test",
		"_hash": "somehash123",
	})
	require.NoError(t, err)
	assert.Equal(t, "somehash123", hash)
	assert.Empty(t, g.queries)
	assert.Equal(t, 1, st.cacheHits)
}

func TestLoadFromFile(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	data := map[string]any{"name": "José", "message": "Hello 世界", "value": 123}
	path := writeJSONFile(t, data)

	err := imp.LoadFromFile(context.Background(), path)
	require.NoError(t, err)
	assert.NotEmpty(t, g.queries)
}

func TestLoadFromFileWithClearDB(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	path := writeJSONFile(t, map[string]any{"name": "test", "value": 123})

	err := imp.LoadFromFile(context.Background(), path, WithClearDB())
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n) DETACH DELETE n", g.queries[0])
}

func TestLoadFromFileNotFound(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	err := imp.LoadFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Empty(t, g.queries, "no store interaction before parsing succeeds")
}

func TestLoadFromFileOpenError(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	// A name longer than the filesystem allows fails to open with an error
	// that is not fs.ErrNotExist, so it must not report as file-not-found.
	path := filepath.Join(t.TempDir(), strings.Repeat("a", 300)+".json")

	err := imp.LoadFromFile(context.Background(), path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrFileNotFound)

	var impErr *ImportError
	require.ErrorAs(t, err, &impErr)
	assert.Equal(t, KindStorage, impErr.Kind)
	assert.Empty(t, g.queries)
}

func TestLoadFromFileMalformed(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	err := imp.LoadFromFile(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedJSON)
	assert.Empty(t, g.queries)
}

func TestLoadFromFileTrailingData(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	path := filepath.Join(t.TempDir(), "trailing.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a": 1} {"b": 2}`), 0o644))

	err := imp.LoadFromFile(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedJSON)
}

func TestLoadFromFileNumbersKeepLiteralForm(t *testing.T) {
	g := &fakeGraph{}
	imp := newTestImporter(t, g)

	path := filepath.Join(t.TempDir(), "numbers.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"price": 999.99, "count": 42}`), 0o644))

	err := imp.LoadFromFile(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, g.creates(), 1)
	assert.Contains(t, g.creates()[0], "price: 999.99")
	assert.Contains(t, g.creates()[0], "count: 42")
}

// failingMeterProvider yields meters whose counter constructors always fail.
type failingMeterProvider struct{ noop.MeterProvider }

func (failingMeterProvider) Meter(string, ...metric.MeterOption) metric.Meter {
	return failingMeter{}
}

type failingMeter struct{ noop.Meter }

func (failingMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return nil, errors.New("counter unavailable")
}

func TestNewMetricsFailure(t *testing.T) {
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(failingMeterProvider{})
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	// Metric setup runs before the connection is dialed; the failure must
	// surface as a configuration error, not a connection error, and no
	// connection is left behind.
	_, err := New(WithAddr("127.0.0.1:1"))
	require.Error(t, err)

	var impErr *ImportError
	require.ErrorAs(t, err, &impErr)
	assert.Equal(t, KindConfiguration, impErr.Kind)
	assert.Contains(t, err.Error(), "counter unavailable")
}

func writeJSONFile(t *testing.T, v any) string {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
