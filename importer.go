package json2graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FalkorDB/json2graph/falkor"
)

const (
	// instrumentationName identifies spans and metrics emitted by this package.
	instrumentationName = "github.com/FalkorDB/json2graph"

	// defaultGraphName is used when no graph name is configured.
	defaultGraphName = "json2graph"

	// defaultRootLabel is the label and relationship name used for the
	// traversal root when the caller does not supply one.
	defaultRootLabel = "Root"
)

// Graph is the surface the importer needs from a graph store: executing one
// complete Cypher statement against a single named graph. falkor.Graph
// satisfies it; tests substitute recorders.
type Graph interface {
	Query(ctx context.Context, cypher string) (*falkor.Result, error)
}

// Importer converts JSON values into a property graph.
//
// An Importer is bound to one graph and owns the node cache used for
// content-hash deduplication. It is not safe for concurrent use; serialize
// Convert calls on a single instance.
type Importer struct {
	graph       Graph
	logger      *slog.Logger
	cache       *nodeCache
	cachePolicy CachePolicy
	rootLabel   string

	// ownedClient is set when New dialed the connection itself, so Close
	// knows whether the connection belongs to this importer.
	ownedClient *falkor.Client

	tracer  trace.Tracer
	metrics importerMetrics
}

type importerOptions struct {
	addr        string
	username    string
	password    string
	graphName   string
	rootLabel   string
	cachePolicy CachePolicy
	client      *falkor.Client
	graph       Graph
	logger      *slog.Logger
	configPath  string
	config      *Config
}

// Option configures an Importer during construction.
type Option func(*importerOptions)

// WithAddr sets the FalkorDB address as host:port. Defaults to
// "localhost:6379" when no connection source is configured.
func WithAddr(addr string) Option {
	return func(o *importerOptions) { o.addr = addr }
}

// WithCredentials sets the username and password for authenticated servers.
func WithCredentials(username, password string) Option {
	return func(o *importerOptions) {
		o.username = username
		o.password = password
	}
}

// WithGraphName sets the name of the graph statements are executed against.
func WithGraphName(name string) Option {
	return func(o *importerOptions) { o.graphName = name }
}

// WithDefaultRootLabel sets the default root label used by Convert when the
// call does not override it with the per-call WithRootLabel.
func WithDefaultRootLabel(label string) Option {
	return func(o *importerOptions) { o.rootLabel = label }
}

// WithCachePolicy sets the node cache lifetime policy.
func WithCachePolicy(policy CachePolicy) Option {
	return func(o *importerOptions) { o.cachePolicy = policy }
}

// WithClient supplies an already-constructed FalkorDB client. The client's
// connection is shared; the importer will not close it.
func WithClient(client *falkor.Client) Option {
	return func(o *importerOptions) { o.client = client }
}

// WithGraph supplies a Graph implementation directly, bypassing connection
// handling entirely. Intended for tests and custom store adapters.
func WithGraph(graph Graph) Option {
	return func(o *importerOptions) { o.graph = graph }
}

// WithLogger sets the structured logger. Defaults to a JSON slog handler on
// stdout at info level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *importerOptions) { o.logger = logger }
}

// WithConfig applies connection and behavior settings from a Config.
// Explicit options take precedence over config values.
func WithConfig(cfg *Config) Option {
	return func(o *importerOptions) { o.config = cfg }
}

// WithConfigFile loads a YAML config file and applies it like WithConfig.
func WithConfigFile(path string) Option {
	return func(o *importerOptions) { o.configPath = path }
}

// New creates an Importer.
//
// The connection source is resolved in order: WithGraph, WithClient, then a
// fresh connection dialed from WithAddr/WithCredentials (or their config
// file equivalents). Dialing verifies the server with a ping.
func New(opts ...Option) (*Importer, error) {
	const op = "json2graph.New"

	o := &importerOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.config == nil && o.configPath != "" {
		cfg, err := LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		o.config = cfg
	}
	if o.config != nil {
		if err := o.mergeConfig(o.config); err != nil {
			return nil, newConfigurationError(op, err)
		}
	}

	if o.graphName == "" {
		o.graphName = defaultGraphName
	}
	if o.rootLabel == "" {
		o.rootLabel = defaultRootLabel
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	// Metric setup happens before any connection is dialed so a failure
	// here never leaks an owned client.
	metrics, err := newImporterMetrics()
	if err != nil {
		return nil, newConfigurationError(op, err)
	}

	imp := &Importer{
		logger:      o.logger,
		cache:       newNodeCache(),
		cachePolicy: o.cachePolicy,
		rootLabel:   o.rootLabel,
		tracer:      otel.Tracer(instrumentationName),
		metrics:     metrics,
	}

	switch {
	case o.graph != nil:
		imp.graph = o.graph
	case o.client != nil:
		imp.graph = o.client.SelectGraph(o.graphName)
	default:
		client, err := falkor.NewClient(falkor.Options{
			Addr:     o.addr,
			Username: o.username,
			Password: o.password,
		})
		if err != nil {
			return nil, newStorageError(op, err)
		}
		imp.graph = client.SelectGraph(o.graphName)
		imp.ownedClient = client
	}

	return imp, nil
}

// mergeConfig fills options the caller left unset from the config file.
func (o *importerOptions) mergeConfig(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if o.addr == "" {
		o.addr = cfg.Addr
	}
	if o.username == "" {
		o.username = cfg.Username
	}
	if o.password == "" {
		o.password = cfg.Password
	}
	if o.graphName == "" {
		o.graphName = cfg.Graph
	}
	if o.rootLabel == "" {
		o.rootLabel = cfg.RootLabel
	}
	if o.cachePolicy == CachePerImporter && cfg.CachePolicy != "" {
		policy, err := parseCachePolicy(cfg.CachePolicy)
		if err != nil {
			return err
		}
		o.cachePolicy = policy
	}
	return nil
}

// Close releases the FalkorDB connection if this importer dialed it itself.
// Connections supplied via WithClient or WithGraph are left untouched.
func (imp *Importer) Close() error {
	if imp.ownedClient == nil {
		return nil
	}
	return imp.ownedClient.Close()
}

// convertOptions carries per-call settings for Convert and LoadFromFile.
type convertOptions struct {
	clearDB   bool
	rootLabel string
}

// ConvertOption configures a single Convert or LoadFromFile call.
type ConvertOption func(*convertOptions)

// WithClearDB wipes the graph before the conversion starts.
func WithClearDB() ConvertOption {
	return func(o *convertOptions) { o.clearDB = true }
}

// WithRootLabel overrides the root label for this call. The root label is
// used both as the root node's label and as the name of relationships from
// the root to its direct composite children.
func WithRootLabel(label string) ConvertOption {
	return func(o *convertOptions) { o.rootLabel = label }
}

// Convert walks value and issues the node and relationship statements that
// represent it. The value is expected to be a decoded JSON value
// (map[string]any, []any, string, json.Number or float64, bool, nil).
//
// Nodes are always emitted before any relationship that references them.
// Node creation failures abort the conversion; relationship failures are
// logged and skipped.
func (imp *Importer) Convert(ctx context.Context, value any, opts ...ConvertOption) error {
	cfg := convertOptions{rootLabel: imp.rootLabel}
	for _, opt := range opts {
		opt(&cfg)
	}

	runID := uuid.NewString()
	ctx, span := imp.tracer.Start(ctx, "json2graph.convert",
		trace.WithAttributes(
			attribute.String("json2graph.run_id", runID),
			attribute.String("json2graph.root_label", cfg.rootLabel),
		),
	)
	defer span.End()

	if imp.cachePolicy == CachePerConvert {
		imp.cache.reset()
	}

	if cfg.clearDB {
		if err := imp.ClearDB(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	st := &runStats{}
	if _, err := imp.processValue(ctx, st, value, "", cfg.rootLabel, cfg.rootLabel); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	imp.logger.Info("conversion finished",
		"run_id", runID,
		"root_label", cfg.rootLabel,
		"nodes_created", st.nodesCreated,
		"cache_hits", st.cacheHits,
		"relationships_created", st.relationshipsCreated,
		"relationship_failures", st.relationshipFailures,
	)
	return nil
}

// LoadFromFile reads and parses a JSON file, then delegates to Convert.
// A missing file yields ErrFileNotFound; undecodable content yields
// ErrMalformedJSON. Both are raised before any store interaction.
func (imp *Importer) LoadFromFile(ctx context.Context, path string, opts ...ConvertOption) error {
	const op = "Importer.LoadFromFile"

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newNotFoundError(op, fmt.Errorf("%w: %s", ErrFileNotFound, path))
		}
		return newStorageError(op, fmt.Errorf("open %s: %w", path, err))
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return newParseError(op, fmt.Errorf("%w: %w", ErrMalformedJSON, err)).
			WithContext(map[string]any{"path": path})
	}
	if dec.More() {
		return newParseError(op, fmt.Errorf("%w: trailing data after top-level value", ErrMalformedJSON)).
			WithContext(map[string]any{"path": path})
	}

	return imp.Convert(ctx, value, opts...)
}

// ClearDB wipes the whole graph with detach-delete semantics. The node
// cache is reset alongside, since every cached hash now refers to a deleted
// node.
func (imp *Importer) ClearDB(ctx context.Context) error {
	if _, err := imp.graph.Query(ctx, "MATCH (n) DETACH DELETE n"); err != nil {
		return newStorageError("Importer.ClearDB", fmt.Errorf("%w: %w", ErrClearFailed, err))
	}
	imp.cache.reset()
	return nil
}

// importerMetrics holds the OpenTelemetry counters for emission outcomes.
type importerMetrics struct {
	nodesCreated         metric.Int64Counter
	cacheHits            metric.Int64Counter
	relationshipsCreated metric.Int64Counter
	relationshipFailures metric.Int64Counter
}

func newImporterMetrics() (importerMetrics, error) {
	meter := otel.Meter(instrumentationName)

	var m importerMetrics
	var err error

	if m.nodesCreated, err = meter.Int64Counter("json2graph.nodes.created",
		metric.WithDescription("Nodes created in the graph store")); err != nil {
		return m, err
	}
	if m.cacheHits, err = meter.Int64Counter("json2graph.cache.hits",
		metric.WithDescription("Node creations suppressed by the dedup cache")); err != nil {
		return m, err
	}
	if m.relationshipsCreated, err = meter.Int64Counter("json2graph.relationships.created",
		metric.WithDescription("Relationships created in the graph store")); err != nil {
		return m, err
	}
	if m.relationshipFailures, err = meter.Int64Counter("json2graph.relationships.failed",
		metric.WithDescription("Relationship creations that failed and were skipped")); err != nil {
		return m, err
	}
	return m, nil
}
