package falkor

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies spans emitted by this package.
const tracerName = "github.com/FalkorDB/json2graph/falkor"

// Options configures the FalkorDB connection.
type Options struct {
	// Addr is the host:port of the FalkorDB server (default "localhost:6379").
	Addr string

	// Username for servers with ACL authentication enabled (optional).
	Username string

	// Password for authenticated servers (optional).
	Password string

	// TLS configuration for secure connections (optional).
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment.
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations.
	WriteTimeout time.Duration
}

// Client is a FalkorDB client backed by a Redis connection.
type Client struct {
	rdb    *redis.Client
	tracer trace.Tracer
}

// NewClient creates a new FalkorDB client with the given options and
// verifies the connection with a ping.
func NewClient(opts Options) (*Client, error) {
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		TLSConfig:    opts.TLS,
		DialTimeout:  opts.ConnectTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to FalkorDB at %s: %w", opts.Addr, err)
	}

	return &Client{
		rdb:    rdb,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// NewClientFromRedis creates a FalkorDB client on top of an existing Redis
// connection. The caller stays responsible for the connection lifecycle;
// this allows one connection to be shared across multiple importers.
func NewClientFromRedis(rdb *redis.Client) *Client {
	return &Client{
		rdb:    rdb,
		tracer: otel.Tracer(tracerName),
	}
}

// SelectGraph returns a handle bound to the named graph. FalkorDB creates
// graphs lazily, so selecting a graph that does not exist yet is valid.
func (c *Client) SelectGraph(name string) *Graph {
	return &Graph{client: c, name: name}
}

// Ping verifies the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Close closes the underlying Redis connection. Do not call Close on a
// client whose connection was supplied via NewClientFromRedis if other
// components still use it.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Graph is a handle to one named graph on a FalkorDB server.
type Graph struct {
	client *Client
	name   string
}

// Name returns the graph name.
func (g *Graph) Name() string {
	return g.name
}

// Query executes a complete Cypher statement against the graph and returns
// the raw result. The statement must be self-contained; FalkorDB's GRAPH.QUERY
// command takes no bind parameters here.
func (g *Graph) Query(ctx context.Context, cypher string) (*Result, error) {
	ctx, span := g.client.tracer.Start(ctx, "falkor.query",
		trace.WithAttributes(
			attribute.String("db.graph.name", g.name),
			attribute.String("db.statement", cypher),
		),
	)
	defer span.End()

	reply, err := g.client.rdb.Do(ctx, "GRAPH.QUERY", g.name, cypher).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("graph query on %q failed: %w", g.name, err)
	}

	return &Result{raw: reply}, nil
}

// Delete removes the whole graph from the server.
func (g *Graph) Delete(ctx context.Context) error {
	ctx, span := g.client.tracer.Start(ctx, "falkor.delete",
		trace.WithAttributes(attribute.String("db.graph.name", g.name)),
	)
	defer span.End()

	if err := g.client.rdb.Do(ctx, "GRAPH.DELETE", g.name).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("graph delete on %q failed: %w", g.name, err)
	}
	return nil
}

// Result holds the raw GRAPH.QUERY reply.
//
// FalkorDB replies with a nested array: a header describing returned
// columns, the result rows, and a trailing list of execution statistics
// strings ("Nodes created: 1", "Query internal execution time: ...").
type Result struct {
	raw any
}

// Raw returns the unparsed reply.
func (r *Result) Raw() any {
	return r.raw
}

// Statistics returns the execution statistics strings from the reply, or
// nil if the reply carries none.
func (r *Result) Statistics() []string {
	top, ok := r.raw.([]any)
	if !ok || len(top) == 0 {
		return nil
	}

	last, ok := top[len(top)-1].([]any)
	if !ok {
		return nil
	}

	stats := make([]string, 0, len(last))
	for _, item := range last {
		s, ok := item.(string)
		if !ok {
			return nil
		}
		stats = append(stats, s)
	}
	return stats
}
