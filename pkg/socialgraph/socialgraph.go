// Package socialgraph is the external-identifier surface of the social graph.
// It resolves external ids through the user directory before delegating to
// the connection store and query engine, and returns plain result data.
package socialgraph

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dan-solli/socialgraph/pkg/graph"
	"github.com/dan-solli/socialgraph/pkg/metrics"
	"github.com/dan-solli/socialgraph/pkg/store"
	"github.com/dan-solli/socialgraph/pkg/trace"
)

// Unreachable is re-exported so boundary code does not need the graph package.
const Unreachable = graph.Unreachable

// Config holds configuration for the service
type Config struct {
	// Path to the SQLite database file, or ":memory:"
	DBPath string

	// Metrics collector; defaults to a no-op collector
	Metrics metrics.Collector

	// Trace exporter; defaults to a no-op exporter
	Trace trace.Exporter
}

// Friend is one entry of a friend-set query result.
type Friend struct {
	ExternalID  string `json:"user_str_id"`
	DisplayName string `json:"display_name"`
}

// Service is the main entry point for the social graph.
type Service struct {
	directory   store.UserDirectory
	connections store.ConnectionStore
	engine      *graph.Engine
	metrics     metrics.Collector
	trace       trace.Exporter

	closer func() error
}

// New creates a service backed by a SQLite store at cfg.DBPath.
func New(cfg Config) (*Service, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = "socialgraph.db"
	}

	s, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	svc := NewWithStores(s, s, cfg.Metrics)
	svc.closer = s.Close
	if cfg.Trace != nil {
		svc.trace = cfg.Trace
	}
	return svc, nil
}

// NewWithStores creates a service over explicitly owned stores. Tests use
// this to inject stores deterministically.
func NewWithStores(directory store.UserDirectory, connections store.ConnectionStore, collector metrics.Collector) *Service {
	if collector == nil {
		collector = metrics.NewNoopCollector()
	}

	return &Service{
		directory:   directory,
		connections: connections,
		engine:      graph.NewEngine(connections),
		metrics:     collector,
		trace:       trace.NewNoopExporter(),
	}
}

// SetTraceExporter replaces the trace exporter. The exporter's lifecycle
// stays with the caller; Close is not forwarded.
func (s *Service) SetTraceExporter(exporter trace.Exporter) {
	if exporter != nil {
		s.trace = exporter
	}
}

// Close releases the underlying store, when this service owns it.
func (s *Service) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

// record finishes metric and trace bookkeeping for one operation.
func (s *Service) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	errKind := ""
	if err != nil {
		status = "error"
		errKind = ClassifyError(err)
		s.metrics.RecordError(ctx, operation, errKind)
	}
	durationMs := time.Since(start).Milliseconds()
	s.metrics.RecordOperation(ctx, operation, status, durationMs)

	// Export failures must not affect the operation outcome.
	_ = s.trace.Export(ctx, &trace.TraceRecord{
		Timestamp:   start,
		OperationID: uuid.New().String(),
		Operation:   operation,
		DurationMs:  durationMs,
		Status:      status,
		ErrorKind:   errKind,
	})
}

// updateStorageGauges refreshes the stored-item gauges after a mutation.
// Gauge staleness is tolerable, so count failures are swallowed.
func (s *Service) updateStorageGauges(ctx context.Context) {
	if users, err := s.directory.UserCount(ctx); err == nil {
		s.metrics.SetStorageCount(ctx, "users", users)
	}
	if conns, err := s.connections.ConnectionCount(ctx); err == nil {
		s.metrics.SetStorageCount(ctx, "connections", conns)
	}
}

// CreateUser registers a new user under its external id.
func (s *Service) CreateUser(ctx context.Context, externalID, displayName string) (*store.User, error) {
	start := time.Now()
	user, err := s.directory.CreateUser(ctx, externalID, displayName)
	s.record(ctx, "create_user", start, err)
	if err != nil {
		return nil, err
	}

	s.updateStorageGauges(ctx)
	return user, nil
}

// LookupUser resolves an external id.
func (s *Service) LookupUser(ctx context.Context, externalID string) (*store.User, error) {
	start := time.Now()
	user, err := s.directory.LookupUser(ctx, externalID)
	s.record(ctx, "lookup_user", start, err)
	return user, err
}

// Connect creates the mutual friendship between two external ids.
func (s *Service) Connect(ctx context.Context, externalA, externalB string) (*store.Connection, error) {
	start := time.Now()
	conn, err := s.connect(ctx, externalA, externalB)
	s.record(ctx, "connect", start, err)
	if err != nil {
		return nil, err
	}

	s.updateStorageGauges(ctx)
	return conn, nil
}

func (s *Service) connect(ctx context.Context, externalA, externalB string) (*store.Connection, error) {
	// Caught before resolution so unknown ids still report the self-connect
	// problem, matching the boundary contract.
	if externalA == externalB {
		return nil, store.ErrSelfConnection
	}

	userA, err := s.directory.LookupUser(ctx, externalA)
	if err != nil {
		return nil, err
	}
	userB, err := s.directory.LookupUser(ctx, externalB)
	if err != nil {
		return nil, err
	}

	return s.connections.Connect(ctx, userA.InternalID, userB.InternalID)
}

// Disconnect removes the friendship between two external ids.
func (s *Service) Disconnect(ctx context.Context, externalA, externalB string) error {
	start := time.Now()
	err := s.disconnect(ctx, externalA, externalB)
	s.record(ctx, "disconnect", start, err)
	if err != nil {
		return err
	}

	s.updateStorageGauges(ctx)
	return nil
}

func (s *Service) disconnect(ctx context.Context, externalA, externalB string) error {
	userA, err := s.directory.LookupUser(ctx, externalA)
	if err != nil {
		return err
	}
	userB, err := s.directory.LookupUser(ctx, externalB)
	if err != nil {
		return err
	}

	return s.connections.Disconnect(ctx, userA.InternalID, userB.InternalID)
}

// Friends returns the direct friends of an external id.
func (s *Service) Friends(ctx context.Context, externalID string) ([]Friend, error) {
	start := time.Now()
	friends, err := s.friendQuery(ctx, externalID, s.engine.DirectFriends)
	s.record(ctx, "friends", start, err)
	return friends, err
}

// FriendsOfFriends returns the users exactly two hops from an external id.
func (s *Service) FriendsOfFriends(ctx context.Context, externalID string) ([]Friend, error) {
	start := time.Now()
	friends, err := s.friendQuery(ctx, externalID, s.engine.FriendsOfFriends)
	s.record(ctx, "friends_of_friends", start, err)
	return friends, err
}

func (s *Service) friendQuery(ctx context.Context, externalID string, query func(context.Context, int64) ([]int64, error)) ([]Friend, error) {
	user, err := s.directory.LookupUser(ctx, externalID)
	if err != nil {
		return nil, err
	}

	ids, err := query(ctx, user.InternalID)
	if err != nil {
		return nil, err
	}

	users, err := s.directory.LookupUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	friends := make([]Friend, 0, len(users))
	for _, u := range users {
		friends = append(friends, Friend{ExternalID: u.ExternalID, DisplayName: u.DisplayName})
	}
	return friends, nil
}

// Degree returns the degree of separation between two external ids, or
// Unreachable when no path exists.
func (s *Service) Degree(ctx context.Context, fromExternal, toExternal string) (int, error) {
	start := time.Now()
	degree, err := s.degree(ctx, fromExternal, toExternal)
	s.record(ctx, "degree", start, err)
	return degree, err
}

func (s *Service) degree(ctx context.Context, fromExternal, toExternal string) (int, error) {
	from, err := s.directory.LookupUser(ctx, fromExternal)
	if err != nil {
		return 0, err
	}
	to, err := s.directory.LookupUser(ctx, toExternal)
	if err != nil {
		return 0, err
	}

	return s.engine.DegreeOfSeparation(ctx, from.InternalID, to.InternalID)
}
