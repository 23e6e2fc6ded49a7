package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements UserDirectory and ConnectionStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
// Creates tables and indexes if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps writes serialized and makes a connect
	// durably visible to the next query from any caller.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		internal_id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id TEXT UNIQUE NOT NULL,
		display_name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS connections (
		low_id INTEGER NOT NULL,
		high_id INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (low_id, high_id),
		FOREIGN KEY (low_id) REFERENCES users(internal_id),
		FOREIGN KEY (high_id) REFERENCES users(internal_id)
	);

	CREATE INDEX IF NOT EXISTS idx_connections_low ON connections(low_id);
	CREATE INDEX IF NOT EXISTS idx_connections_high ON connections(high_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// isUniqueViolation reports whether err comes from a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") && strings.Contains(msg, "constraint")
}

// CreateUser registers a new user and assigns its internal id.
func (s *SQLiteStore) CreateUser(ctx context.Context, externalID, displayName string) (*User, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (external_id, display_name, created_at) VALUES (?, ?, ?)",
		externalID, displayName, time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	internalID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read assigned id: %w", err)
	}

	return s.userByInternalID(ctx, internalID)
}

// LookupUser resolves an external id to a user.
func (s *SQLiteStore) LookupUser(ctx context.Context, externalID string) (*User, error) {
	query := `
		SELECT internal_id, external_id, display_name, created_at
		FROM users
		WHERE external_id = ?
	`

	var user User
	err := s.db.QueryRowContext(ctx, query, externalID).Scan(
		&user.InternalID,
		&user.ExternalID,
		&user.DisplayName,
		&user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user: %w", err)
	}

	return &user, nil
}

func (s *SQLiteStore) userByInternalID(ctx context.Context, internalID int64) (*User, error) {
	query := `
		SELECT internal_id, external_id, display_name, created_at
		FROM users
		WHERE internal_id = ?
	`

	var user User
	err := s.db.QueryRowContext(ctx, query, internalID).Scan(
		&user.InternalID,
		&user.ExternalID,
		&user.DisplayName,
		&user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user: %w", err)
	}

	return &user, nil
}

// LookupUsers resolves a batch of internal ids to users, ordered by
// external id for deterministic results. Unknown ids are skipped.
func (s *SQLiteStore) LookupUsers(ctx context.Context, internalIDs []int64) ([]*User, error) {
	if len(internalIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(internalIDs))
	args := make([]interface{}, len(internalIDs))
	for i, id := range internalIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT internal_id, external_id, display_name, created_at
		FROM users
		WHERE internal_id IN (%s)
		ORDER BY external_id
	`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var user User
		err := rows.Scan(
			&user.InternalID,
			&user.ExternalID,
			&user.DisplayName,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// UserCount returns the total number of users.
func (s *SQLiteStore) UserCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// Connect adds the edge between two internal ids.
// The UNIQUE pair constraint serializes racing inserts: exactly one of two
// concurrent Connect calls for the same pair succeeds.
func (s *SQLiteStore) Connect(ctx context.Context, a, b int64) (*Connection, error) {
	if a == b {
		return nil, ErrSelfConnection
	}

	low, high := CanonicalPair(a, b)
	createdAt := time.Now()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO connections (low_id, high_id, created_at) VALUES (?, ?, ?)",
		low, high, createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConnectionExists
		}
		return nil, fmt.Errorf("failed to add connection: %w", err)
	}

	// Built from the inserted values rather than read back, so a successful
	// insert can never be reported as a failure.
	return &Connection{LowID: low, HighID: high, CreatedAt: createdAt}, nil
}

// Disconnect removes the edge between two internal ids.
func (s *SQLiteStore) Disconnect(ctx context.Context, a, b int64) error {
	low, high := CanonicalPair(a, b)

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM connections WHERE low_id = ? AND high_id = ?",
		low, high,
	)
	if err != nil {
		return fmt.Errorf("failed to remove connection: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrConnectionNotFound
	}

	return nil
}

// Neighbors returns all ids adjacent to id, searching both edge slots.
func (s *SQLiteStore) Neighbors(ctx context.Context, id int64) ([]int64, error) {
	query := `
		SELECT CASE WHEN low_id = ? THEN high_id ELSE low_id END
		FROM connections
		WHERE low_id = ? OR high_id = ?
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, id, id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get neighbors: %w", err)
	}
	defer rows.Close()

	var neighbors []int64
	for rows.Next() {
		var neighbor int64
		if err := rows.Scan(&neighbor); err != nil {
			return nil, fmt.Errorf("failed to scan neighbor: %w", err)
		}
		neighbors = append(neighbors, neighbor)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating neighbors: %w", err)
	}

	return neighbors, nil
}

// AllConnections returns the full edge set.
func (s *SQLiteStore) AllConnections(ctx context.Context) ([]Connection, error) {
	query := `
		SELECT low_id, high_id, created_at
		FROM connections
		ORDER BY low_id, high_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	var conns []Connection
	for rows.Next() {
		var conn Connection
		if err := rows.Scan(&conn.LowID, &conn.HighID, &conn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}

	return conns, nil
}

// ConnectionCount returns the total number of edges.
func (s *SQLiteStore) ConnectionCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM connections").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count connections: %w", err)
	}
	return count, nil
}

// Close releases database resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
