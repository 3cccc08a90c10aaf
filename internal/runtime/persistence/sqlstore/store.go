// Package sqlstore persists entities as JSON documents in sqlite or postgres.
//
// Every entity is one row keyed by logical type and key, carrying an optimistic locking version.
// Only exported fields of a pojo are stored.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/causeway-lang/causeway/internal/metamodel/spec"
	"github.com/causeway-lang/causeway/internal/runtime/persistence"
)

// Drivers lists the database/sql driver names the store accepts
var Drivers = []string{"sqlite3", "pgx", "postgres"}

// Config selects the database
type Config struct {
	// Driver is one of Drivers
	Driver string
	DSN    string
	// Table defaults to causeway_objects; the key sequences live in <Table>_seq
	Table string
	// Retry repeats writes that failed on a deadlock or serialization failure
	Retry RetryConfig
}

type entry struct {
	logicalType string
	key         string
	pojo        interface{}
	version     int64
}

// Store is a persistence.Session over database/sql
type Store struct {
	db        *sql.DB
	tx        *TxManager
	postgres  bool
	objects   string
	sequences string
	retry     RetryConfig
	logger    *zap.Logger

	mu     sync.RWMutex
	byKey  map[string]map[string]*entry
	byPojo map[interface{}]*entry
}

var _ persistence.Session = (*Store)(nil)

func checkDriver(driver string) error {
	for _, d := range Drivers {
		if d == driver {
			return nil
		}
	}
	return fmt.Errorf("unsupported driver %q, expected one of %s", driver, strings.Join(Drivers, ", "))
}

// Open connects, pings and creates the tables when missing
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if err := checkDriver(cfg.Driver); err != nil {
		return nil, err
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}
	if cfg.Driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	s, err := New(db, cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database without touching its schema
func New(db *sql.DB, cfg Config, logger *zap.Logger) (*Store, error) {
	if err := checkDriver(cfg.Driver); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	table := cfg.Table
	if table == "" {
		table = "causeway_objects"
	}
	return &Store{
		db:        db,
		tx:        NewTxManager(db, logger),
		postgres:  cfg.Driver != "sqlite3",
		objects:   pq.QuoteIdentifier(table),
		sequences: pq.QuoteIdentifier(table + "_seq"),
		retry:     cfg.Retry,
		logger:    logger.Named("sqlstore"),
		byKey:     make(map[string]map[string]*entry),
		byPojo:    make(map[interface{}]*entry),
	}, nil
}

// Migrate creates the tables
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	logical_type TEXT NOT NULL,
	object_key TEXT NOT NULL,
	version BIGINT NOT NULL,
	state TEXT NOT NULL,
	PRIMARY KEY (logical_type, object_key)
)`, s.objects),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	logical_type TEXT PRIMARY KEY,
	next_value BIGINT NOT NULL
)`, s.sequences),
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind turns ? placeholders into $n for postgres
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if s.retry.MaxAttempts > 1 {
		return s.tx.WithRetry(ctx, s.retry, fn)
	}
	return s.tx.WithTransaction(ctx, fn)
}

func (s *Store) lookup(pojo interface{}) (*entry, bool) {
	if pojo == nil || !reflect.TypeOf(pojo).Comparable() {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byPojo[pojo]
	return e, ok
}

// attach records a loaded row, returning the pojo already attached for the key if there is one
func (s *Store) attach(e *entry) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byKey[e.logicalType][e.key]; ok {
		return existing.pojo
	}
	if s.byKey[e.logicalType] == nil {
		s.byKey[e.logicalType] = make(map[string]*entry)
	}
	s.byKey[e.logicalType][e.key] = e
	s.byPojo[e.pojo] = e
	return e.pojo
}

func (s *Store) detach(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byPojo, e.pojo)
	delete(s.byKey[e.logicalType], e.key)
}

// IsPersistent reports whether pojo was stored or loaded by this store
func (s *Store) IsPersistent(pojo interface{}) bool {
	_, ok := s.lookup(pojo)
	return ok
}

// Identifier returns the key of an attached pojo
func (s *Store) Identifier(pojo interface{}) (string, bool) {
	e, ok := s.lookup(pojo)
	if !ok {
		return "", false
	}
	return e.key, true
}

// Version returns the version last read or written for pojo
func (s *Store) Version(pojo interface{}) (int64, bool) {
	e, ok := s.lookup(pojo)
	if !ok {
		return 0, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return e.version, true
}

// Persist inserts a new entity or updates an attached one, failing with
// persistence.ErrConcurrentModification when the row changed since it was read
func (s *Store) Persist(ctx context.Context, ts *spec.ObjectSpecification, pojo interface{}) error {
	if err := persistence.CheckEntity(ts); err != nil {
		return err
	}
	if !ts.IsInstance(pojo) {
		return fmt.Errorf("cannot persist %T as %s", pojo, ts.LogicalTypeName())
	}
	if e, ok := s.lookup(pojo); ok {
		return s.update(ctx, e)
	}

	name := ts.LogicalTypeName()
	var key string
	err := s.write(ctx, func(tx *sql.Tx) error {
		var err error
		key, err = persistence.AssignKey(ts, pojo, func() (int64, error) {
			return s.nextValue(ctx, tx, name)
		})
		if err != nil {
			return err
		}
		state, err := json.Marshal(pojo)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		_, err = tx.ExecContext(ctx,
			s.rebind(fmt.Sprintf("INSERT INTO %s (logical_type, object_key, version, state) VALUES (?, ?, ?, ?)", s.objects)),
			name, key, int64(1), string(state))
		return convertError(err)
	})
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", name, err)
	}

	s.attach(&entry{logicalType: name, key: key, pojo: pojo, version: 1})
	s.logger.Debug("inserted", zap.String("type", name), zap.String("key", key))
	return nil
}

func (s *Store) update(ctx context.Context, e *entry) error {
	state, err := json.Marshal(e.pojo)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", e.logicalType, err)
	}
	s.mu.RLock()
	version := e.version
	s.mu.RUnlock()

	err = s.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			s.rebind(fmt.Sprintf("UPDATE %s SET state = ?, version = version + 1 WHERE logical_type = ? AND object_key = ? AND version = ?", s.objects)),
			string(state), e.logicalType, e.key, version)
		if err != nil {
			return convertError(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s:%s at version %d", persistence.ErrConcurrentModification, e.logicalType, e.key, version)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	e.version = version + 1
	s.mu.Unlock()
	return nil
}

func (s *Store) nextValue(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	res, err := tx.ExecContext(ctx,
		s.rebind(fmt.Sprintf("UPDATE %s SET next_value = next_value + 1 WHERE logical_type = ?", s.sequences)), name)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		if _, err := tx.ExecContext(ctx,
			s.rebind(fmt.Sprintf("INSERT INTO %s (logical_type, next_value) VALUES (?, ?)", s.sequences)), name, int64(1)); err != nil {
			return 0, err
		}
	}

	var next int64
	err = tx.QueryRowContext(ctx,
		s.rebind(fmt.Sprintf("SELECT next_value FROM %s WHERE logical_type = ?", s.sequences)), name).Scan(&next)
	return next, err
}

func (s *Store) decode(ts *spec.ObjectSpecification, key string, version int64, state string) (interface{}, error) {
	pojo := ts.NewInstance()
	if err := json.Unmarshal([]byte(state), pojo); err != nil {
		return nil, fmt.Errorf("failed to decode %s:%s: %w", ts.LogicalTypeName(), key, err)
	}
	return s.attach(&entry{logicalType: ts.LogicalTypeName(), key: key, pojo: pojo, version: version}), nil
}

// Fetch returns the attached pojo for key, loading it on first access
func (s *Store) Fetch(ctx context.Context, ts *spec.ObjectSpecification, key string) (interface{}, error) {
	if err := persistence.CheckEntity(ts); err != nil {
		return nil, err
	}
	name := ts.LogicalTypeName()
	s.mu.RLock()
	e, ok := s.byKey[name][key]
	s.mu.RUnlock()
	if ok {
		return e.pojo, nil
	}

	var version int64
	var state string
	err := s.db.QueryRowContext(ctx,
		s.rebind(fmt.Sprintf("SELECT version, state FROM %s WHERE logical_type = ? AND object_key = ?", s.objects)),
		name, key).Scan(&version, &state)
	if err != nil {
		return nil, fmt.Errorf("%s:%s: %w", name, key, convertError(err))
	}
	return s.decode(ts, key, version, state)
}

// Delete removes the row of an attached pojo
func (s *Store) Delete(ctx context.Context, ts *spec.ObjectSpecification, pojo interface{}) error {
	e, ok := s.lookup(pojo)
	if !ok || e.logicalType != ts.LogicalTypeName() {
		return fmt.Errorf("%w: %T", persistence.ErrNotPersistent, pojo)
	}
	s.mu.RLock()
	version := e.version
	s.mu.RUnlock()

	err := s.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			s.rebind(fmt.Sprintf("DELETE FROM %s WHERE logical_type = ? AND object_key = ? AND version = ?", s.objects)),
			e.logicalType, e.key, version)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s:%s at version %d", persistence.ErrConcurrentModification, e.logicalType, e.key, version)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.detach(e)
	return nil
}

// AllInstances loads every row of the type, ordered by key
func (s *Store) AllInstances(ctx context.Context, ts *spec.ObjectSpecification) ([]interface{}, error) {
	if err := persistence.CheckEntity(ts); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		s.rebind(fmt.Sprintf("SELECT object_key, version, state FROM %s WHERE logical_type = ?", s.objects)),
		ts.LogicalTypeName())
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", ts.LogicalTypeName(), err)
	}
	defer rows.Close()

	type row struct {
		version int64
		state   string
	}
	loaded := make(map[string]row)
	var keys []string
	for rows.Next() {
		var key string
		var r row
		if err := rows.Scan(&key, &r.version, &r.state); err != nil {
			return nil, err
		}
		loaded[key] = r
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	persistence.SortKeys(keys)
	result := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		s.mu.RLock()
		e, ok := s.byKey[ts.LogicalTypeName()][key]
		s.mu.RUnlock()
		if ok {
			result = append(result, e.pojo)
			continue
		}
		pojo, err := s.decode(ts, key, loaded[key].version, loaded[key].state)
		if err != nil {
			return nil, err
		}
		result = append(result, pojo)
	}
	return result, nil
}
