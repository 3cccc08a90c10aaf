package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/causeway-lang/causeway/internal/metamodel/schema"
	"github.com/causeway-lang/causeway/internal/metamodel/spec"
	"github.com/causeway-lang/causeway/internal/runtime/persistence"
)

type owner struct {
	ID       int
	LastName string
	City     string
}

type note struct {
	Text string
}

func ownerSpec(t *testing.T) *spec.ObjectSpecification {
	t.Helper()
	s, err := schema.For[owner]("petclinic.Owner", schema.SortEntity).
		Property("ID", schema.PrimaryKey{}).
		Property("LastName").
		Property("City").
		Build()
	require.NoError(t, err)
	return spec.New(s, nil)
}

func openSQLite(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	s, err := Open(context.Background(), Config{Driver: "sqlite3", DSN: dsn}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	owners := ownerSpec(t)
	store := openSQLite(t)

	davis := &owner{LastName: "Davis", City: "Madison"}
	require.NoError(t, store.Persist(ctx, owners, davis))
	assert.Equal(t, 1, davis.ID)
	require.NoError(t, store.Persist(ctx, owners, &owner{LastName: "Franklin"}))

	key, ok := store.Identifier(davis)
	require.True(t, ok)
	assert.Equal(t, "1", key)

	same, err := store.Fetch(ctx, owners, "1")
	require.NoError(t, err)
	assert.Same(t, davis, same)

	// a second store over the same database sees the rows, not the instances
	other, err := New(store.db, Config{Driver: "sqlite3"}, nil)
	require.NoError(t, err)
	loaded, err := other.Fetch(ctx, owners, "1")
	require.NoError(t, err)
	assert.NotSame(t, davis, loaded)
	assert.Equal(t, davis, loaded)

	all, err := other.AllInstances(ctx, owners)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Same(t, loaded, all[0])
	assert.Equal(t, "Franklin", all[1].(*owner).LastName)

	_, err = store.Fetch(ctx, owners, "42")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestSQLiteOptimisticLocking(t *testing.T) {
	ctx := context.Background()
	owners := ownerSpec(t)
	store := openSQLite(t)

	o := &owner{LastName: "Davis"}
	require.NoError(t, store.Persist(ctx, owners, o))

	other, err := New(store.db, Config{Driver: "sqlite3"}, nil)
	require.NoError(t, err)
	stale, err := other.Fetch(ctx, owners, "1")
	require.NoError(t, err)

	o.City = "Madison"
	require.NoError(t, store.Persist(ctx, owners, o))
	version, _ := store.Version(o)
	assert.Equal(t, int64(2), version)

	stale.(*owner).City = "Monona"
	assert.ErrorIs(t, other.Persist(ctx, owners, stale), persistence.ErrConcurrentModification)
	assert.ErrorIs(t, other.Delete(ctx, owners, stale), persistence.ErrConcurrentModification)

	require.NoError(t, store.Delete(ctx, owners, o))
	assert.False(t, store.IsPersistent(o))
	assert.ErrorIs(t, store.Delete(ctx, owners, o), persistence.ErrNotPersistent)
}

func TestSQLiteDuplicateKey(t *testing.T) {
	ctx := context.Background()
	owners := ownerSpec(t)
	store := openSQLite(t)

	require.NoError(t, store.Persist(ctx, owners, &owner{ID: 7, LastName: "Davis"}))
	err := store.Persist(ctx, owners, &owner{ID: 7, LastName: "Black"})
	assert.ErrorIs(t, err, persistence.ErrDuplicateKey)
}

func TestRejectsNonEntities(t *testing.T) {
	s, err := schema.For[note]("petclinic.Note", schema.SortViewModel).Property("Text").Build()
	require.NoError(t, err)
	notes := spec.New(s, nil)

	store := openSQLite(t)
	assert.ErrorIs(t, store.Persist(context.Background(), notes, &note{}), persistence.ErrNotEntity)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"}, nil)
	assert.ErrorContains(t, err, `unsupported driver "mysql"`)
}

func TestRebind(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pg, err := New(db, Config{Driver: "pgx"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))

	lite, err := New(db, Config{Driver: "sqlite3"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a = ? AND b = ?", lite.rebind("a = ? AND b = ?"))
}

func TestPostgresConcurrentModification(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := New(db, Config{Driver: "postgres"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	owners := ownerSpec(t)

	mock.ExpectQuery(`SELECT version, state FROM "causeway_objects" WHERE logical_type = \$1 AND object_key = \$2`).
		WithArgs("petclinic.Owner", "1").
		WillReturnRows(sqlmock.NewRows([]string{"version", "state"}).AddRow(int64(3), `{"ID":1,"LastName":"Davis"}`))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "causeway_objects" SET state = \$1, version = version \+ 1`).
		WithArgs(sqlmock.AnyArg(), "petclinic.Owner", "1", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	o, err := store.Fetch(ctx, owners, "1")
	require.NoError(t, err)
	assert.Equal(t, "Davis", o.(*owner).LastName)

	assert.ErrorIs(t, store.Persist(ctx, owners, o), persistence.ErrConcurrentModification)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryOnDeadlock(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := New(db, Config{Driver: "pgx", Retry: RetryConfig{MaxAttempts: 3, BaseBackoff: time.Millisecond}}, zaptest.NewLogger(t))
	require.NoError(t, err)
	owners := ownerSpec(t)

	mock.ExpectQuery(`SELECT version, state`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "state"}).AddRow(int64(1), `{"ID":1}`))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "causeway_objects"`).WillReturnError(&pgconn.PgError{Code: "40P01"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "causeway_objects"`).
		WithArgs("petclinic.Owner", "1", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	o, err := store.Fetch(ctx, owners, "1")
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, owners, o))
	assert.False(t, store.IsPersistent(o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithRetryGivesUp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := NewTxManager(db, zaptest.NewLogger(t))
	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}
	attempts := 0
	err = m.WithRetry(context.Background(), RetryConfig{MaxAttempts: 2, BaseBackoff: time.Millisecond}, func(*sql.Tx) error {
		attempts++
		return &pq.Error{Code: "40001"}
	})
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 2, attempts)

	mock.ExpectBegin()
	mock.ExpectRollback()
	boom := errors.New("boom")
	err = m.WithRetry(context.Background(), RetryConfig{MaxAttempts: 3, BaseBackoff: time.Millisecond}, func(*sql.Tx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRollsBackOnPanic(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()
	m := NewTxManager(db, nil)
	assert.Panics(t, func() {
		m.WithTransaction(context.Background(), func(*sql.Tx) error { panic("boom") })
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorClassification(t *testing.T) {
	assert.ErrorIs(t, convertError(&pgconn.PgError{Code: "23505"}), persistence.ErrDuplicateKey)
	assert.ErrorIs(t, convertError(&pq.Error{Code: "23505"}), persistence.ErrDuplicateKey)
	assert.ErrorIs(t, convertError(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}), persistence.ErrDuplicateKey)

	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", &pq.Error{Code: "40001"})))
	assert.True(t, IsRetryable(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("connection refused")))
	assert.False(t, IsRetryable(nil))
}
