package order

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

type fixedSequence struct {
	next int64
	err  error
}

func (s *fixedSequence) Next(ctx context.Context, name string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.next, nil
}

func TestRepositoryCreate_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, &fixedSequence{next: 42})
	ctx := context.Background()
	now := time.Now()

	o := &Order{
		CustomerName:  "Ann",
		CustomerEmail: "ann@example.com",
		Status:        StatusPending,
		CreatedAt:     now,
		Items: []Item{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p2", Quantity: 2},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO orders (id, customer_name, customer_email, status, created_at)
         VALUES ($1, $2, $3, $4, $5)`)).
		WithArgs(int64(42), o.CustomerName, o.CustomerEmail, o.Status, o.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_items (order_id, product_id, quantity)
             VALUES ($1, $2, $3)`)).
		WithArgs(int64(42), "p1", 1).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_items (order_id, product_id, quantity)
             VALUES ($1, $2, $3)`)).
		WithArgs(int64(42), "p2", 2).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectCommit()

	require.NoError(t, repo.Create(ctx, o))
	require.Equal(t, int64(42), o.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreate_SequenceError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, &fixedSequence{err: errors.New("sequence down")})

	err = repo.Create(context.Background(), &Order{Status: StatusPending})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreate_InsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, &fixedSequence{next: 7})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO orders`)).
		WillReturnError(errors.New("insert fail"))
	mock.ExpectRollback()

	err = repo.Create(context.Background(), &Order{Status: StatusPending})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGet_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, &fixedSequence{})
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, customer_name, customer_email, status, COALESCE(failure_reason, ''), created_at
         FROM orders WHERE id = $1`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_name", "customer_email", "status", "failure_reason", "created_at"}).
			AddRow(int64(5), "Bob", "bob@example.com", string(StatusCreated), "", now))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT product_id, quantity
         FROM order_items WHERE order_id = $1`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}).
			AddRow("p1", 3))

	o, err := repo.Get(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, StatusCreated, o.Status)
	require.Len(t, o.Items, 1)
	require.Equal(t, "p1", o.Items[0].ProductID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGet_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, &fixedSequence{})

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, customer_name`)).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err = repo.Get(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUpdateStatus_CAS(t *testing.T) {
	t.Run("applies when status matches", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRepository(db, &fixedSequence{})

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`)).
			WithArgs(int64(1), StatusPending, StatusCreated).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateStatus(context.Background(), 1, StatusPending, StatusCreated))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict when status moved", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRepository(db, &fixedSequence{})

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`)).
			WithArgs(int64(1), StatusCreated, StatusCancelled).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`)).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err = repo.UpdateStatus(context.Background(), 1, StatusCreated, StatusCancelled)
		require.ErrorIs(t, err, ErrStatusConflict)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found when order missing", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewRepository(db, &fixedSequence{})

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`)).
			WithArgs(int64(9), StatusCreated, StatusCancelled).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`)).
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err = repo.UpdateStatus(context.Background(), 9, StatusCreated, StatusCancelled)
		require.ErrorIs(t, err, ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepositoryMarkFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, &fixedSequence{})

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET status = $2, failure_reason = $3 WHERE id = $1 AND status = $4`)).
		WithArgs(int64(3), StatusFailed, "reserve p2: insufficient stock", StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkFailed(context.Background(), 3, "reserve p2: insufficient stock"))
	require.NoError(t, mock.ExpectationsWereMet())
}
