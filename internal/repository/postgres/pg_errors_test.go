package postgresrepo

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/flightbook/internal/repository"
	"github.com/stretchr/testify/assert"
)

func TestTranslateDBErr(t *testing.T) {
	plain := errors.New("syntax error")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", pgx.ErrNoRows, repository.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, repository.ErrConflict},
		{"check violation", &pgconn.PgError{Code: "23514"}, repository.ErrCapacityExceeded},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, repository.ErrUnavailable},
		{"connection exception", &pgconn.PgError{Code: "08006"}, repository.ErrUnavailable},
		{"deadline", context.DeadlineExceeded, repository.ErrUnavailable},
		{"other", plain, plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translateDBErr(tt.in), tt.want)
		})
	}

	assert.NoError(t, translateDBErr(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "08001"}))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestWrapDBErrKeepsOp(t *testing.T) {
	err := wrapDBErr("postgresrepo.Test", pgx.ErrNoRows)

	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Contains(t, err.Error(), "postgresrepo.Test")
	assert.NoError(t, wrapDBErr("op", nil))
}
