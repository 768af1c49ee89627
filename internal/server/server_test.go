package server

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// The Fiber app is owned and shut down by the caller; Shutdown only releases
// the server's own resources.
func TestServerShutdown_ClosesResources(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectClose()

	srv := &Server{db: gdb}
	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
