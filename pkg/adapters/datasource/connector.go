package datasource

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ekaya-inc/campus-er/pkg/apperrors"
)

// DB is a Connector backed by a database/sql handle.
type DB struct {
	db      *sql.DB
	dialect Dialect
}

// Open opens the activity database for a registered dialect type.
// The handle is verified with a ping; failures wrap apperrors.ErrConnection.
// Idle connections are not kept, so every Session dials a fresh connection
// and closing it closes the underlying connection.
func Open(ctx context.Context, dialectType, dsn string) (*DB, error) {
	reg, ok := GetRegistration(dialectType)
	if !ok {
		return nil, fmt.Errorf("unsupported activity driver: %s (not compiled in)", dialectType)
	}

	db, err := sql.Open(reg.Info.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", apperrors.ErrConnection, dialectType, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", apperrors.ErrConnection, dialectType, err)
	}
	db.SetMaxIdleConns(0)

	return &DB{db: db, dialect: reg.Dialect}, nil
}

// NewDB wraps an already opened handle.
func NewDB(db *sql.DB, dialect Dialect) *DB {
	return &DB{db: db, dialect: dialect}
}

// Session borrows one dedicated connection from the handle's pool.
func (d *DB) Session(ctx context.Context) (Session, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrConnection, err)
	}
	return conn, nil
}

func (d *DB) Dialect() Dialect {
	return d.dialect
}

func (d *DB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrConnection, err)
	}
	return nil
}

// Stats reports the handle's connection counts.
func (d *DB) Stats() sql.DBStats {
	return d.db.Stats()
}

func (d *DB) Close() error {
	return d.db.Close()
}

var _ Connector = (*DB)(nil)
