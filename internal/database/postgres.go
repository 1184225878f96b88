package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/AnshRaj112/plant-journal-backend/internal/logging"
)

var PostgresDB *sql.DB

// ConnectPostgres connects to PostgreSQL database
func ConnectPostgres(postgresURI string) error {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	PostgresDB = db
	logging.Info().Msg("connected to PostgreSQL")

	return InitPostgresTables(ctx)
}

// InitPostgresTables creates the admin credential table if it doesn't exist
func InitPostgresTables(ctx context.Context) error {
	_, err := PostgresDB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS admins (
		id VARCHAR(64) PRIMARY KEY,
		username VARCHAR(20) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`)
	return err
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}
