package db

import (
	"database/sql"
	"log"

	_ "github.com/lib/pq" // Register postgres driver
)

// Open opens a database connection without pinging.
func Open(dsn string) (*sql.DB, error) {
	return sql.Open("postgres", dsn)
}

// MustOpen returns an open and verified database connection.
func MustOpen(dsn string) *sql.DB {
	db, err := Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	if err := db.Ping(); err != nil {
		log.Fatalf("ping db: %v", err)
	}

	return db
}
