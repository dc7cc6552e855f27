package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the clients table when it does not exist yet.  The ticket
// code list and social links are stored as JSON documents; the version
// column backs the optimistic-concurrency check in the repository layer.
func Migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS clients (
    id            CHAR(36)        NOT NULL,
    idm_user_id   INT             NOT NULL,
    email         VARCHAR(255)    NOT NULL,
    first_name    VARCHAR(100)    NULL,
    last_name     VARCHAR(100)    NULL,
    public_profile TINYINT(1)     NOT NULL DEFAULT 0,
    social_links  JSON            NULL,
    ticket_codes  JSON            NOT NULL,
    version       BIGINT UNSIGNED NOT NULL DEFAULT 1,
    created_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    PRIMARY KEY (id),
    UNIQUE KEY uq_clients_email (email),
    UNIQUE KEY uq_clients_idm_user (idm_user_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := db.ExecContext(ctx, schema)
	return err
}
