package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

const DefaultFile = "arena-sheets.db"

type Config struct {
	// File is a local sqlite database, used when Url is empty.
	File string `json:"file"`
	// Url is a remote libsql database, ex. libsql://arena.turso.io
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// Open opens the configured database and creates any missing tables.
func Open(ctx context.Context, config Config) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	if config.Url != "" {
		dsn := config.Url
		if config.AuthToken != "" {
			parsed, err := url.Parse(config.Url)
			if err != nil {
				return nil, fmt.Errorf("parse database url: %w", err)
			}
			query := parsed.Query()
			query.Set("authToken", config.AuthToken)
			parsed.RawQuery = query.Encode()
			dsn = parsed.String()
		}
		db, err = sql.Open("libsql", dsn)
	} else {
		file := config.File
		if file == "" {
			file = DefaultFile
		}
		db, err = sql.Open("sqlite", file)
	}
	if err != nil {
		return nil, err
	}

	err = Migrate(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate runs the schema one statement at a time, the remote driver does
// not accept multiple statements per call.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
