// Package migrations embeds the SQL schema for both backing stores and
// applies it at startup. The schema is small and every statement is
// idempotent (CREATE ... IF NOT EXISTS), so each boot re-applies the
// whole directory instead of tracking versions.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"sort"
	"strings"

	chstore "lending-risk-monitor/internal/storage/clickhouse"
	"lending-risk-monitor/internal/storage/postgres"
)

//go:embed postgres/*.sql clickhouse/*.sql
var schemaFS embed.FS

// execFunc runs one SQL statement against a store.
type execFunc func(ctx context.Context, stmt string) error

// RunPostgresMigrations applies the embedded postgres schema.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	return applyDir(ctx, "postgres", func(ctx context.Context, stmt string) error {
		_, err := pool.Exec(ctx, stmt)
		return err
	})
}

// RunClickhouseMigrations ensures the DSN's database exists, applies
// the embedded clickhouse schema, and returns a connection to the
// target database for reuse.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}

	// CREATE DATABASE needs a connection with no database selected.
	adminConn, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	if err := adminConn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", dbName)); err != nil {
		adminConn.Close()
		return nil, fmt.Errorf("create database %s: %w", dbName, err)
	}
	if err := adminConn.Close(); err != nil {
		return nil, fmt.Errorf("close admin connection: %w", err)
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}
	if err := applyDir(ctx, "clickhouse", func(ctx context.Context, stmt string) error {
		return conn.Exec(ctx, stmt)
	}); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// applyDir runs every embedded .sql file under dir in lexical order,
// one statement at a time. Statement-at-a-time keeps the two drivers
// on the same path: the clickhouse driver rejects multiquery Exec.
func applyDir(ctx context.Context, dir string, exec execFunc) error {
	entries, err := fs.ReadDir(schemaFS, dir)
	if err != nil {
		return fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := fs.ReadFile(schemaFS, dir+"/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		stmts, err := splitStatements(string(data))
		if err != nil {
			return fmt.Errorf("parse migration %s: %w", file, err)
		}
		for _, stmt := range stmts {
			if err := exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", file, err)
			}
		}
	}
	return nil
}

// splitStatements strips -- comment lines and splits on semicolons.
// Semicolons inside single-quoted literals would break the split, so
// they are rejected outright; the schema has no use for them.
func splitStatements(input string) ([]string, error) {
	if err := checkNoSemicolonInStrings(input); err != nil {
		return nil, err
	}

	var filtered []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		filtered = append(filtered, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(filtered, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}

func checkNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			// '' escapes a quote inside a literal
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		case ';':
			if inString {
				return fmt.Errorf("semicolon inside string literal")
			}
		}
	}
	return nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return db, nil
}
