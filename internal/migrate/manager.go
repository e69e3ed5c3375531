// Package migrate applies versioned SQL migrations and idempotent seed
// files from disk, recording what ran in bookkeeping tables.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	migrationsTable = "schema_migrations"
	seedsTable      = "schema_seeds"

	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// Manager executes SQL migrations and seed files stored on disk.
type Manager struct {
	db            *sql.DB
	migrationsDir string
	seedsDir      string
}

// NewManager constructs a Manager over the given directories.
func NewManager(db *sql.DB, migrationsDir, seedsDir string) *Manager {
	return &Manager{db: db, migrationsDir: migrationsDir, seedsDir: seedsDir}
}

// Up applies all pending migrations in filename order.
func (m *Manager) Up(ctx context.Context) error {
	if err := m.ensureTables(ctx); err != nil {
		return err
	}
	applied, err := m.applied(ctx, migrationsTable)
	if err != nil {
		return err
	}
	scripts, err := listScripts(m.migrationsDir, upSuffix)
	if err != nil {
		return err
	}
	for _, sc := range scripts {
		if applied[sc.name] {
			continue
		}
		if err := m.runScript(ctx, sc.path); err != nil {
			return fmt.Errorf("apply migration %s: %w", sc.name, err)
		}
		if err := m.record(ctx, migrationsTable, sc.name); err != nil {
			return err
		}
	}
	return nil
}

// Down rolls back the most recently applied migration.
func (m *Manager) Down(ctx context.Context) error {
	if err := m.ensureTables(ctx); err != nil {
		return err
	}
	history, err := m.history(ctx, migrationsTable)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return errors.New("no migrations applied")
	}
	last := history[len(history)-1]
	downPath := filepath.Join(m.migrationsDir, strings.TrimSuffix(last, upSuffix)+downSuffix)
	if _, err := os.Stat(downPath); err != nil {
		return fmt.Errorf("missing down migration for %s", last)
	}
	if err := m.runScript(ctx, downPath); err != nil {
		return fmt.Errorf("rollback migration %s: %w", last, err)
	}
	_, err = m.db.ExecContext(ctx,
		fmt.Sprintf(`delete from %s where name = $1`, migrationsTable), last)
	return err
}

// Status returns applied migrations in application order.
func (m *Manager) Status(ctx context.Context) ([]string, error) {
	if err := m.ensureTables(ctx); err != nil {
		return nil, err
	}
	return m.history(ctx, migrationsTable)
}

// Seed applies seed files once each.
func (m *Manager) Seed(ctx context.Context) error {
	if err := m.ensureTables(ctx); err != nil {
		return err
	}
	applied, err := m.applied(ctx, seedsTable)
	if err != nil {
		return err
	}
	scripts, err := listScripts(m.seedsDir, ".sql")
	if err != nil {
		return err
	}
	for _, sc := range scripts {
		if applied[sc.name] {
			continue
		}
		if err := m.runScript(ctx, sc.path); err != nil {
			return fmt.Errorf("apply seed %s: %w", sc.name, err)
		}
		if err := m.record(ctx, seedsTable, sc.name); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) ensureTables(ctx context.Context) error {
	for _, table := range []string{migrationsTable, seedsTable} {
		ddl := fmt.Sprintf(`
			create table if not exists %s (
				name text primary key,
				applied_at timestamptz not null default now()
			)`, table)
		if _, err := m.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

// runScript executes every statement in the file inside one transaction.
func (m *Manager) runScript(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(raw)) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (m *Manager) record(ctx context.Context, table, name string) error {
	_, err := m.db.ExecContext(ctx,
		fmt.Sprintf(`insert into %s(name, applied_at) values ($1, $2)`, table),
		name, time.Now().UTC())
	return err
}

func (m *Manager) applied(ctx context.Context, table string) (map[string]bool, error) {
	names, err := m.history(ctx, table)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set, nil
}

func (m *Manager) history(ctx context.Context, table string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx,
		fmt.Sprintf(`select name from %s order by applied_at asc, name asc`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

type script struct {
	name string
	path string
}

// listScripts returns files with the given suffix in filename order. A
// missing directory is treated as empty.
func listScripts(dir, suffix string) ([]script, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var scripts []script
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		scripts = append(scripts, script{name: entry.Name(), path: filepath.Join(dir, entry.Name())})
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].name < scripts[j].name })
	return scripts, nil
}

// splitStatements splits SQL on semicolons outside single-quoted strings.
func splitStatements(sql string) []string {
	var stmts []string
	var current strings.Builder
	inString := false
	for _, r := range sql {
		current.WriteRune(r)
		switch r {
		case '\'':
			inString = !inString
		case ';':
			if !inString {
				stmts = append(stmts, current.String())
				current.Reset()
			}
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		stmts = append(stmts, current.String())
	}
	return stmts
}
