package mounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jackfish212/assetfs/types"

	_ "modernc.org/sqlite"
)

var (
	_ types.Backend         = (*SQLiteFS)(nil)
	_ types.WritableBackend = (*SQLiteFS)(nil)
)

// SQLiteFS is a SQLite-backed filesystem that survives restarts.
type SQLiteFS struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex // serializes multi-statement updates
	log    *zap.Logger
}

// OpenSQLiteFS opens (or creates) the store at dbPath. A store that cannot be
// read or carries an unexpected schema is wiped and reinitialized instead of
// failing the open.
func OpenSQLiteFS(dbPath string, opts ...Option) (*SQLiteFS, error) {
	o := buildOptions(opts)

	fs, err := openSQLiteFS(dbPath, o.log)
	if err == nil {
		return fs, nil
	}
	if !errors.Is(err, types.ErrCorruptStore) {
		return nil, err
	}

	o.log.Warn("sqlitefs: store unreadable, reinitializing", zap.String("path", dbPath), zap.Error(err))
	if err := wipeSQLiteFiles(dbPath); err != nil {
		return nil, fmt.Errorf("wiping corrupt store: %w", err)
	}
	return openSQLiteFS(dbPath, o.log)
}

func openSQLiteFS(dbPath string, log *zap.Logger) (*SQLiteFS, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	fs := &SQLiteFS{db: db, dbPath: dbPath, log: log}
	if err := fs.checkIntegrity(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", types.ErrCorruptStore, err)
	}
	if err := fs.initDB(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: initializing database: %v", types.ErrCorruptStore, err)
	}
	if err := fs.probeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", types.ErrCorruptStore, err)
	}
	return fs, nil
}

func (fs *SQLiteFS) checkIntegrity() error {
	var result string
	if err := fs.db.QueryRow(`PRAGMA quick_check`).Scan(&result); err != nil {
		return fmt.Errorf("quick_check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("quick_check: %s", result)
	}
	return nil
}

func (fs *SQLiteFS) initDB() error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT UNIQUE NOT NULL,
		content BLOB,
		is_dir BOOLEAN NOT NULL DEFAULT 0,
		modified INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_files_path ON files(path);
	`
	_, err := fs.db.Exec(schema)
	return err
}

// probeSchema catches a files table left behind by something else.
func (fs *SQLiteFS) probeSchema() error {
	rows, err := fs.db.Query(`SELECT path, content, is_dir, modified FROM files LIMIT 1`)
	if err != nil {
		return fmt.Errorf("schema probe: %w", err)
	}
	return rows.Close()
}

func wipeSQLiteFiles(dbPath string) error {
	if dbPath == "" || strings.HasPrefix(dbPath, ":memory:") || strings.HasPrefix(dbPath, "file:") {
		return nil
	}
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm", dbPath + "-journal"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (fs *SQLiteFS) Close() error { return fs.db.Close() }

func (fs *SQLiteFS) Stat(ctx context.Context, path string) (*types.Entry, error) {
	path = normPath(path)
	if path == "" {
		return &types.Entry{Name: "/", Path: "", IsDir: true}, nil
	}

	var isDir bool
	var size sql.NullInt64
	var modified int64
	err := fs.db.QueryRowContext(ctx, `SELECT is_dir, LENGTH(content), modified FROM files WHERE path = ?`, path).
		Scan(&isDir, &size, &modified)
	if err == sql.ErrNoRows {
		has, err := fs.hasChildren(ctx, path)
		if err != nil {
			return nil, err
		}
		if has {
			return &types.Entry{Name: baseName(path), Path: path, IsDir: true}, nil
		}
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("stat error: %w", err)
	}

	return &types.Entry{
		Name: baseName(path), Path: path, IsDir: isDir,
		Size: size.Int64, Modified: time.Unix(0, modified),
	}, nil
}

func (fs *SQLiteFS) hasChildren(ctx context.Context, path string) (bool, error) {
	var count int
	err := fs.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE instr(path, ?) = 1`, path+"/").Scan(&count)
	if err != nil {
		return false, fmt.Errorf("stat error: %w", err)
	}
	return count > 0, nil
}

func (fs *SQLiteFS) List(ctx context.Context, path string) ([]types.Entry, error) {
	path = normPath(path)

	if path != "" {
		entry, err := fs.Stat(ctx, path)
		if err != nil {
			return nil, err
		}
		if !entry.IsDir {
			return nil, fmt.Errorf("%w: %s", types.ErrNotDir, path)
		}
	}

	prefix := childPrefix(path)
	rows, err := fs.db.QueryContext(ctx,
		`SELECT path, is_dir, LENGTH(content), modified FROM files WHERE instr(path, ?) = 1 ORDER BY path`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list error: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var entries []types.Entry

	for rows.Next() {
		var childPath string
		var isDir bool
		var size sql.NullInt64
		var modified int64
		if err := rows.Scan(&childPath, &isDir, &size, &modified); err != nil {
			return nil, fmt.Errorf("scanning path: %w", err)
		}
		rest := strings.TrimPrefix(childPath, prefix)
		if rest == "" {
			continue
		}

		name := rest
		isImplicitDir := false
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			name = rest[:idx]
			isImplicitDir = true
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		if isImplicitDir {
			entries = append(entries, types.Entry{Name: name, Path: prefix + name, IsDir: true})
			continue
		}
		entries = append(entries, types.Entry{
			Name: name, Path: childPath, IsDir: isDir,
			Size: size.Int64, Modified: time.Unix(0, modified),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list error: %w", err)
	}
	return entries, nil
}

func (fs *SQLiteFS) ReadFile(ctx context.Context, path string) ([]byte, error) {
	path = normPath(path)
	var content []byte
	var isDir bool

	err := fs.db.QueryRowContext(ctx, `SELECT content, is_dir FROM files WHERE path = ?`, path).Scan(&content, &isDir)
	if err == sql.ErrNoRows {
		if path == "" {
			return nil, fmt.Errorf("%w: root", types.ErrIsDir)
		}
		if has, _ := fs.hasChildren(ctx, path); has {
			return nil, fmt.Errorf("%w: %s", types.ErrIsDir, path)
		}
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}
	if isDir {
		return nil, fmt.Errorf("%w: %s", types.ErrIsDir, path)
	}
	if content == nil {
		content = []byte{}
	}
	return content, nil
}

func (fs *SQLiteFS) WriteFile(ctx context.Context, path string, data []byte) error {
	path = normPath(path)
	if path == "" {
		return fmt.Errorf("%w: cannot write root", types.ErrIsDir)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if entry, err := fs.Stat(ctx, path); err == nil && entry.IsDir {
		return fmt.Errorf("%w: %s", types.ErrIsDir, path)
	}
	if data == nil {
		data = []byte{}
	}

	_, err := fs.db.ExecContext(ctx, `
		INSERT INTO files (path, content, is_dir, modified) VALUES (?, ?, 0, ?)
		ON CONFLICT(path) DO UPDATE SET content = excluded.content, is_dir = excluded.is_dir, modified = excluded.modified
	`, path, data, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

func (fs *SQLiteFS) Mkdir(ctx context.Context, path string) error {
	path = normPath(path)
	if path == "" {
		return fmt.Errorf("%w: cannot mkdir root", types.ErrNotSupported)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := fs.Stat(ctx, path); err == nil {
		return fmt.Errorf("%w: %s", types.ErrAlreadyExists, path)
	}
	_, err := fs.db.ExecContext(ctx, `INSERT INTO files (path, content, is_dir, modified) VALUES (?, NULL, 1, ?)`,
		path, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return nil
}

func (fs *SQLiteFS) Unlink(ctx context.Context, path string) error {
	path = normPath(path)
	if path == "" {
		return fmt.Errorf("%w: cannot remove root", types.ErrNotSupported)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := fs.Stat(ctx, path); err != nil {
		return err
	}
	_, err := fs.db.ExecContext(ctx, `DELETE FROM files WHERE path = ? OR instr(path, ?) = 1`, path, path+"/")
	if err != nil {
		return fmt.Errorf("unlink: %w", err)
	}
	return nil
}

func (fs *SQLiteFS) Rename(ctx context.Context, oldPath, newPath string) error {
	oldPath = normPath(oldPath)
	newPath = normPath(newPath)
	if oldPath == "" || newPath == "" {
		return fmt.Errorf("%w: cannot rename root", types.ErrNotSupported)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := fs.Stat(ctx, oldPath); err != nil {
		return err
	}

	tx, err := fs.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixNano()
	if _, err := tx.ExecContext(ctx, `UPDATE files SET path = ?, modified = ? WHERE path = ?`, newPath, now, oldPath); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	oldPrefix := oldPath + "/"
	newPrefix := newPath + "/"
	if _, err := tx.ExecContext(ctx,
		`UPDATE files SET path = ? || substr(path, length(?) + 1), modified = ? WHERE instr(path, ?) = 1`,
		newPrefix, oldPrefix, now, oldPrefix); err != nil {
		return fmt.Errorf("rename children: %w", err)
	}

	return tx.Commit()
}

func (fs *SQLiteFS) MountInfo() (string, string) { return "sqlitefs", fs.dbPath }
