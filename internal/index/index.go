// Package index keeps a SQLite summary of headlines across the org
// directory so agenda and lookup queries work without loading every
// document. It is a projection of exported documents, rebuilt per file
// on demand; the loaded trees stay the source of truth.
package index

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dgallion1/orgbridge/internal/orgtree"
)

const archiveTag = "ARCHIVE"

// Index manages the headline database.
type Index struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	idx := &Index{db: db}
	if err := idx.init(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		path TEXT PRIMARY KEY,
		mtime TIMESTAMP,
		title TEXT
	);

	CREATE TABLE IF NOT EXISTS headlines (
		path TEXT NOT NULL,
		begin INTEGER NOT NULL,
		level INTEGER NOT NULL,
		title TEXT,
		todo_keyword TEXT,
		todo_type TEXT,
		priority TEXT,
		tags TEXT,
		ref TEXT,
		archived BOOLEAN
	);

	CREATE INDEX IF NOT EXISTS idx_headlines_path ON headlines(path);
	CREATE INDEX IF NOT EXISTS idx_headlines_todo ON headlines(todo_type);
	CREATE INDEX IF NOT EXISTS idx_headlines_ref ON headlines(ref);
	`
	_, err := idx.db.Exec(schema)
	return err
}

// Close closes the database.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Row is one indexed headline.
type Row struct {
	Path        string
	Begin       int
	Level       int
	Title       string
	TodoKeyword string
	TodoType    string
	Priority    string
	Tags        []string
	Ref         string
	Archived    bool
}

// ReindexDocument replaces the file's rows with the document's current
// headlines. mtime records which source version the rows reflect.
func (idx *Index) ReindexDocument(doc *orgtree.Document, mtime time.Time) error {
	if doc.Path == "" {
		return fmt.Errorf("cannot index a document without a path")
	}

	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec("DELETE FROM headlines WHERE path = ?", doc.Path); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM files WHERE path = ?", doc.Path); err != nil {
		return err
	}

	if _, err := tx.Exec(
		"INSERT INTO files (path, mtime, title) VALUES (?, ?, ?)",
		doc.Path, mtime, doc.Title(),
	); err != nil {
		return err
	}

	for _, h := range doc.Headlines() {
		begin, _ := h.Begin()
		tags := h.Tags()
		archived := false
		for _, tag := range tags {
			if tag == archiveTag {
				archived = true
			}
		}
		priority := ""
		if p, ok := h.Priority(); ok {
			priority = string(p)
		}
		if _, err := tx.Exec(`
			INSERT INTO headlines (
				path, begin, level, title, todo_keyword, todo_type,
				priority, tags, ref, archived
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, doc.Path, begin, h.Level(), h.Title(), h.TodoKeyword(), h.TodoType(),
			priority, joinTags(tags), h.Ref(), archived,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RemoveFile drops a file and its headlines from the index.
func (idx *Index) RemoveFile(path string) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec("DELETE FROM headlines WHERE path = ?", path); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM files WHERE path = ?", path); err != nil {
		return err
	}
	return tx.Commit()
}

// FileMtime returns the recorded export time for a file.
func (idx *Index) FileMtime(path string) (time.Time, bool, error) {
	var mtime time.Time
	err := idx.db.QueryRow("SELECT mtime FROM files WHERE path = ?", path).Scan(&mtime)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return mtime, true, nil
}

// Files lists indexed file paths.
func (idx *Index) Files() ([]string, error) {
	rows, err := idx.db.Query("SELECT path FROM files ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		out = append(out, path)
	}
	return out, rows.Err()
}

// FindOptions filter the headline listing. Zero values do not filter.
type FindOptions struct {
	Files        []string
	Title        string // case-insensitive substring
	Tags         []string
	TodoKeywords []string
	TodoNotDone  bool
	MinLevel     int
	MaxLevel     int
	Archived     bool // include archived headlines
	Limit        int
}

// Find lists headlines matching the options, ordered by file then
// buffer position.
func (idx *Index) Find(opts FindOptions) ([]Row, error) {
	var conditions []string
	var args []any

	if !opts.Archived {
		conditions = append(conditions, "archived = 0")
	}
	if len(opts.Files) > 0 {
		conditions = append(conditions, "path IN ("+placeholders(len(opts.Files))+")")
		for _, f := range opts.Files {
			args = append(args, f)
		}
	}
	if opts.Title != "" {
		conditions = append(conditions, "title LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(opts.Title)+"%")
	}
	if len(opts.Tags) > 0 {
		// Any of the tags, matching the tree predicate's semantics.
		likes := make([]string, len(opts.Tags))
		for i, tag := range opts.Tags {
			likes[i] = "tags LIKE ?"
			args = append(args, "%:"+tag+":%")
		}
		conditions = append(conditions, "("+strings.Join(likes, " OR ")+")")
	}
	if len(opts.TodoKeywords) > 0 {
		conditions = append(conditions, "todo_keyword IN ("+placeholders(len(opts.TodoKeywords))+")")
		for _, kw := range opts.TodoKeywords {
			args = append(args, kw)
		}
	}
	if opts.TodoNotDone {
		conditions = append(conditions, "todo_type = 'todo'")
	}
	if opts.MinLevel > 0 {
		conditions = append(conditions, "level >= ?")
		args = append(args, opts.MinLevel)
	}
	if opts.MaxLevel > 0 {
		conditions = append(conditions, "level <= ?")
		args = append(args, opts.MaxLevel)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}
	q := fmt.Sprintf(`
		SELECT path, begin, level, title, todo_keyword, todo_type,
		       priority, tags, ref, archived
		FROM headlines
		%s
		ORDER BY path, begin
	`, whereClause)
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	return idx.queryRows(q, args...)
}

// AgendaOptions filter the agenda listing.
type AgendaOptions struct {
	Files []string
	Limit int
}

// Agenda lists open todo headlines, highest priority first. Headlines
// without an explicit priority sort at the editor's default, between A
// and C.
func (idx *Index) Agenda(opts AgendaOptions) ([]Row, error) {
	conditions := []string{"todo_type = 'todo'", "archived = 0"}
	var args []any

	if len(opts.Files) > 0 {
		conditions = append(conditions, "path IN ("+placeholders(len(opts.Files))+")")
		for _, f := range opts.Files {
			args = append(args, f)
		}
	}

	q := fmt.Sprintf(`
		SELECT path, begin, level, title, todo_keyword, todo_type,
		       priority, tags, ref, archived
		FROM headlines
		WHERE %s
		ORDER BY CASE WHEN priority = '' THEN 'B' ELSE priority END, path, begin
	`, strings.Join(conditions, " AND "))
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	return idx.queryRows(q, args...)
}

func (idx *Index) queryRows(q string, args ...any) ([]Row, error) {
	rows, err := idx.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var tags string
		if err := rows.Scan(
			&r.Path, &r.Begin, &r.Level, &r.Title, &r.TodoKeyword, &r.TodoType,
			&r.Priority, &tags, &r.Ref, &r.Archived,
		); err != nil {
			return nil, err
		}
		r.Tags = orgtree.ParseTags(tags)
		out = append(out, r)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

func joinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return ":" + strings.Join(tags, ":") + ":"
}
