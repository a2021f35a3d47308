package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/stevemurr/admit-stats/record"
)

// Sqlite stores the table in a SQLite database.
//
// Tables:
//
//	programs(position, university, course, <metric>_average, <metric>_count..., extra)
//	table_columns(position, name)   header order of the table
type Sqlite struct {
	db   *sql.DB
	path string
}

func NewSqlite(dbPath string) (*Sqlite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(programsDDL()); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS table_columns (
		position INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &Sqlite{db: db, path: dbPath}, nil
}

func programsDDL() string {
	var b strings.Builder
	b.WriteString(`CREATE TABLE IF NOT EXISTS programs (
		position INTEGER PRIMARY KEY,
		university TEXT NOT NULL,
		course TEXT NOT NULL,`)
	for _, m := range record.Metrics {
		fmt.Fprintf(&b, "\n\t\t%s REAL NOT NULL DEFAULT 0,", m.AverageColumn())
		fmt.Fprintf(&b, "\n\t\t%s INTEGER NOT NULL DEFAULT 0 CHECK (%s >= 0),", m.CountColumn(), m.CountColumn())
	}
	b.WriteString("\n\t\textra TEXT NOT NULL DEFAULT '{}'\n\t)")
	return b.String()
}

// programColumns is the column list shared by SELECT and INSERT.
func programColumns() []string {
	cols := record.CanonicalColumns()
	return append(cols, "extra")
}

func (s *Sqlite) Close() error {
	return s.db.Close()
}

func (s *Sqlite) String() string { return "sqlite:" + s.path }

func (s *Sqlite) ReadAll() (record.Table, error) {
	t := record.Table{Records: []record.Record{}}

	rows, err := s.db.Query("SELECT name FROM table_columns ORDER BY position")
	if err != nil {
		return record.Table{}, err
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return record.Table{}, err
		}
		t.Columns = append(t.Columns, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return record.Table{}, err
	}

	rows, err = s.db.Query("SELECT " + strings.Join(programColumns(), ", ") + " FROM programs ORDER BY position")
	if err != nil {
		return record.Table{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			rec   record.Record
			extra string
			stats = make([]record.Stat, len(record.Metrics))
		)
		dest := []any{&rec.University, &rec.Course}
		for i := range stats {
			dest = append(dest, &stats[i].Average, &stats[i].Count)
		}
		dest = append(dest, &extra)
		if err := rows.Scan(dest...); err != nil {
			return record.Table{}, err
		}
		for i, m := range record.Metrics {
			rec.SetStat(m, stats[i])
		}
		if extra != "" && extra != "{}" {
			if err := json.Unmarshal([]byte(extra), &rec.Extra); err != nil {
				return record.Table{}, fmt.Errorf("%w: extra for %s/%s: %v", ErrMalformed, rec.University, rec.Course, err)
			}
		}
		t.Records = append(t.Records, rec)
	}
	return t, rows.Err()
}

// WriteAll replaces every row in one transaction.
func (s *Sqlite) WriteAll(t record.Table) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM programs"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM table_columns"); err != nil {
		return err
	}

	for i, name := range t.Columns {
		if _, err := tx.Exec("INSERT INTO table_columns (position, name) VALUES (?, ?)", i, name); err != nil {
			return err
		}
	}

	cols := programColumns()
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO programs (position, %s) VALUES (?%s)",
		strings.Join(cols, ", "), strings.Repeat(", ?", len(cols))))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range t.Records {
		rec := &t.Records[i]
		extra := []byte("{}")
		if len(rec.Extra) > 0 {
			if extra, err = json.Marshal(rec.Extra); err != nil {
				return err
			}
		}
		args := []any{i, rec.University, rec.Course}
		for _, m := range record.Metrics {
			st := rec.Stat(m)
			args = append(args, st.Average, st.Count)
		}
		args = append(args, string(extra))
		if _, err := stmt.Exec(args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}
