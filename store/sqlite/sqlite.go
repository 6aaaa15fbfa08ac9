// Package sqlite is the SQLite-backed implementation of store.Repository.
package sqlite

import (
	"database/sql"
	"encoding/xml"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/billboardcp/billboard-server/billboard"
	"github.com/billboardcp/billboard-server/store"
	"github.com/billboardcp/billboard-server/users"
)

var _ store.Repository = (*Store)(nil)

// Store wraps one SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dbPath and migrates the
// schema.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "[sqlite.Open] create data directory")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "[sqlite.Open] open database")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, errors.Wrap(err, "[sqlite.Open] enable foreign keys")
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, errors.Wrap(err, "[sqlite.Open] migrate")
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS user (
		username   TEXT PRIMARY KEY,
		password   TEXT NOT NULL,
		permission TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS salt (
		username TEXT PRIMARY KEY,
		salt     TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS billboard (
		name     TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		content  TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS schedule (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		billboard_name TEXT NOT NULL,
		day            TEXT NOT NULL DEFAULT '',
		start_minute   INTEGER NOT NULL DEFAULT 0,
		duration       INTEGER NOT NULL DEFAULT 0,
		repeat         INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_schedule_billboard ON schedule(billboard_name);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) GetSalt(username string) (string, error) {
	var salt string
	err := s.db.QueryRow("SELECT salt FROM salt WHERE username = ?", username).Scan(&salt)
	if err == sql.ErrNoRows {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "[Store.GetSalt]")
	}
	return salt, nil
}

func (s *Store) GetPassword(username string) (string, error) {
	var password string
	err := s.db.QueryRow("SELECT password FROM user WHERE username = ?", username).Scan(&password)
	if err == sql.ErrNoRows {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "[Store.GetPassword]")
	}
	return password, nil
}

func (s *Store) GetPermission(username string) (users.Permission, error) {
	var permission string
	err := s.db.QueryRow("SELECT permission FROM user WHERE username = ?", username).Scan(&permission)
	if err == sql.ErrNoRows {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "[Store.GetPermission]")
	}
	return users.Permission(permission), nil
}

func (s *Store) GetUsers() ([]users.User, error) {
	rows, err := s.db.Query("SELECT username, permission FROM user ORDER BY username")
	if err != nil {
		return nil, errors.Wrap(err, "[Store.GetUsers]")
	}
	defer rows.Close()

	var list []users.User
	for rows.Next() {
		var u users.User
		if err := rows.Scan(&u.Username, &u.Permission); err != nil {
			return nil, errors.Wrap(err, "[Store.GetUsers] scan")
		}
		list = append(list, u)
	}
	return list, errors.Wrap(rows.Err(), "[Store.GetUsers] rows")
}

func (s *Store) AddUser(u users.User) error {
	_, err := s.db.Exec(
		"INSERT INTO user (username, password, permission) VALUES (?, ?, ?)",
		u.Username, u.Password, string(u.Permission),
	)
	if isUniqueViolation(err) {
		return store.ErrUsernameExists
	}
	return errors.Wrap(err, "[Store.AddUser]")
}

func (s *Store) UpdateUser(u users.User) error {
	res, err := s.db.Exec(
		"UPDATE user SET password = ?, permission = ? WHERE username = ?",
		u.Password, string(u.Permission), u.Username,
	)
	if err != nil {
		return errors.Wrap(err, "[Store.UpdateUser]")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteUser removes the user row and its salt row together.
func (s *Store) DeleteUser(username string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "[Store.DeleteUser] begin")
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM user WHERE username = ?", username); err != nil {
		return errors.Wrap(err, "[Store.DeleteUser] user")
	}
	if _, err := tx.Exec("DELETE FROM salt WHERE username = ?", username); err != nil {
		return errors.Wrap(err, "[Store.DeleteUser] salt")
	}
	return errors.Wrap(tx.Commit(), "[Store.DeleteUser] commit")
}

func (s *Store) AddSalt(username, salt string) error {
	_, err := s.db.Exec(
		"INSERT INTO salt (username, salt) VALUES (?, ?) ON CONFLICT(username) DO UPDATE SET salt = excluded.salt",
		username, salt,
	)
	return errors.Wrap(err, "[Store.AddSalt]")
}

func (s *Store) GetBillboards() ([]billboard.Billboard, error) {
	rows, err := s.db.Query("SELECT name, username, content FROM billboard ORDER BY name")
	if err != nil {
		return nil, errors.Wrap(err, "[Store.GetBillboards]")
	}
	defer rows.Close()

	var list []billboard.Billboard
	for rows.Next() {
		var b billboard.Billboard
		if err := rows.Scan(&b.Name, &b.Username, &b.Content); err != nil {
			return nil, errors.Wrap(err, "[Store.GetBillboards] scan")
		}
		list = append(list, b)
	}
	return list, errors.Wrap(rows.Err(), "[Store.GetBillboards] rows")
}

func (s *Store) AddBillboard(b billboard.Billboard) error {
	_, err := s.db.Exec(
		"INSERT INTO billboard (name, username, content) VALUES (?, ?, ?)",
		b.Name, b.Username, b.Content,
	)
	return errors.Wrap(err, "[Store.AddBillboard]")
}

func (s *Store) UpdateBillboard(b billboard.Billboard) error {
	_, err := s.db.Exec(
		"UPDATE billboard SET content = ? WHERE name = ?",
		b.Content, b.Name,
	)
	return errors.Wrap(err, "[Store.UpdateBillboard]")
}

func (s *Store) DeleteBillboard(name string) error {
	_, err := s.db.Exec("DELETE FROM billboard WHERE name = ?", name)
	return errors.Wrap(err, "[Store.DeleteBillboard]")
}

// renderedBillboard is the XML document handed to viewers.
type renderedBillboard struct {
	XMLName xml.Name `xml:"billboard"`
	Name    string   `xml:"name"`
	Message string   `xml:"message"`
}

func (s *Store) GetRenderedContent(name string) ([]byte, error) {
	var b billboard.Billboard
	err := s.db.QueryRow("SELECT name, content FROM billboard WHERE name = ?", name).Scan(&b.Name, &b.Content)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Store.GetRenderedContent]")
	}

	out, err := xml.MarshalIndent(renderedBillboard{Name: b.Name, Message: b.Content}, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "[Store.GetRenderedContent] marshal")
	}
	return append([]byte(xml.Header), out...), nil
}

func (s *Store) IsScheduled(name string) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(1) FROM schedule WHERE billboard_name = ?", name).Scan(&count)
	if err != nil {
		return false, errors.Wrap(err, "[Store.IsScheduled]")
	}
	return count > 0, nil
}

func (s *Store) GetSchedules() ([]billboard.Schedule, error) {
	rows, err := s.db.Query("SELECT billboard_name, day, start_minute, duration, repeat FROM schedule ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "[Store.GetSchedules]")
	}
	defer rows.Close()

	var list []billboard.Schedule
	for rows.Next() {
		var sch billboard.Schedule
		if err := rows.Scan(&sch.BillboardName, &sch.Day, &sch.StartMinute, &sch.Duration, &sch.Repeat); err != nil {
			return nil, errors.Wrap(err, "[Store.GetSchedules] scan")
		}
		list = append(list, sch)
	}
	return list, errors.Wrap(rows.Err(), "[Store.GetSchedules] rows")
}

func (s *Store) AddSchedule(sch billboard.Schedule) error {
	_, err := s.db.Exec(
		"INSERT INTO schedule (billboard_name, day, start_minute, duration, repeat) VALUES (?, ?, ?, ?, ?)",
		sch.BillboardName, sch.Day, sch.StartMinute, sch.Duration, sch.Repeat,
	)
	return errors.Wrap(err, "[Store.AddSchedule]")
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
