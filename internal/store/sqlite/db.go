package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate runs database migrations as a simple, idempotent set of
// CREATE TABLE / CREATE INDEX statements.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			avatar TEXT DEFAULT NULL,
			push_token TEXT DEFAULT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_seen DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		// One link per unordered pair: a unique index over the normalized
		// (low, high) pair, regardless of which side initiated.
		`CREATE TABLE IF NOT EXISTS friend_requests (
			id INTEGER PRIMARY KEY,
			sender_id INTEGER NOT NULL,
			receiver_id INTEGER NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			pair_lo INTEGER GENERATED ALWAYS AS (MIN(sender_id, receiver_id)) STORED,
			pair_hi INTEGER GENERATED ALWAYS AS (MAX(sender_id, receiver_id)) STORED,
			FOREIGN KEY (sender_id) REFERENCES users(id),
			FOREIGN KEY (receiver_id) REFERENCES users(id)
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_friend_requests_pair ON friend_requests(pair_lo, pair_hi);`,
		`CREATE TABLE IF NOT EXISTS blocks (
			id INTEGER PRIMARY KEY,
			blocker_id INTEGER NOT NULL,
			blocked_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (blocker_id, blocked_id),
			FOREIGN KEY (blocker_id) REFERENCES users(id),
			FOREIGN KEY (blocked_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS groups (
			id INTEGER PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			description TEXT DEFAULT NULL,
			admin_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (admin_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS group_members (
			id INTEGER PRIMARY KEY,
			group_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			is_admin BOOLEAN NOT NULL DEFAULT 0,
			joined_at DATETIME DEFAULT NULL,
			UNIQUE (group_id, user_id),
			FOREIGN KEY (group_id) REFERENCES groups(id),
			FOREIGN KEY (user_id) REFERENCES users(id)
		);`,
		// Exactly one of receiver_id and group_id is set.
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			sender_id INTEGER NOT NULL,
			receiver_id INTEGER DEFAULT NULL,
			group_id INTEGER DEFAULT NULL,
			content TEXT NOT NULL,
			is_delivered BOOLEAN NOT NULL DEFAULT 0,
			is_read BOOLEAN NOT NULL DEFAULT 0,
			is_edited BOOLEAN NOT NULL DEFAULT 0,
			is_deleted BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			CHECK ((receiver_id IS NULL) != (group_id IS NULL)),
			FOREIGN KEY (sender_id) REFERENCES users(id),
			FOREIGN KEY (receiver_id) REFERENCES users(id),
			FOREIGN KEY (group_id) REFERENCES groups(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);`,
		`CREATE INDEX IF NOT EXISTS idx_friend_requests_receiver ON friend_requests(receiver_id, status);`,
		`CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id, status);`,
		`CREATE INDEX IF NOT EXISTS idx_group_members_group ON group_members(group_id, status);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_direct ON messages(sender_id, receiver_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_group ON messages(group_id, created_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
