package database

import (
	"fmt"
	"log"
)

// Схема хранилища. Миграции идемпотентны: таблицы создаются при отсутствии.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS facts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dataset TEXT NOT NULL,
		fiscal_year INTEGER NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		amount REAL NOT NULL,
		year_offset INTEGER NOT NULL DEFAULT 0,
		dimensions TEXT NOT NULL,
		source_file TEXT NOT NULL DEFAULT '',
		source_resource_id TEXT NOT NULL DEFAULT '',
		ingested_at TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_facts_dataset_year ON facts (dataset, fiscal_year)`,
	`CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		motion_id TEXT NOT NULL,
		meeting_date TEXT NOT NULL DEFAULT '',
		motion_category TEXT NOT NULL DEFAULT '',
		vote_outcome TEXT NOT NULL,
		yes_votes INTEGER NOT NULL DEFAULT 0,
		no_votes INTEGER NOT NULL DEFAULT 0,
		absent_votes INTEGER NOT NULL DEFAULT 0,
		vote_margin INTEGER NOT NULL DEFAULT 0,
		payload TEXT NOT NULL,
		ingested_at TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_decisions_meeting_date ON decisions (meeting_date)`,
	`CREATE TABLE IF NOT EXISTS lobbyist_activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		lobbyist_name TEXT NOT NULL,
		lobbyist_type TEXT NOT NULL DEFAULT '',
		client_name TEXT NOT NULL DEFAULT '',
		subject_matter TEXT NOT NULL DEFAULT '',
		subject_category TEXT NOT NULL DEFAULT 'other',
		registration_date TEXT NOT NULL DEFAULT '',
		communication_date TEXT NOT NULL DEFAULT '',
		public_office_holder TEXT NOT NULL DEFAULT '',
		source_resource_id TEXT NOT NULL DEFAULT '',
		ingested_at TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_lobbyist_comm_date ON lobbyist_activities (communication_date)`,
}

// migrate применяет миграции схемы по порядку
func (s *Store) migrate() error {
	for i, migration := range migrations {
		if _, err := s.conn.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	log.Println("Database schema is up to date")
	return nil
}
