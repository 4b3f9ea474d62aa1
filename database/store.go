package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"cityetl/records"
)

// Имена наборов канонических записей в хранилище
const (
	DatasetCapital   = "capital"
	DatasetFinancial = "financial"
	DatasetOperating = "operating"
)

// DBConfig конфигурация подключения к БД
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store хранилище канонических записей, решений совета и лоббистской
// активности поверх SQLite
type Store struct {
	conn *sql.DB
}

// NewStore открывает (или создает) базу и применяет миграции
func NewStore(path string, config DBConfig) (*Store, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if config.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", path, err)
	}

	store := &Store{conn: conn}
	if err := store.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return store, nil
}

// Close закрывает подключение
func (s *Store) Close() error {
	return s.conn.Close()
}

// InsertFacts вставляет канонические записи одним пакетом в транзакции.
// Измерения сериализуются в JSON: их состав различается между наборами.
func (s *Store) InsertFacts(dataset string, facts []records.Fact) error {
	if len(facts) == 0 {
		return nil
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO facts (dataset, fiscal_year, label, amount, year_offset,
			dimensions, source_file, source_resource_id, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, fact := range facts {
		dims, err := json.Marshal(dimensionMap(fact.Dimensions))
		if err != nil {
			return fmt.Errorf("failed to encode dimensions: %w", err)
		}
		if _, err := stmt.Exec(dataset, fact.FiscalYear, fact.Label, fact.Amount,
			fact.YearOffset, string(dims), fact.Provenance.SourceFile,
			fact.Provenance.ResourceID, fact.IngestedAt); err != nil {
			return fmt.Errorf("failed to insert fact: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit facts: %w", err)
	}
	log.Printf("Inserted %d facts into dataset %s", len(facts), dataset)
	return nil
}

func dimensionMap(dims []records.Dimension) map[string]string {
	m := make(map[string]string, len(dims))
	for _, d := range dims {
		m[d.Key] = d.Value
	}
	return m
}

// FactsByYear возвращает записи набора за фискальный год
func (s *Store) FactsByYear(dataset string, year int) ([]records.Fact, error) {
	rows, err := s.conn.Query(`
		SELECT fiscal_year, label, amount, year_offset, dimensions,
			source_file, source_resource_id, ingested_at
		FROM facts
		WHERE dataset = ? AND fiscal_year = ?
		ORDER BY id
	`, dataset, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query facts: %w", err)
	}
	defer rows.Close()

	return scanFacts(rows)
}

// AllFacts возвращает все записи набора в порядке вставки
func (s *Store) AllFacts(dataset string) ([]records.Fact, error) {
	rows, err := s.conn.Query(`
		SELECT fiscal_year, label, amount, year_offset, dimensions,
			source_file, source_resource_id, ingested_at
		FROM facts
		WHERE dataset = ?
		ORDER BY id
	`, dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to query facts: %w", err)
	}
	defer rows.Close()

	return scanFacts(rows)
}

func scanFacts(rows *sql.Rows) ([]records.Fact, error) {
	var facts []records.Fact
	for rows.Next() {
		var fact records.Fact
		var dims string
		if err := rows.Scan(&fact.FiscalYear, &fact.Label, &fact.Amount,
			&fact.YearOffset, &dims, &fact.Provenance.SourceFile,
			&fact.Provenance.ResourceID, &fact.IngestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fact: %w", err)
		}

		var dimMap map[string]string
		if err := json.Unmarshal([]byte(dims), &dimMap); err != nil {
			return nil, fmt.Errorf("failed to decode dimensions: %w", err)
		}
		fact.Dimensions = dimensionsFromMap(dimMap)

		facts = append(facts, fact)
	}
	return facts, rows.Err()
}

// Канонический порядок ключей измерений при восстановлении из JSON
var dimensionKeyOrder = []string{
	"ward_number", "ward_name", "program_name", "project_name",
	"sub_project_name", "category", "flow_type", "line_description",
	"program", "service", "activity", "expense_revenue",
	"category_name", "sub_category_name", "commitment_item",
}

func dimensionsFromMap(m map[string]string) []records.Dimension {
	dims := make([]records.Dimension, 0, len(m))
	seen := make(map[string]struct{}, len(m))
	for _, key := range dimensionKeyOrder {
		if value, ok := m[key]; ok {
			dims = append(dims, records.Dimension{Key: key, Value: value})
			seen[key] = struct{}{}
		}
	}
	for key, value := range m {
		if _, ok := seen[key]; !ok {
			dims = append(dims, records.Dimension{Key: key, Value: value})
		}
	}
	return dims
}

// AvailableYears возвращает отсортированные годы, представленные в наборе
func (s *Store) AvailableYears(dataset string) ([]int, error) {
	rows, err := s.conn.Query(`
		SELECT DISTINCT fiscal_year FROM facts
		WHERE dataset = ?
		ORDER BY fiscal_year
	`, dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to query years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var year int
		if err := rows.Scan(&year); err != nil {
			return nil, fmt.Errorf("failed to scan year: %w", err)
		}
		years = append(years, year)
	}
	return years, rows.Err()
}

// ReplaceDecisions атомарно заменяет решения совета новым набором.
// Голоса депутатов хранятся внутри решения в JSON: они читаются всегда
// целиком вместе с решением.
func (s *Store) ReplaceDecisions(decisions []records.DecisionRecord) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM decisions`); err != nil {
		return fmt.Errorf("failed to clear decisions: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO decisions (motion_id, meeting_date, motion_category,
			vote_outcome, yes_votes, no_votes, absent_votes, vote_margin,
			payload, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, decision := range decisions {
		payload, err := json.Marshal(decision)
		if err != nil {
			return fmt.Errorf("failed to encode decision %s: %w", decision.MotionID, err)
		}
		if _, err := stmt.Exec(decision.MotionID, decision.MeetingDate,
			decision.MotionCategory, decision.VoteOutcome, decision.YesVotes,
			decision.NoVotes, decision.AbsentVotes, decision.VoteMargin,
			string(payload), decision.IngestedAt); err != nil {
			return fmt.Errorf("failed to insert decision %s: %w", decision.MotionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit decisions: %w", err)
	}
	log.Printf("Stored %d council decisions", len(decisions))
	return nil
}

// DecisionsSince возвращает решения с датой заседания не раньше заданной,
// новые первыми
func (s *Store) DecisionsSince(date string) ([]records.DecisionRecord, error) {
	rows, err := s.conn.Query(`
		SELECT payload FROM decisions
		WHERE meeting_date >= ?
		ORDER BY meeting_date DESC, id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []records.DecisionRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		var decision records.DecisionRecord
		if err := json.Unmarshal([]byte(payload), &decision); err != nil {
			return nil, fmt.Errorf("failed to decode decision: %w", err)
		}
		decisions = append(decisions, decision)
	}
	return decisions, rows.Err()
}

// ReplaceLobbyistActivities атомарно заменяет записи лоббистской активности
func (s *Store) ReplaceLobbyistActivities(activities []records.LobbyistActivity) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM lobbyist_activities`); err != nil {
		return fmt.Errorf("failed to clear lobbyist activities: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO lobbyist_activities (lobbyist_name, lobbyist_type,
			client_name, subject_matter, subject_category, registration_date,
			communication_date, public_office_holder, source_resource_id, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, activity := range activities {
		if _, err := stmt.Exec(activity.LobbyistName, activity.LobbyistType,
			activity.ClientName, activity.SubjectMatter, activity.SubjectCategory,
			activity.RegistrationDate, activity.CommunicationDate,
			activity.PublicOfficeHolder, activity.SourceResourceID,
			activity.IngestedAt); err != nil {
			return fmt.Errorf("failed to insert lobbyist activity: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit lobbyist activities: %w", err)
	}
	log.Printf("Stored %d lobbyist activities", len(activities))
	return nil
}

// LobbyistActivities возвращает все записи активности, новые первыми
func (s *Store) LobbyistActivities() ([]records.LobbyistActivity, error) {
	rows, err := s.conn.Query(`
		SELECT lobbyist_name, lobbyist_type, client_name, subject_matter,
			subject_category, registration_date, communication_date,
			public_office_holder, source_resource_id, ingested_at
		FROM lobbyist_activities
		ORDER BY CASE WHEN communication_date != '' THEN communication_date
			ELSE registration_date END DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lobbyist activities: %w", err)
	}
	defer rows.Close()

	var activities []records.LobbyistActivity
	for rows.Next() {
		var activity records.LobbyistActivity
		if err := rows.Scan(&activity.LobbyistName, &activity.LobbyistType,
			&activity.ClientName, &activity.SubjectMatter, &activity.SubjectCategory,
			&activity.RegistrationDate, &activity.CommunicationDate,
			&activity.PublicOfficeHolder, &activity.SourceResourceID,
			&activity.IngestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lobbyist activity: %w", err)
		}
		activities = append(activities, activity)
	}
	return activities, rows.Err()
}
