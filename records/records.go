package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Dimension именованная категориальная ось факта (район, программа,
// категория, тип потока). Порядок измерений в записи значим и сохраняется
// при сериализации.
type Dimension struct {
	Key   string
	Value string
}

// Provenance происхождение записи: файл и ресурс каталога открытых данных
type Provenance struct {
	SourceFile   string `json:"source_file,omitempty"`
	SourceURL    string `json:"source_url,omitempty"`
	ResourceID   string `json:"source_resource_id,omitempty"`
	ResourceName string `json:"source_resource_name,omitempty"`
	PackageID    string `json:"source_package_id,omitempty"`
}

// Fact каноническая запись факта: одна тройка (год, измерения, сумма),
// независимая от раскладки исходного документа. Инварианты: Amount != 0,
// FiscalYear в [1900, 2100], хотя бы одно измерение. Запись неизменяема
// после создания; агрегация порождает новые записи.
type Fact struct {
	FiscalYear int
	Dimensions []Dimension
	Amount     float64
	Label      string
	YearOffset int // смещение от первого года документа, 0 если не применимо
	Provenance Provenance
	IngestedAt string
}

// Dimension возвращает значение измерения по ключу
func (f *Fact) Dimension(key string) (string, bool) {
	for _, d := range f.Dimensions {
		if d.Key == key {
			return d.Value, true
		}
	}
	return "", false
}

// DimensionOr возвращает значение измерения или значение по умолчанию
func (f *Fact) DimensionOr(key, fallback string) string {
	if value, ok := f.Dimension(key); ok {
		return value
	}
	return fallback
}

// IntDimension возвращает целочисленное значение измерения
func (f *Fact) IntDimension(key string) (int, bool) {
	value, ok := f.Dimension(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MarshalJSON сериализует факт в плоскую запись: fiscal_year, затем
// измерения в объявленном порядке, затем сумма и происхождение.
// Имена полей — стабильные контрактные строки.
func (f Fact) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeField := func(key string, value interface{}) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return err
		}
		valueJSON, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.Write(valueJSON)
		return nil
	}

	if err := writeField("fiscal_year", f.FiscalYear); err != nil {
		return nil, err
	}
	for _, d := range f.Dimensions {
		// числовые измерения сериализуются числами
		if n, err := strconv.Atoi(d.Value); err == nil && d.Key == "ward_number" {
			if err := writeField(d.Key, n); err != nil {
				return nil, err
			}
			continue
		}
		if err := writeField(d.Key, d.Value); err != nil {
			return nil, err
		}
	}
	if err := writeField("amount", f.Amount); err != nil {
		return nil, err
	}
	if f.Label != "" {
		if err := writeField("label", f.Label); err != nil {
			return nil, err
		}
	}
	if f.YearOffset != 0 {
		if err := writeField("year_offset", f.YearOffset); err != nil {
			return nil, err
		}
	}
	if f.Provenance.SourceFile != "" {
		if err := writeField("source_file", f.Provenance.SourceFile); err != nil {
			return nil, err
		}
	}
	if f.Provenance.SourceURL != "" {
		if err := writeField("source_url", f.Provenance.SourceURL); err != nil {
			return nil, err
		}
	}
	if f.Provenance.ResourceID != "" {
		if err := writeField("source_resource_id", f.Provenance.ResourceID); err != nil {
			return nil, err
		}
	}
	if f.IngestedAt != "" {
		if err := writeField("ingested_at", f.IngestedAt); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Validate проверяет инварианты канонической записи
func (f *Fact) Validate() error {
	if f.Amount == 0 {
		return fmt.Errorf("fact amount must be non-zero")
	}
	if f.FiscalYear < 1900 || f.FiscalYear > 2100 {
		return fmt.Errorf("fiscal year %d out of range [1900, 2100]", f.FiscalYear)
	}
	if len(f.Dimensions) == 0 {
		return fmt.Errorf("fact must carry at least one dimension")
	}
	return nil
}

// FinancialAggregate агрегат финансовых строк по (год, поток, подпись)
// с объединённым происхождением. Порождается из канонических фактов,
// исходные факты не изменяются.
type FinancialAggregate struct {
	FiscalYear          int      `json:"fiscal_year"`
	FlowType            string   `json:"flow_type"`
	Label               string   `json:"label"`
	LineDescription     string   `json:"line_description"`
	Amount              float64  `json:"amount"`
	SourceFiles         []string `json:"source_files"`
	SourceResourceIDs   []string `json:"source_resource_ids"`
	SourceResourceNames []string `json:"source_resource_names"`
	SourcePackageID     string   `json:"source_package_id,omitempty"`
	IngestedAt          string   `json:"ingested_at,omitempty"`
}

// AmendmentVotes счётчики голосов по поправкам одного депутата
type AmendmentVotes struct {
	Yes int `json:"yes"`
	No  int `json:"no"`
}

// CouncillorVote итог участия депутата в решении по одному пункту повестки
type CouncillorVote struct {
	CouncillorName string         `json:"councillor_name"`
	FinalVote      string         `json:"final_vote"`
	TriedToAmend   bool           `json:"tried_to_amend"`
	AmendmentVotes AmendmentVotes `json:"amendment_votes"`
	TriedToDefer   bool           `json:"tried_to_defer"`
	TriedToRefer   bool           `json:"tried_to_refer"`
}

// DecisionRecord решение совета по одному пункту повестки со всеми
// голосами депутатов
type DecisionRecord struct {
	MeetingDate      string           `json:"meeting_date,omitempty"`
	MotionID         string           `json:"motion_id"`
	MotionTitle      string           `json:"motion_title,omitempty"`
	AgendaItemTitle  string           `json:"agenda_item_title,omitempty"`
	VoteDescription  string           `json:"vote_description,omitempty"`
	MotionCategory   string           `json:"motion_category,omitempty"`
	VoteOutcome      string           `json:"vote_outcome"`
	YesVotes         int              `json:"yes_votes"`
	NoVotes          int              `json:"no_votes"`
	AbsentVotes      int              `json:"absent_votes"`
	VoteMargin       int              `json:"vote_margin"`
	Votes            []CouncillorVote `json:"votes"`
	SourceResourceID string           `json:"source_resource_id,omitempty"`
	IngestedAt       string           `json:"ingested_at,omitempty"`
}

// Возможные исходы голосования
const (
	OutcomePassed  = "passed"
	OutcomeFailed  = "failed"
	OutcomeUnknown = "unknown"
)

// Значения голоса после нормализации
const (
	VoteYes    = "Yes"
	VoteNo     = "No"
	VoteAbsent = "Absent"
)

// LobbyistActivity запись активности лоббиста: регистрация или коммуникация
type LobbyistActivity struct {
	RegistrationDate   string `json:"registration_date,omitempty"`
	LobbyistName       string `json:"lobbyist_name"`
	LobbyistType       string `json:"lobbyist_type,omitempty"`
	ClientName         string `json:"client_name,omitempty"`
	SubjectMatter      string `json:"subject_matter,omitempty"`
	SubjectCategory    string `json:"subject_category"`
	CommunicationDate  string `json:"communication_date,omitempty"`
	PublicOfficeHolder string `json:"public_office_holder,omitempty"`
	SourceResourceID   string `json:"source_resource_id,omitempty"`
	IngestedAt         string `json:"ingested_at,omitempty"`
}
