package etlerrors

import "fmt"

// ResolutionError не удалось подобрать лист или сопоставить колонки.
// Фатальна для документа, но не для всей партии.
type ResolutionError struct {
	Document string
	Reason   string
}

func (e *ResolutionError) Error() string {
	if e.Document == "" {
		return fmt.Sprintf("schema resolution failed: %s", e.Reason)
	}
	return fmt.Sprintf("schema resolution failed for %s: %s", e.Document, e.Reason)
}

// NewResolutionError создает ошибку разрешения схемы
func NewResolutionError(document, format string, args ...interface{}) *ResolutionError {
	return &ResolutionError{Document: document, Reason: fmt.Sprintf(format, args...)}
}

// ValidationError обнаруженная колонка существует, но не содержит пригодных
// значений. Должна возникать до извлечения, с указанием роли и позиции.
type ValidationError struct {
	Role   string
	Column int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("column validation failed for role %q at index %d: %s", e.Role, e.Column, e.Reason)
}

// NewValidationError создает ошибку валидации колонки
func NewValidationError(role string, column int, reason string) *ValidationError {
	return &ValidationError{Role: role, Column: column, Reason: reason}
}

// ExtractionError схема разрешена, но после правил пропуска не осталось ни
// одной подходящей строки. Фатальна для документа.
type ExtractionError struct {
	Document string
	Reason   string
}

func (e *ExtractionError) Error() string {
	if e.Document == "" {
		return fmt.Sprintf("extraction produced no records: %s", e.Reason)
	}
	return fmt.Sprintf("extraction produced no records for %s: %s", e.Document, e.Reason)
}

// NewExtractionError создает ошибку извлечения
func NewExtractionError(document, format string, args ...interface{}) *ExtractionError {
	return &ExtractionError{Document: document, Reason: fmt.Sprintf(format, args...)}
}

// AggregationError вся партия не дала ни одной канонической записи.
// Фатальна для запуска.
type AggregationError struct {
	Reason string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed: %s", e.Reason)
}

// NewAggregationError создает ошибку агрегации партии
func NewAggregationError(format string, args ...interface{}) *AggregationError {
	return &AggregationError{Reason: fmt.Sprintf(format, args...)}
}

// DocumentError зафиксированный сбой обработки одного документа партии
type DocumentError struct {
	ResourceID   string `json:"resource_id"`
	ResourceName string `json:"resource_name"`
	Err          error  `json:"-"`
	Message      string `json:"error"`
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %s (%s): %s", e.ResourceID, e.ResourceName, e.Message)
}

// Unwrap возвращает вложенную ошибку для errors.Is и errors.As
func (e *DocumentError) Unwrap() error {
	return e.Err
}

// NewDocumentError создает запись о сбое документа
func NewDocumentError(resourceID, resourceName string, err error) *DocumentError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &DocumentError{
		ResourceID:   resourceID,
		ResourceName: resourceName,
		Err:          err,
		Message:      msg,
	}
}
