package pipeline

import (
	"log"
	"time"

	"github.com/google/uuid"

	"cityetl/etlerrors"
	"cityetl/records"
)

// Document один исходный документ пакетного прогона
type Document struct {
	Path       string
	Provenance records.Provenance
}

// ExtractFunc извлекает канонические записи одного документа
type ExtractFunc func(doc Document) ([]records.Fact, error)

// Runner пакетный прогон извлечения с изоляцией отказов по документам.
// Все записи прогона несут общий идентификатор и отметку времени загрузки.
type Runner struct {
	RunID      string
	IngestedAt string
}

// NewRunner создает прогон с новым идентификатором
func NewRunner() *Runner {
	return &Runner{
		RunID:      uuid.NewString(),
		IngestedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Run обрабатывает документы по одному: отказ одного документа записывается
// в список отказов, остальные продолжают обрабатываться. Прогон завершается
// ошибкой агрегации, только если ни один документ не дал записей.
func (r *Runner) Run(docs []Document, extract ExtractFunc) ([]records.Fact, []*etlerrors.DocumentError, error) {
	var facts []records.Fact
	var failures []*etlerrors.DocumentError

	for _, doc := range docs {
		extracted, err := extract(doc)
		if err != nil {
			log.Printf("Document %s failed: %v", doc.Provenance.ResourceName, err)
			failures = append(failures, etlerrors.NewDocumentError(
				doc.Provenance.ResourceID, doc.Provenance.ResourceName, err))
			continue
		}
		facts = append(facts, extracted...)
	}

	if len(facts) == 0 {
		return nil, failures, etlerrors.NewAggregationError(
			"no documents produced canonical records (%d failures)", len(failures))
	}
	if len(failures) > 0 {
		log.Printf("Run %s finished with %d facts and %d failed documents", r.RunID, len(facts), len(failures))
	}
	return facts, failures, nil
}
