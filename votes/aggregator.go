package votes

import (
	"sort"
	"strings"

	"cityetl/classify"
	"cityetl/normalize"
	"cityetl/records"
	"cityetl/schema"
)

// Подтипы движений по пункту повестки
const (
	SubtypeAdoption = "adoption"
	SubtypeAmend    = "amendment"
	SubtypeDefer    = "deferral"
	SubtypeRefer    = "referral"
	SubtypeOther    = "other"
)

// VoteRow одна строка потока голосований после сопоставления колонок
type VoteRow struct {
	MotionID        string
	CouncillorName  string
	Vote            string
	MotionType      string
	MeetingDate     string
	AgendaItemTitle string
	VoteDescription string
}

// RowFromCells строит строку голосования из сырых ячеек по разрешённой
// раскладке. Имя депутата собирается из отдельных колонок имени и фамилии,
// если единая колонка отсутствует.
func RowFromCells(cells []string, cols *schema.VotingColumns) VoteRow {
	cell := func(col int) string {
		if col < 0 {
			return ""
		}
		return strings.TrimSpace(schema.Cell(cells, col))
	}

	name := cell(cols.CouncillorCol)
	if name == "" {
		first := cell(cols.FirstNameCol)
		last := cell(cols.LastNameCol)
		name = strings.TrimSpace(first + " " + last)
	}

	return VoteRow{
		MotionID:        cell(cols.MotionIDCol),
		CouncillorName:  name,
		Vote:            cell(cols.VoteCol),
		MotionType:      cell(cols.MotionTypeCol),
		MeetingDate:     cell(cols.MeetingDateCol),
		AgendaItemTitle: cell(cols.AgendaTitleCol),
		VoteDescription: cell(cols.VoteDescriptionCol),
	}
}

// NormalizeVote приводит сырое значение голоса к одному из трёх значений:
// подстрока "yes" даёт Yes, "no" даёт No, всё остальное считается отсутствием
func NormalizeVote(raw string) string {
	lowered := strings.ToLower(raw)
	switch {
	case strings.Contains(lowered, "yes"):
		return records.VoteYes
	case strings.Contains(lowered, "no"):
		return records.VoteNo
	default:
		return records.VoteAbsent
	}
}

// MotionSubtype классифицирует тип движения по подстроке его текста.
// Порядок проверок значим: "Adopt Item as Amended" — это принятие,
// поэтому принятие распознаётся раньше поправки.
func MotionSubtype(motionType string) string {
	lowered := strings.ToLower(motionType)
	switch {
	case strings.Contains(lowered, "adopt item"):
		return SubtypeAdoption
	case strings.Contains(lowered, "amend"):
		return SubtypeAmend
	case strings.Contains(lowered, "defer"):
		return SubtypeDefer
	case strings.Contains(lowered, "refer"):
		return SubtypeRefer
	default:
		return SubtypeOther
	}
}

// councillorState накопитель участия одного депутата в одном пункте повестки
type councillorState struct {
	name         string
	finalVote    string // пусто, пока не встречена строка принятия
	triedToAmend bool
	amendYes     int
	amendNo      int
	triedToDefer bool
	triedToRefer bool
}

// motionState накопитель одного пункта повестки
type motionState struct {
	motionID         string
	meetingDate      string
	agendaItemTitle  string
	voteDescription  string
	metaFromAdoption bool
	councillors      map[string]*councillorState
	order            []string // порядок первого появления депутатов
}

// Aggregator сводит неупорядоченный поток строк голосований в решения
// совета: по одному на пункт повестки, с вложенным списком голосов депутатов.
// Накопители изменяемы до вызова Finalize; результат неизменяем.
type Aggregator struct {
	classifier *classify.Classifier
	motions    map[string]*motionState
	order      []string
}

// NewAggregator создаёт агрегатор с классификатором категорий движений
func NewAggregator() *Aggregator {
	return &Aggregator{
		classifier: classify.NewClassifier(classify.MotionCategories()),
		motions:    map[string]*motionState{},
	}
}

// Consume применяет одну строку голосования к накопителям. Строки без
// идентификатора пункта или имени депутата игнорируются.
func (a *Aggregator) Consume(row VoteRow) {
	motionID := strings.TrimSpace(row.MotionID)
	name := strings.TrimSpace(row.CouncillorName)
	if motionID == "" || name == "" {
		return
	}

	motion, ok := a.motions[motionID]
	if !ok {
		motion = &motionState{
			motionID:    motionID,
			councillors: map[string]*councillorState{},
		}
		a.motions[motionID] = motion
		a.order = append(a.order, motionID)
	}

	subtype := MotionSubtype(row.MotionType)

	// Метаданные пункта: строки принятия предпочтительнее — их заголовки
	// описывают сам пункт, а не промежуточное движение
	if !motion.metaFromAdoption {
		if row.MeetingDate != "" && (motion.meetingDate == "" || subtype == SubtypeAdoption) {
			if iso, ok := normalize.ParseDate(row.MeetingDate); ok {
				motion.meetingDate = iso
			}
		}
		if row.AgendaItemTitle != "" && (motion.agendaItemTitle == "" || subtype == SubtypeAdoption) {
			motion.agendaItemTitle = strings.TrimSpace(row.AgendaItemTitle)
		}
		if row.VoteDescription != "" && (motion.voteDescription == "" || subtype == SubtypeAdoption) {
			motion.voteDescription = strings.TrimSpace(row.VoteDescription)
		}
		if subtype == SubtypeAdoption {
			motion.metaFromAdoption = true
		}
	}

	state, ok := motion.councillors[name]
	if !ok {
		state = &councillorState{name: name}
		motion.councillors[name] = state
		motion.order = append(motion.order, name)
	}

	vote := NormalizeVote(row.Vote)
	switch subtype {
	case SubtypeAdoption:
		state.finalVote = mergeAdoptionVote(state.finalVote, vote)
	case SubtypeAmend:
		state.triedToAmend = true
		switch vote {
		case records.VoteYes:
			state.amendYes++
		case records.VoteNo:
			state.amendNo++
		}
	case SubtypeDefer:
		if vote == records.VoteYes {
			state.triedToDefer = true
		}
	case SubtypeRefer:
		if vote == records.VoteYes {
			state.triedToRefer = true
		}
	}
}

// mergeAdoptionVote применяет приоритет No > Yes > Absent: первая строка
// принятия задаёт значение, позднее No перекрывает всё, Yes перекрывает
// только Absent, Absent никогда не перекрывает установленное значение
func mergeAdoptionVote(current, next string) string {
	if current == "" {
		return next
	}
	switch next {
	case records.VoteNo:
		return records.VoteNo
	case records.VoteYes:
		if current == records.VoteAbsent {
			return records.VoteYes
		}
	}
	return current
}

// FinalizeOptions параметры выпуска решений
type FinalizeOptions struct {
	SourceResourceID string
	IngestedAt       string
}

// Finalize выпускает решения из накопителей. Депутат попадает в список
// голосов, только если по пункту зафиксирована хотя бы одна строка принятия;
// пункты с пустым списком отбрасываются. Решения отсортированы по дате
// заседания по убыванию, при равенстве — в порядке первого появления.
func (a *Aggregator) Finalize(opts FinalizeOptions) []records.DecisionRecord {
	decisions := make([]records.DecisionRecord, 0, len(a.order))

	for _, motionID := range a.order {
		motion := a.motions[motionID]

		var emitted []records.CouncillorVote
		yes, no, absent := 0, 0, 0
		for _, name := range motion.order {
			state := motion.councillors[name]
			if state.finalVote == "" {
				continue
			}
			switch state.finalVote {
			case records.VoteYes:
				yes++
			case records.VoteNo:
				no++
			default:
				absent++
			}
			emitted = append(emitted, records.CouncillorVote{
				CouncillorName: state.name,
				FinalVote:      state.finalVote,
				TriedToAmend:   state.triedToAmend,
				AmendmentVotes: records.AmendmentVotes{Yes: state.amendYes, No: state.amendNo},
				TriedToDefer:   state.triedToDefer,
				TriedToRefer:   state.triedToRefer,
			})
		}
		if len(emitted) == 0 {
			continue
		}

		outcome := records.OutcomeUnknown
		if yes+no > 0 {
			if yes > no {
				outcome = records.OutcomePassed
			} else {
				outcome = records.OutcomeFailed
			}
		}

		category := a.classifier.Classify(motion.agendaItemTitle + " " + motion.voteDescription)

		// Заголовок решения: название пункта, иначе описание голосования,
		// иначе синтетический по идентификатору
		title := motion.agendaItemTitle
		if title == "" {
			title = motion.voteDescription
		}
		if title == "" {
			title = "Motion " + motion.motionID
		}

		decisions = append(decisions, records.DecisionRecord{
			MeetingDate:      motion.meetingDate,
			MotionID:         motion.motionID,
			MotionTitle:      title,
			AgendaItemTitle:  motion.agendaItemTitle,
			VoteDescription:  motion.voteDescription,
			MotionCategory:   category,
			VoteOutcome:      outcome,
			YesVotes:         yes,
			NoVotes:          no,
			AbsentVotes:      absent,
			VoteMargin:       yes - no,
			Votes:            emitted,
			SourceResourceID: opts.SourceResourceID,
			IngestedAt:       opts.IngestedAt,
		})
	}

	sort.SliceStable(decisions, func(i, j int) bool {
		return decisions[i].MeetingDate > decisions[j].MeetingDate
	})
	return decisions
}
