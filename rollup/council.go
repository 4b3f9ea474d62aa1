package rollup

import (
	"fmt"
	"sort"
	"time"

	"cityetl/classify"
	"cityetl/records"
)

// Лимиты сводки решений совета
const (
	recentDecisionLimit  = 20
	councillorLimit      = 25
	lobbyingSubjectLimit = 5
)

// RecentDecision недавнее решение совета в клиентском формате
type RecentDecision struct {
	MeetingDate       string `json:"meeting_date"`
	MotionID          string `json:"motion_id"`
	MotionTitle       string `json:"motion_title,omitempty"`
	MotionCategory    string `json:"motion_category,omitempty"`
	VoteOutcome       string `json:"vote_outcome"`
	YesVotes          int    `json:"yes_votes"`
	NoVotes           int    `json:"no_votes"`
	AbsentVotes       int    `json:"absent_votes"`
	VoteMarginPercent string `json:"vote_margin_percent"`
}

// DecisionCategory распределение решений по категории с долей принятых
type DecisionCategory struct {
	Category     string  `json:"category"`
	Label        string  `json:"label"`
	TotalMotions int     `json:"total_motions"`
	Passed       int     `json:"passed"`
	Failed       int     `json:"failed"`
	PassRate     float64 `json:"pass_rate"`
}

// CouncillorPattern сводка голосования одного депутата
type CouncillorPattern struct {
	CouncillorName    string  `json:"councillor_name"`
	VotesCast         int     `json:"votes_cast"`
	YesVotes          int     `json:"yes_votes"`
	NoVotes           int     `json:"no_votes"`
	Absent            int     `json:"absent"`
	ParticipationRate float64 `json:"participation_rate"`
}

// LobbyingSummary сводка лоббистской активности
type LobbyingSummary struct {
	ActiveRegistrations  int      `json:"active_registrations"`
	RecentCommunications int      `json:"recent_communications"`
	TopSubjects          []string `json:"top_subjects"`
}

// CouncilMetadata метаданные сводки решений
type CouncilMetadata struct {
	Year          int    `json:"year"`
	RecentDays    int    `json:"recent_days"`
	TotalMotions  int    `json:"total_motions"`
	MotionsPassed int    `json:"motions_passed"`
	MotionsFailed int    `json:"motions_failed"`
	PassRate      string `json:"pass_rate"`
}

// CouncilSummary сводка деятельности совета: недавние решения, категории,
// паттерны голосования депутатов и лоббистская активность
type CouncilSummary struct {
	RecentDecisions  []RecentDecision    `json:"recent_decisions"`
	Categories       []DecisionCategory  `json:"decision_categories"`
	CouncillorVoting []CouncillorPattern `json:"councillor_voting_patterns"`
	Lobbying         LobbyingSummary     `json:"lobbying_summary"`
	Metadata         CouncilMetadata     `json:"metadata"`
	Timestamp        string              `json:"timestamp"`
}

// AggregateDecisionCategories сворачивает решения по категориям с долей
// принятых, сортируя по числу решений по убыванию
func AggregateDecisionCategories(decisions []records.DecisionRecord) []DecisionCategory {
	totals := map[string]int{}
	var categories []DecisionCategory

	for _, decision := range decisions {
		category := decision.MotionCategory
		if category == "" {
			category = "other"
		}
		idx, seen := totals[category]
		if !seen {
			idx = len(categories)
			totals[category] = idx
			categories = append(categories, DecisionCategory{
				Category: category,
				Label:    classify.CategoryLabel(category),
			})
		}
		categories[idx].TotalMotions++
		switch decision.VoteOutcome {
		case records.OutcomePassed:
			categories[idx].Passed++
		case records.OutcomeFailed:
			categories[idx].Failed++
		}
	}

	for i := range categories {
		if categories[i].TotalMotions > 0 {
			categories[i].PassRate = float64(categories[i].Passed) / float64(categories[i].TotalMotions) * 100
		}
	}

	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].TotalMotions > categories[j].TotalMotions
	})
	return categories
}

// AggregateCouncillorVoting сводит участие депутатов по всем решениям,
// сортируя по доле участия по убыванию
func AggregateCouncillorVoting(decisions []records.DecisionRecord) []CouncillorPattern {
	totals := map[string]int{}
	var patterns []CouncillorPattern

	for _, decision := range decisions {
		for _, vote := range decision.Votes {
			if vote.CouncillorName == "" {
				continue
			}
			idx, seen := totals[vote.CouncillorName]
			if !seen {
				idx = len(patterns)
				totals[vote.CouncillorName] = idx
				patterns = append(patterns, CouncillorPattern{CouncillorName: vote.CouncillorName})
			}
			patterns[idx].VotesCast++
			switch vote.FinalVote {
			case records.VoteYes:
				patterns[idx].YesVotes++
			case records.VoteNo:
				patterns[idx].NoVotes++
			default:
				patterns[idx].Absent++
			}
		}
	}

	if total := len(decisions); total > 0 {
		for i := range patterns {
			patterns[i].ParticipationRate = float64(patterns[i].VotesCast) / float64(total) * 100
		}
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].ParticipationRate > patterns[j].ParticipationRate
	})
	return patterns
}

// AggregateLobbying строит сводку лоббистской активности: счётчики и
// верхние категории предметов по числу записей
func AggregateLobbying(activities []records.LobbyistActivity) LobbyingSummary {
	subjectTotals := map[string]int{}
	var subjectOrder []string
	communications := 0

	for _, activity := range activities {
		if activity.CommunicationDate != "" {
			communications++
		}
		category := activity.SubjectCategory
		if category == "" {
			category = "other"
		}
		if _, seen := subjectTotals[category]; !seen {
			subjectOrder = append(subjectOrder, category)
		}
		subjectTotals[category]++
	}

	sort.SliceStable(subjectOrder, func(i, j int) bool {
		return subjectTotals[subjectOrder[i]] > subjectTotals[subjectOrder[j]]
	})
	if len(subjectOrder) > lobbyingSubjectLimit {
		subjectOrder = subjectOrder[:lobbyingSubjectLimit]
	}

	return LobbyingSummary{
		ActiveRegistrations:  len(activities),
		RecentCommunications: communications,
		TopSubjects:          subjectOrder,
	}
}

// BuildCouncilSummary строит сводку решений совета за последние recentDays
// дней. Решения без даты заседания не учитываются.
func BuildCouncilSummary(decisions []records.DecisionRecord, lobbying []records.LobbyistActivity, recentDays int, now time.Time) CouncilSummary {
	cutoff := now.AddDate(0, 0, -recentDays).Format("2006-01-02")

	var recent []records.DecisionRecord
	for _, decision := range decisions {
		if decision.MeetingDate == "" || decision.MeetingDate < cutoff {
			continue
		}
		recent = append(recent, decision)
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].MeetingDate > recent[j].MeetingDate
	})

	recentDecisions := make([]RecentDecision, 0, recentDecisionLimit)
	for _, decision := range recent {
		if len(recentDecisions) == recentDecisionLimit {
			break
		}
		margin := 0.0
		if total := decision.YesVotes + decision.NoVotes; total > 0 {
			margin = float64(decision.YesVotes) / float64(total) * 100
		}
		title := decision.MotionTitle
		if title == "" {
			title = decision.AgendaItemTitle
		}
		recentDecisions = append(recentDecisions, RecentDecision{
			MeetingDate:       decision.MeetingDate,
			MotionID:          decision.MotionID,
			MotionTitle:       title,
			MotionCategory:    decision.MotionCategory,
			VoteOutcome:       decision.VoteOutcome,
			YesVotes:          decision.YesVotes,
			NoVotes:           decision.NoVotes,
			AbsentVotes:       decision.AbsentVotes,
			VoteMarginPercent: fmt.Sprintf("%.1f", margin),
		})
	}

	patterns := AggregateCouncillorVoting(recent)
	if len(patterns) > councillorLimit {
		patterns = patterns[:councillorLimit]
	}

	passed, failed := 0, 0
	latestYear := 0
	for _, decision := range recent {
		switch decision.VoteOutcome {
		case records.OutcomePassed:
			passed++
		case records.OutcomeFailed:
			failed++
		}
		if len(decision.MeetingDate) >= 4 {
			var year int
			if _, err := fmt.Sscanf(decision.MeetingDate[:4], "%d", &year); err == nil && year > latestYear {
				latestYear = year
			}
		}
	}
	if latestYear == 0 {
		latestYear = now.UTC().Year()
	}

	passRate := 0.0
	if len(recent) > 0 {
		passRate = float64(passed) / float64(len(recent)) * 100
	}

	return CouncilSummary{
		RecentDecisions:  recentDecisions,
		Categories:       AggregateDecisionCategories(recent),
		CouncillorVoting: patterns,
		Lobbying:         AggregateLobbying(lobbying),
		Metadata: CouncilMetadata{
			Year:          latestYear,
			RecentDays:    recentDays,
			TotalMotions:  len(recent),
			MotionsPassed: passed,
			MotionsFailed: failed,
			PassRate:      fmt.Sprintf("%.1f", passRate),
		},
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}
