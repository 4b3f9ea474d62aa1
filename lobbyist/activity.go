package lobbyist

import (
	"sort"
	"strings"
	"time"

	"cityetl/classify"
	"cityetl/normalize"
	"cityetl/records"
)

// BuildOptions параметры нормализации записей активности
type BuildOptions struct {
	SourceResourceID string
	IngestedAt       string
}

// BuildActivities нормализует сырые записи активности: пропускает записи без
// имени лоббиста, приводит даты к ISO, классифицирует предмет лоббирования.
// Результат отсортирован по дате коммуникации (или регистрации) по убыванию.
func BuildActivities(raws []RawActivity, opts BuildOptions) []records.LobbyistActivity {
	classifier := classify.NewClassifier(classify.LobbyingCategories())

	activities := make([]records.LobbyistActivity, 0, len(raws))
	for _, raw := range raws {
		name, ok := normalize.CleanText(raw.LobbyistName)
		if !ok {
			continue
		}

		activity := records.LobbyistActivity{
			LobbyistName:     name,
			SubjectCategory:  classifier.Classify(raw.SubjectMatter),
			SourceResourceID: opts.SourceResourceID,
			IngestedAt:       opts.IngestedAt,
		}
		if value, ok := normalize.CleanText(raw.LobbyistType); ok {
			activity.LobbyistType = value
		}
		if value, ok := normalize.CleanText(raw.ClientName); ok {
			activity.ClientName = value
		}
		if value, ok := normalize.CleanText(raw.SubjectMatter); ok {
			activity.SubjectMatter = value
		}
		if value, ok := normalize.CleanText(raw.PublicOfficeHolder); ok {
			activity.PublicOfficeHolder = value
		}
		if iso, ok := normalize.ParseDate(raw.RegistrationDate); ok {
			activity.RegistrationDate = iso
		}
		if iso, ok := normalize.ParseDate(raw.CommunicationDate); ok {
			activity.CommunicationDate = iso
		}

		activities = append(activities, activity)
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activitySortKey(activities[i]) > activitySortKey(activities[j])
	})
	return activities
}

// activitySortKey дата для сортировки: коммуникация, иначе регистрация
func activitySortKey(a records.LobbyistActivity) string {
	if a.CommunicationDate != "" {
		return a.CommunicationDate
	}
	return a.RegistrationDate
}

// FilterRecentMonths оставляет активность не старше заданного числа месяцев
// (месяц считается как 30 дней). Запись датируется коммуникацией, при её
// отсутствии — регистрацией; недатированные записи отбрасываются.
func FilterRecentMonths(activities []records.LobbyistActivity, months int, now time.Time) []records.LobbyistActivity {
	if months <= 0 {
		return activities
	}
	cutoff := now.AddDate(0, 0, -months*30).Format("2006-01-02")

	filtered := make([]records.LobbyistActivity, 0, len(activities))
	for _, activity := range activities {
		date := activitySortKey(activity)
		if date == "" || date < cutoff {
			continue
		}
		filtered = append(filtered, activity)
	}
	return filtered
}

// CategoryCounts распределение активности по категориям предметов
func CategoryCounts(activities []records.LobbyistActivity) map[string]int {
	counts := map[string]int{}
	for _, activity := range activities {
		counts[activity.SubjectCategory]++
	}
	return counts
}

// TypeCounts распределение активности по типам лоббистов; пустой тип
// считается как unknown
func TypeCounts(activities []records.LobbyistActivity) map[string]int {
	counts := map[string]int{}
	for _, activity := range activities {
		key := activity.LobbyistType
		if strings.TrimSpace(key) == "" {
			key = "unknown"
		}
		counts[key]++
	}
	return counts
}
