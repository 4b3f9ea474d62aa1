package classify

import "strings"

// Category категория таксономии с ключевыми словами для сопоставления
type Category struct {
	Name     string
	Keywords []string
}

// Classifier детерминированный классификатор свободного текста по ключевым
// словам. Порядок категорий фиксирует разрешение ничьих: при равном счёте
// побеждает категория, объявленная раньше.
type Classifier struct {
	categories []Category
}

// NewClassifier создает классификатор с заданной таксономией
func NewClassifier(categories []Category) *Classifier {
	return &Classifier{categories: categories}
}

// Classify возвращает категорию с наибольшим числом вхождений ключевых слов
// (регистронезависимый поиск подстрок). Возвращает "other", если ни одно
// слово не найдено или текст пуст.
func (c *Classifier) Classify(text string) string {
	if strings.TrimSpace(text) == "" {
		return "other"
	}

	lowered := strings.ToLower(text)

	best := ""
	bestScore := 0
	for _, category := range c.categories {
		score := 0
		for _, keyword := range category.Keywords {
			if strings.Contains(lowered, keyword) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = category.Name
		}
	}

	if best == "" {
		return "other"
	}
	return best
}

// MotionCategories таксономия тем решений городского совета
func MotionCategories() []Category {
	return []Category{
		{Name: "transportation", Keywords: []string{"transit", "ttc", "road", "bike", "lane", "traffic", "subway", "bus", "streetcar"}},
		{Name: "housing_development", Keywords: []string{"zoning", "development", "building", "housing", "permit", "construction", "real estate"}},
		{Name: "environment", Keywords: []string{"climate", "park", "green", "tree", "environment", "sustainability", "waste", "recycling"}},
		{Name: "budget_finance", Keywords: []string{"tax", "budget", "funding", "levy", "finance", "revenue", "expenditure", "fiscal"}},
		{Name: "public_safety", Keywords: []string{"police", "fire", "emergency", "safety", "security"}},
		{Name: "social_services", Keywords: []string{"community", "support", "service", "social", "childcare", "seniors"}},
		{Name: "governance", Keywords: []string{"council", "procedure", "ethics", "transparency", "committee", "governance"}},
	}
}

// LobbyingCategories таксономия предметов лоббистской деятельности.
// Отличается от таксономии решений составом ключевых слов и порядком:
// для лоббирования застройка идёт первой.
func LobbyingCategories() []Category {
	return []Category{
		{Name: "housing_development", Keywords: []string{"zoning", "development", "building", "housing", "permit", "construction", "real estate", "property"}},
		{Name: "transportation", Keywords: []string{"transit", "ttc", "road", "bike", "lane", "traffic", "subway", "bus", "transportation"}},
		{Name: "environment", Keywords: []string{"climate", "park", "green", "tree", "environment", "sustainability", "waste", "recycling", "energy"}},
		{Name: "budget_finance", Keywords: []string{"tax", "budget", "funding", "levy", "finance", "revenue", "grant", "procurement"}},
		{Name: "public_safety", Keywords: []string{"police", "fire", "emergency", "safety", "security"}},
		{Name: "social_services", Keywords: []string{"community", "support", "service", "social", "childcare", "seniors", "health"}},
		{Name: "governance", Keywords: []string{"council", "procedure", "ethics", "transparency", "committee", "governance", "regulation"}},
	}
}

// Человекочитаемые подписи категорий для сводок
var categoryLabels = map[string]string{
	"transportation":      "Transit & Transportation",
	"housing_development": "Housing & Development",
	"environment":         "Environment & Climate",
	"budget_finance":      "Budget & Taxes",
	"public_safety":       "Police & Safety",
	"social_services":     "Community Services",
	"governance":          "Council Operations",
	"other":               "Other",
}

// CategoryLabel возвращает подпись категории; неизвестные категории
// возвращаются как есть
func CategoryLabel(category string) string {
	if label, ok := categoryLabels[category]; ok {
		return label
	}
	return category
}
