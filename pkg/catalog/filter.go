package catalog

import "strings"

// Category groups listings by the kind of work their role describes.
type Category string

const (
	CategoryAll          Category = "All"
	CategoryFinance      Category = "Finance"
	CategoryDevelopment  Category = "Development"
	CategoryCreative     Category = "Creative"
	CategoryProductivity Category = "Productivity"
)

// Category membership is keyword-based over the role label.
var categoryKeywords = map[Category][]string{
	CategoryFinance:      {"financial", "defi", "yield"},
	CategoryDevelopment:  {"contract", "auditor", "code"},
	CategoryCreative:     {"creative", "copywriter", "art"},
	CategoryProductivity: {"assistant", "general", "planner"},
}

// Categories returns the selectable categories in display order.
func Categories() []Category {
	return []Category{CategoryAll, CategoryFinance, CategoryDevelopment, CategoryCreative, CategoryProductivity}
}

// ParseCategory maps a raw value onto a known category, defaulting to All.
func ParseCategory(raw string) Category {
	trimmed := strings.TrimSpace(raw)
	for _, category := range Categories() {
		if strings.EqualFold(trimmed, string(category)) {
			return category
		}
	}
	return CategoryAll
}

// Filter returns the subsequence of listings matching the free-text query and
// the category. Matching is case-insensitive substring over name, role, and
// description; CategoryAll bypasses the category predicate. Input order is
// preserved and the input slice is never modified.
func Filter(input []Listing, query string, category Category) []Listing {
	normalizedQuery := strings.ToLower(strings.TrimSpace(query))
	result := make([]Listing, 0, len(input))
	for _, listing := range input {
		if !matchesQuery(listing, normalizedQuery) {
			continue
		}
		if !matchesCategory(listing, category) {
			continue
		}
		result = append(result, listing)
	}
	return result
}

func matchesQuery(listing Listing, normalizedQuery string) bool {
	if normalizedQuery == "" {
		return true
	}
	return strings.Contains(strings.ToLower(listing.Name), normalizedQuery) ||
		strings.Contains(strings.ToLower(listing.Role), normalizedQuery) ||
		strings.Contains(strings.ToLower(listing.Description), normalizedQuery)
}

func matchesCategory(listing Listing, category Category) bool {
	if category == CategoryAll {
		return true
	}
	keywords, known := categoryKeywords[category]
	if !known {
		return false
	}
	role := strings.ToLower(listing.Role)
	for _, keyword := range keywords {
		if strings.Contains(role, keyword) {
			return true
		}
	}
	return false
}
