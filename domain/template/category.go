package template

import "strings"

// Categories is the fixed enumeration offered to submitters and the AI validator
var Categories = []string{
	"Marketing",
	"Customer Service",
	"Data Analysis",
	"Content Management",
	"Productivity",
	"E-commerce",
	"Development",
	"Other",
}

// CategoryOther is the catch-all category
const CategoryOther = "Other"

// NormalizeCategory maps a category name onto allowed, case-insensitively.
// A nil allowed list means the built-in enumeration.
func NormalizeCategory(name string, allowed []string) string {
	if allowed == nil {
		allowed = Categories
	}
	name = strings.TrimSpace(name)
	for _, c := range allowed {
		if strings.EqualFold(c, name) {
			return c
		}
	}
	return CategoryOther
}

