package template

import (
	"sort"
	"strings"
)

// Collection is the ordered list of records held in the templates document
type Collection []Template

// IDs returns every record identifier in order
func (c Collection) IDs() []string {
	ids := make([]string, len(c))
	for i, t := range c {
		ids[i] = t.ID
	}
	return ids
}

// Slugs returns every record slug in order
func (c Collection) Slugs() []string {
	slugs := make([]string, len(c))
	for i, t := range c {
		slugs[i] = t.Slug
	}
	return slugs
}

// FindDuplicate returns the first record that shares the scenario identifier
// or the exact source URL.
func (c Collection) FindDuplicate(scenarioID, sourceURL string) (Template, bool) {
	for _, t := range c {
		if scenarioID != "" && t.MakeScenarioID == scenarioID {
			return t, true
		}
		if sourceURL != "" && t.MakeScenarioURL == sourceURL {
			return t, true
		}
	}
	return Template{}, false
}

// BySlug finds a record by slug
func (c Collection) BySlug(slug string) (Template, bool) {
	for _, t := range c {
		if t.Slug == slug {
			return t, true
		}
	}
	return Template{}, false
}

// Filter describes a catalog search
type Filter struct {
	Query      string
	Categories []string
}

// Search filters by category set and case-insensitive text match over title,
// description, tags and category. Results are ordered by title.
func (c Collection) Search(f Filter) Collection {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make(Collection, 0, len(c))
	for _, t := range c {
		if len(f.Categories) > 0 && !contains(f.Categories, t.Category) {
			continue
		}
		if query != "" && !t.matches(query) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Title < out[j].Title
	})
	return out
}

func (t Template) matches(query string) bool {
	if strings.Contains(strings.ToLower(t.Title), query) ||
		strings.Contains(strings.ToLower(t.Description), query) ||
		strings.Contains(strings.ToLower(t.Category), query) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

// CategoryCount is a category with the number of records in it
type CategoryCount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Categories counts records per category, ordered by name
func (c Collection) Categories() []CategoryCount {
	counts := make(map[string]int)
	for _, t := range c {
		counts[t.Category]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, CategoryCount{ID: Slugify(name), Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Related returns up to limit records linked from t. Explicit relatedTemplates
// ids win; otherwise records from the same category are used.
func (c Collection) Related(t Template, limit int) Collection {
	out := make(Collection, 0, limit)
	if len(t.RelatedTemplates) > 0 {
		for _, other := range c {
			if len(out) == limit {
				break
			}
			if other.ID != t.ID && contains(t.RelatedTemplates, other.ID) {
				out = append(out, other)
			}
		}
		return out
	}
	for _, other := range c {
		if len(out) == limit {
			break
		}
		if other.ID != t.ID && other.Category == t.Category {
			out = append(out, other)
		}
	}
	return out
}
