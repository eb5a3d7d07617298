package template

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain words", "Sync Leads To CRM", "sync-leads-to-crm"},
		{"collapses punctuation", "Gmail -> Slack!!  Alerts", "gmail-slack-alerts"},
		{"trims edges", "  --Hello World--  ", "hello-world"},
		{"keeps digits", "Top 10 Tips", "top-10-tips"},
		{"drops non ascii", "Café Résumé", "caf-r-sum"},
		{"empty falls back", "!!!", "scenario"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.title))
		})
	}
}

func TestSlugifyShape(t *testing.T) {
	shape := regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	titles := []string{
		"", " ", "A", "a--b", "-x-", "Hello, World", "ÆØÅ", "émoji 🚀 flow",
		"tabs\tand\nnewlines", "UPPER_snake_Case", "1.2.3", "__--__",
	}
	for _, title := range titles {
		slug := Slugify(title)
		assert.Regexp(t, shape, slug, "title %q", title)
	}
}

func TestUniqueSlug(t *testing.T) {
	t.Run("Should return base when unused", func(t *testing.T) {
		assert.Equal(t, "crm-sync", UniqueSlug("crm-sync", []string{"other"}))
	})

	t.Run("Should append smallest free suffix", func(t *testing.T) {
		existing := []string{"crm-sync", "crm-sync-1", "crm-sync-3"}
		assert.Equal(t, "crm-sync-2", UniqueSlug("crm-sync", existing))
	})

	t.Run("Should start at one", func(t *testing.T) {
		assert.Equal(t, "crm-sync-1", UniqueSlug("crm-sync", []string{"crm-sync"}))
	})

	t.Run("Should work on empty collection", func(t *testing.T) {
		assert.Equal(t, "a", UniqueSlug("a", nil))
	})
}

func TestNextID(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{"empty collection", nil, "1"},
		{"single", []string{"1"}, "2"},
		{"unordered", []string{"3", "12", "7"}, "13"},
		{"numeric not lexical", []string{"9", "10"}, "11"},
		{"ignores non numeric", []string{"abc", "4", ""}, "5"},
		{"leading zeros parsed", []string{"007"}, "8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextID(tt.existing))
		})
	}
}

func TestSplitApps(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitApps("a, b ,c"))
	assert.Equal(t, []string{"gmail", "slack"}, SplitApps(" gmail,, ,slack, "))
	assert.Empty(t, SplitApps(""))
}

func TestAppTags(t *testing.T) {
	assert.Equal(t, []string{"gmail", "google-sheets"}, AppTags([]string{"Gmail", "google-sheets", "GMAIL"}))
}

func TestExtractScenarioID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://eu2.make.com/public/shared-scenario/abc123/sync-leads", "abc123"},
		{"https://eu2.make.com/public/shared-scenario/abc123", "abc123"},
		{"https://us1.make.com/public/shared-scenario/xyz?utm=1", "xyz"},
		{"https://eu2.make.com/public/shared-scenario", ""},
		{"https://eu2.make.com/public/scenarios/abc", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractScenarioID(tt.url), tt.url)
	}
}
