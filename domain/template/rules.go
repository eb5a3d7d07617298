package template

import (
	"regexp"
	"strconv"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// fallbackSlug is used when a title contains no usable characters
const fallbackSlug = "scenario"

// Slugify lower-cases a title and collapses every run of characters outside
// [a-z0-9] into a single hyphen, trimming hyphens at both ends.
func Slugify(title string) string {
	slug := nonAlphanumeric.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// UniqueSlug returns base if unused, otherwise base-n for the smallest n >= 1
// that is not already taken.
func UniqueSlug(base string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		taken[s] = struct{}{}
	}

	candidate := base
	for n := 1; ; n++ {
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}

// NextID returns max(existing)+1 as a decimal string.
// Identifiers that are not decimal integers do not take part.
func NextID(existing []string) string {
	var max int64
	for _, id := range existing {
		n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return strconv.FormatInt(max+1, 10)
}

// SplitApps splits a comma separated app list into trimmed, non-empty tokens
func SplitApps(apps string) []string {
	parts := strings.Split(apps, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// AppTags lower-cases each app into a tag, dropping duplicates
func AppTags(apps []string) []string {
	tags := make([]string, 0, len(apps))
	for _, app := range apps {
		tag := strings.ToLower(app)
		if !contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	return tags
}

// sharedScenarioSegment precedes the scenario identifier in share URLs
const sharedScenarioSegment = "shared-scenario"

// ExtractScenarioID returns the path segment following "shared-scenario",
// or "" when the URL has none.
func ExtractScenarioID(rawURL string) string {
	// Query and fragment never carry the identifier.
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	segments := strings.Split(rawURL, "/")
	for i, seg := range segments {
		if seg == sharedScenarioSegment && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}
