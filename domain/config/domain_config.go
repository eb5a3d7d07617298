package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// GalleryConfig holds the gallery business rules and constraints
type GalleryConfig struct {
	// Catalog
	Categories       []string `yaml:"categories"`
	PlaceholderImage string   `yaml:"placeholder_image"`
	RelatedLimit     int      `yaml:"related_limit"`

	// Submission constraints
	DefaultTitle         string `yaml:"default_title"`
	MaxTitleLength       int    `yaml:"max_title_length"`
	MaxDescriptionLength int    `yaml:"max_description_length"`

	// URL allow-lists (host substrings)
	ScenarioDomains []string `yaml:"scenario_domains"`
	EmbedDomains    []string `yaml:"embed_domains"`
	ImageDomains    []string `yaml:"image_domains"`

	// Publishing
	CommitMessage string `yaml:"commit_message"`

	// Feature flags
	EnableColorScraping bool `yaml:"enable_color_scraping"`
	EnableModeration    bool `yaml:"enable_moderation"`
}

// DefaultGalleryConfig returns the default gallery configuration
func DefaultGalleryConfig() *GalleryConfig {
	return &GalleryConfig{
		Categories: []string{
			"Marketing",
			"Customer Service",
			"Data Analysis",
			"Content Management",
			"Productivity",
			"E-commerce",
			"Development",
			"Other",
		},
		PlaceholderImage: "/placeholder.svg?height=400&width=600",
		RelatedLimit:     3,

		DefaultTitle:         "Untitled Scenario",
		MaxTitleLength:       200,
		MaxDescriptionLength: 5000,

		ScenarioDomains: []string{"make.com"},
		EmbedDomains:    []string{"make.com"},
		ImageDomains:    []string{"make.com"},

		CommitMessage: "feat: add %s scenario via community submission",

		EnableColorScraping: true,
		EnableModeration:    true,
	}
}

// DevelopmentGalleryConfig returns development-specific configuration
func DevelopmentGalleryConfig() *GalleryConfig {
	config := DefaultGalleryConfig()

	// Local runs rarely have a moderation key
	config.EnableModeration = false

	return config
}

// LoadGalleryConfig loads gallery configuration based on environment
func LoadGalleryConfig(environment string) *GalleryConfig {
	switch environment {
	case "development":
		return DevelopmentGalleryConfig()
	default:
		return DefaultGalleryConfig()
	}
}

// LoadFile overlays the YAML document at path onto c.
// Keys absent from the file keep their current values.
func (c *GalleryConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read gallery config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse gallery config %s: %w", path, err)
	}
	return c.Validate()
}

// CommitMessageFor renders the commit message for a published title
func (c *GalleryConfig) CommitMessageFor(title string) string {
	if !strings.Contains(c.CommitMessage, "%s") {
		return c.CommitMessage
	}
	return fmt.Sprintf(c.CommitMessage, title)
}

// Validate checks if the configuration is valid
func (c *GalleryConfig) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	if len(c.ScenarioDomains) == 0 {
		return fmt.Errorf("scenario_domains must not be empty")
	}
	if c.RelatedLimit < 0 {
		return fmt.Errorf("related_limit must not be negative")
	}
	if c.MaxTitleLength <= 0 || c.MaxDescriptionLength <= 0 {
		return fmt.Errorf("length limits must be positive")
	}
	if strings.Count(c.CommitMessage, "%") > 1 {
		return fmt.Errorf("commit_message supports a single %%s placeholder")
	}
	return nil
}
