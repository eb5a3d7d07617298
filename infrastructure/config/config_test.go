package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Should load a file store configuration", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "file")
		t.Setenv("TEMPLATES_FILE", "/tmp/templates.json")
		t.Setenv("RATE_LIMIT_SCRAPES_PER_HOUR", "5")
		t.Setenv("HTTP_CLIENT_TIMEOUT", "30")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.ScrapesPerHour)
		assert.Equal(t, 10, cfg.SubmissionsPerHour)
		assert.Equal(t, 30*time.Second, cfg.HTTPClientTimeout)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	})

	t.Run("Should require repository coordinates for the github store", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "github")
		t.Setenv("GITHUB_REPO_OWNER", "")

		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("Should reject an unknown mirror driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "file")
		t.Setenv("MIRROR_DRIVER", "mongo")

		_, err := LoadConfig()
		assert.ErrorContains(t, err, "MIRROR_DRIVER")
	})
}
