package makecom

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	apperrors "gallery-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticColors map[string]string

func (s staticColors) IconColors(context.Context, string) map[string]string { return s }

const sharedPayload = `{"scenarioShared":{"title":"Lead sync","descriptionShort":"Syncs leads","descriptionLong":"Step 1","scenarioUsedPackages":["slack","google-sheets"],"name":"Ada"}}`

func TestHashColor(t *testing.T) {
	t.Run("Should reproduce the frontend hash colors", func(t *testing.T) {
		assert.Equal(t, "hsl(97, 82%, 45%)", HashColor("a"))
		assert.Equal(t, "hsl(225, 70%, 57%)", HashColor("ab"))
	})

	t.Run("Should be deterministic", func(t *testing.T) {
		assert.Equal(t, HashColor("google-sheets"), HashColor("google-sheets"))
	})
}

func TestParseIconColors(t *testing.T) {
	page := `<html><body>
<div class="module pkg-icon" style="background-color: rgb(239, 41, 27);"><img src="static/img/packages/google-email_64.png"></div>
<div class="pkg-icon" style="background-color:#4A154B;"><span>x</span><img src="/static/img/packages/slack_64.png"/></div>
<div class="pkg-icon"><img src="static/img/packages/nocolor_64.png"></div>
</body></html>`

	colors := parseIconColors(strings.NewReader(page))
	assert.Equal(t, map[string]string{
		"google-email": "rgb(239, 41, 27)",
		"slack":        "#4A154B",
	}, colors)
}

func TestClientFetchScenario(t *testing.T) {
	logger := zap.NewNop()

	t.Run("Should reject URLs without a shared-scenario path before any request", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
		}))
		defer server.Close()

		c := NewClient(server.Client(), NoColors{}, logger, WithAPIBase(server.URL))
		_, err := c.FetchScenario(context.Background(), "https://eu2.make.com/scenarios/123")

		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidScenarioURL))
		assert.Zero(t, atomic.LoadInt32(&calls))
	})

	t.Run("Should report a missing scenario id", func(t *testing.T) {
		c := NewClient(http.DefaultClient, NoColors{}, logger)
		_, err := c.FetchScenario(context.Background(), "https://eu2.make.com/public/shared-scenario/")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeMissingScenarioID))
	})

	t.Run("Should map the API payload and fill missing colors from the hash", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v2/public/scenarios-shared/abc123", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, sharedPayload)
		}))
		defer server.Close()

		c := NewClient(server.Client(), staticColors{"slack": "#4A154B"}, logger, WithAPIBase(server.URL))
		src := "https://eu2.make.com/public/shared-scenario/abc123/lead-sync"
		meta, err := c.FetchScenario(context.Background(), src)
		require.NoError(t, err)

		assert.Equal(t, "Lead sync", meta.Title)
		assert.Equal(t, "Syncs leads", meta.Description)
		assert.Equal(t, "Step 1", meta.Instructions)
		assert.Equal(t, "slack, google-sheets", meta.Apps)
		assert.Equal(t, "Ada", meta.AuthorName)
		assert.Equal(t, "abc123", meta.MakeScenarioID)
		assert.Equal(t, "https://eu2.make.com/public/shared-scenario/standalone-inspector-previewer/abc123", meta.IframeURL)
		assert.Equal(t, src, meta.ButtonURL)

		require.Len(t, meta.AppIcons, 2)
		assert.Equal(t, "#4A154B", meta.AppIcons[0].Color)
		assert.Equal(t, HashColor("google-sheets"), meta.AppIcons[1].Color)
		assert.Equal(t, "/api/proxy-image?url=https%3A%2F%2Feu2.make.com%2Fstatic%2Fimg%2Fpackages%2Fslack_32.png", meta.AppIcons[0].URL)
	})

	t.Run("Should default the title and apps", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"scenarioShared":{}}`)
		}))
		defer server.Close()

		c := NewClient(server.Client(), NoColors{}, logger, WithAPIBase(server.URL))
		meta, err := c.FetchScenario(context.Background(), "https://eu1.make.com/public/shared-scenario/x1")
		require.NoError(t, err)
		assert.Equal(t, DefaultTitle, meta.Title)
		assert.Empty(t, meta.Apps)
		assert.NotNil(t, meta.AppIcons)
	})

	t.Run("Should carry the upstream status on failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		c := NewClient(server.Client(), NoColors{}, logger, WithAPIBase(server.URL))
		_, err := c.FetchScenario(context.Background(), "https://eu1.make.com/public/shared-scenario/gone")

		appErr := apperrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.CodeUpstreamFetch, appErr.Code)
		assert.Contains(t, appErr.Message, "404")
		assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
	})

	t.Run("Should fail on a payload without scenarioShared", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"other":{}}`)
		}))
		defer server.Close()

		c := NewClient(server.Client(), NoColors{}, logger, WithAPIBase(server.URL))
		_, err := c.FetchScenario(context.Background(), "https://eu1.make.com/public/shared-scenario/x")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUpstreamSchema))
	})
}

func TestPageColorSource(t *testing.T) {
	t.Run("Should scrape colors from the share page", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `<div class="pkg-icon" style="background-color: red;"><img src="packages/slack_64.png"></div>`)
		}))
		defer server.Close()

		s := NewPageColorSource(server.Client(), zap.NewNop())
		assert.Equal(t, map[string]string{"slack": "red"}, s.IconColors(context.Background(), server.URL))
	})

	t.Run("Should yield no colors when the page fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		s := NewPageColorSource(server.Client(), zap.NewNop())
		assert.Empty(t, s.IconColors(context.Background(), server.URL))
	})
}

func TestImageProxy(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/hop.png":
			http.Redirect(w, r, "/static/img/packages/slack_32.png", http.StatusFound)
			return
		case "/escape.png":
			http.Redirect(w, r, "https://evil.example/x.png", http.StatusFound)
			return
		}
		if strings.HasSuffix(r.URL.Path, ".png") {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("png-bytes"))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html></html>")
	}))
	defer server.Close()

	p := NewImageProxy(server.Client(), []string{"127.0.0.1"})

	t.Run("Should stream an allow-listed image", func(t *testing.T) {
		img, err := p.Fetch(context.Background(), server.URL+"/static/img/packages/slack_32.png")
		require.NoError(t, err)
		defer img.Body.Close()

		body, err := io.ReadAll(img.Body)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(body))
		assert.Equal(t, "image/png", img.ContentType)
	})

	t.Run("Should reject hosts outside the allow-list", func(t *testing.T) {
		_, err := p.Fetch(context.Background(), "https://evil.example/x.png")
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("Should reject look-alike hosts that only contain an allowed domain", func(t *testing.T) {
		makeOnly := NewImageProxy(server.Client(), []string{"make.com"})
		for _, raw := range []string{
			"https://make.com.127.0.0.1.nip.io/x.png",
			"https://notmake.com/x.png",
		} {
			_, err := makeOnly.Fetch(context.Background(), raw)
			assert.True(t, apperrors.IsValidation(err), raw)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidURL), raw)
		}
	})

	t.Run("Should follow redirects within the allow-list", func(t *testing.T) {
		img, err := p.Fetch(context.Background(), server.URL+"/hop.png")
		require.NoError(t, err)
		defer img.Body.Close()
		assert.Equal(t, "image/png", img.ContentType)
	})

	t.Run("Should refuse a redirect to another host", func(t *testing.T) {
		_, err := p.Fetch(context.Background(), server.URL+"/escape.png")
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("Should reject non-image responses", func(t *testing.T) {
		_, err := p.Fetch(context.Background(), server.URL+"/page")
		assert.True(t, apperrors.IsValidation(err))
	})
}
