package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"gallery-backend/application/ports"
	"gallery-backend/domain/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeContentsAPI serves one file through the contents endpoints
type fakeContentsAPI struct {
	mu       sync.Mutex
	content  []byte
	sha      string
	exists   bool
	messages []string
}

func (f *fakeContentsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path != "/repos/acme/gallery/contents/data/templates.json" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"type":     "file",
			"encoding": "base64",
			"sha":      f.sha,
			"content":  base64.StdEncoding.EncodeToString(f.content),
		})
	case http.MethodPut:
		var body struct {
			Message string `json:"message"`
			Content []byte `json:"content"`
			SHA     string `json:"sha"`
			Branch  string `json:"branch"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if f.exists && body.SHA == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"\"sha\" wasn't supplied."}`))
			return
		}
		if f.exists && body.SHA != f.sha {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"data/templates.json does not match"}`))
			return
		}
		f.content = body.Content
		f.exists = true
		n, _ := strconv.Atoi(f.sha)
		f.sha = strconv.Itoa(n + 1)
		f.messages = append(f.messages, body.Message)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content": map[string]string{"sha": f.sha},
			"commit":  map[string]string{"sha": "commit-" + f.sha},
		})
	}
}

func newTestStore(t *testing.T, api *fakeContentsAPI) *Store {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	store, err := NewStore(Config{
		Token:  "pat",
		Owner:  "acme",
		Repo:   "gallery",
		Branch: "main",
		Path:   "data/templates.json",
		APIURL: server.URL,
	}, server.Client(), zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Should read a missing document as empty", func(t *testing.T) {
		store := newTestStore(t, &fakeContentsAPI{})

		snap, err := store.Read(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap.Templates)
		assert.Empty(t, snap.Version)
	})

	t.Run("Should create then update with the blob SHA as version", func(t *testing.T) {
		api := &fakeContentsAPI{}
		store := newTestStore(t, api)

		v1, err := store.Write(ctx, template.Collection{{ID: "1", Slug: "a", Title: "A & B"}}, "", "feat: add A")
		require.NoError(t, err)
		assert.Equal(t, "1", v1)
		assert.Contains(t, string(api.content), `"title": "A & B"`)

		snap, err := store.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, v1, snap.Version)
		require.Len(t, snap.Templates, 1)

		v2, err := store.Write(ctx, append(snap.Templates, template.Template{ID: "2", Slug: "b"}), snap.Version, "feat: add B")
		require.NoError(t, err)
		assert.Equal(t, "2", v2)
		assert.Equal(t, []string{"feat: add A", "feat: add B"}, api.messages)
	})

	t.Run("Should report a stale SHA as a version conflict", func(t *testing.T) {
		api := &fakeContentsAPI{exists: true, sha: "5", content: []byte("[]")}
		store := newTestStore(t, api)

		_, err := store.Write(ctx, template.Collection{}, "4", "msg")
		assert.ErrorIs(t, err, ports.ErrVersionConflict)
	})

	t.Run("Should report a racing create as a version conflict", func(t *testing.T) {
		api := &fakeContentsAPI{exists: true, sha: "1", content: []byte("[]")}
		store := newTestStore(t, api)

		_, err := store.Write(ctx, template.Collection{}, "", "msg")
		assert.ErrorIs(t, err, ports.ErrVersionConflict)
	})
}
