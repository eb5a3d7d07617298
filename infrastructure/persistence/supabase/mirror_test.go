package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"gallery-backend/application/ports"
	"gallery-backend/domain/template"
	"gallery-backend/infrastructure/persistence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRest stands in for the PostgREST endpoint of one table
type fakeRest struct {
	mu       sync.Mutex
	records  []persistence.MirrorRecord
	queries  []string
	posted   []persistence.MirrorRecord
	prefer   string
	failWith int
}

func (f *fakeRest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path != "/rest/v1/templates" {
		http.NotFound(w, r)
		return
	}
	if f.failWith != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.failWith)
		io.WriteString(w, `{"code":"42501","message":"permission denied","details":"","hint":""}`)
		return
	}

	switch r.Method {
	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		var rec persistence.MirrorRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.posted = append(f.posted, rec)
		f.prefer = r.Header.Get("Prefer")
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet:
		f.queries = append(f.queries, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(f.records)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestMirror(t *testing.T, fake *fakeRest) *Mirror {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	m, err := NewMirror(server.URL, "service-key", zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestMirror(t *testing.T) {
	ctx := context.Background()
	tpl := template.Template{
		ID:          "7",
		Slug:        "sync-leads",
		Title:       "Sync leads",
		Category:    "Sales",
		Tags:        []string{"hubspot"},
		Complexity:  template.ComplexityAdvanced,
		CreatedAt:   "2024-05-01",
		MakeApps:    []string{"HubSpot"},
		SubmittedBy: "user-1",
	}

	t.Run("Should upsert on id with minimal return", func(t *testing.T) {
		fake := &fakeRest{}
		m := newTestMirror(t, fake)

		require.NoError(t, m.Upsert(ctx, ports.NewMirrorRow(tpl)))

		require.Len(t, fake.posted, 1)
		got := fake.posted[0]
		assert.Equal(t, "7", got.ID)
		assert.Equal(t, "sync-leads", got.Slug)
		require.NotNil(t, got.UserID)
		assert.Equal(t, "user-1", *got.UserID)
		assert.Equal(t, ports.Fingerprint(tpl), got.Fingerprint)
		assert.Contains(t, fake.prefer, "resolution=merge-duplicates")
		assert.Contains(t, fake.prefer, "return=minimal")
	})

	t.Run("Should send a null owner for anonymous rows", func(t *testing.T) {
		fake := &fakeRest{}
		m := newTestMirror(t, fake)

		anon := tpl
		anon.SubmittedBy = template.AnonymousSubmitter
		require.NoError(t, m.Upsert(ctx, ports.NewMirrorRow(anon)))

		require.Len(t, fake.posted, 1)
		assert.Nil(t, fake.posted[0].UserID)
	})

	t.Run("Should list a user's rows", func(t *testing.T) {
		fake := &fakeRest{records: []persistence.MirrorRecord{persistence.NewMirrorRecord(ports.NewMirrorRow(tpl))}}
		m := newTestMirror(t, fake)

		rows, err := m.ListByUser(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "user-1", rows[0].UserID)
		assert.Equal(t, "Sync leads", rows[0].Template.Title)
		assert.Equal(t, []string{"HubSpot"}, rows[0].Template.MakeApps)

		require.Len(t, fake.queries, 1)
		assert.Contains(t, fake.queries[0], "user_id=eq.user-1")
		assert.Contains(t, fake.queries[0], "order=created_at.desc")
	})

	t.Run("Should index fingerprints by id", func(t *testing.T) {
		fake := &fakeRest{records: []persistence.MirrorRecord{
			{ID: "1", Fingerprint: "aaa"},
			{ID: "2", Fingerprint: "bbb"},
		}}
		m := newTestMirror(t, fake)

		fps, err := m.Fingerprints(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"1": "aaa", "2": "bbb"}, fps)
	})

	t.Run("Should surface REST errors", func(t *testing.T) {
		fake := &fakeRest{failWith: http.StatusForbidden}
		m := newTestMirror(t, fake)

		_, err := m.ListByUser(ctx, "user-1")
		assert.Error(t, err)
	})

	t.Run("Should stop on a cancelled context", func(t *testing.T) {
		fake := &fakeRest{}
		m := newTestMirror(t, fake)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		assert.ErrorIs(t, m.Upsert(cancelled, ports.NewMirrorRow(tpl)), context.Canceled)
		assert.Empty(t, fake.posted)
	})
}
