package file

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"gallery-backend/application/ports"
	"gallery-backend/domain/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Should read a missing file as empty", func(t *testing.T) {
		s := NewStore(filepath.Join(t.TempDir(), "data", "templates.json"), zap.NewNop())

		snap, err := s.Read(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap.Templates)
		assert.Empty(t, snap.Version)
	})

	t.Run("Should write conditionally on the content version", func(t *testing.T) {
		s := NewStore(filepath.Join(t.TempDir(), "data", "templates.json"), zap.NewNop())

		v1, err := s.Write(ctx, template.Collection{{ID: "1", Slug: "a"}}, "", "first")
		require.NoError(t, err)

		snap, err := s.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, v1, snap.Version)

		_, err = s.Write(ctx, template.Collection{}, "", "stale")
		assert.ErrorIs(t, err, ports.ErrVersionConflict)

		_, err = s.Write(ctx, append(snap.Templates, template.Template{ID: "2"}), v1, "second")
		require.NoError(t, err)

		snap, err = s.Read(ctx)
		require.NoError(t, err)
		assert.Len(t, snap.Templates, 2)
	})

	t.Run("Should detect edits made outside the store", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "templates.json")
		s := NewStore(path, zap.NewNop())
		v1, err := s.Write(ctx, template.Collection{}, "", "init")
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(path, []byte(`[{"id":"9"}]`), 0o644))

		_, err = s.Write(ctx, template.Collection{}, v1, "late")
		assert.ErrorIs(t, err, ports.ErrVersionConflict)
	})
}

func TestWatcher(t *testing.T) {
	t.Run("Should report changes to the watched file only", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "templates.json")
		require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

		var changes int32
		w, err := NewWatcher(path, 20*time.Millisecond, func() { atomic.AddInt32(&changes, 1) }, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, w.Start(context.Background()))
		defer w.Stop()

		require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))
		require.NoError(t, os.WriteFile(path, []byte(`[{"id":"1"}]`), 0o644))

		assert.Eventually(t, func() bool { return atomic.LoadInt32(&changes) >= 1 }, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("Should stop cleanly without Start", func(t *testing.T) {
		w, err := NewWatcher(filepath.Join(t.TempDir(), "x.json"), time.Millisecond, func() {}, zap.NewNop())
		require.NoError(t, err)
		w.Stop()
	})
}
