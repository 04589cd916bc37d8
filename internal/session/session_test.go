package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"springforge/internal/analyzer"
	"springforge/internal/generate"
)

func TestStateMachineLegalPath(t *testing.T) {
	sess := New("sess-1", "https://github.com/acme/shop.git", "com.acme.shop")
	assert.Equal(t, StateInput, sess.State)

	path := []State{
		StateValidatingSource,
		StateAnalyzing,
		StateReviewing,
		StateTranslating,
		StateValidatingOutput,
		StateDone,
	}
	for _, next := range path {
		require.NoError(t, sess.Advance(next))
	}
	assert.True(t, sess.State.Terminal())
}

func TestStateMachineReviewRedoLoop(t *testing.T) {
	sess := New("sess-2", "shop.zip", "com.acme")
	require.NoError(t, sess.Advance(StateValidatingSource))
	require.NoError(t, sess.Advance(StateAnalyzing))
	require.NoError(t, sess.Advance(StateReviewing))

	// redo with feedback goes back to analysis
	require.NoError(t, sess.Advance(StateAnalyzing))
	require.NoError(t, sess.Advance(StateReviewing))
	require.NoError(t, sess.Advance(StateTranslating))
}

func TestStateMachineRejectsIllegalTransitions(t *testing.T) {
	sess := New("sess-3", "shop.zip", "com.acme")

	err := sess.Advance(StateTranslating)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal transition input -> translating")
	assert.Equal(t, StateInput, sess.State)

	require.NoError(t, sess.Advance(StateValidatingSource))
	assert.Error(t, sess.Advance(StateDone))
	assert.Error(t, sess.Advance(StateValidatingSource))
}

func TestFailParksSessionInError(t *testing.T) {
	sess := New("sess-4", "shop.zip", "com.acme")
	require.NoError(t, sess.Advance(StateValidatingSource))

	sess.Fail(errors.New("clone failed: not found"))
	assert.Equal(t, StateError, sess.State)
	assert.Equal(t, "clone failed: not found", sess.Error)
	assert.True(t, sess.State.Terminal())

	// a finished session stays finished
	done := New("sess-5", "shop.zip", "com.acme")
	done.State = StateDone
	done.Fail(errors.New("late failure"))
	assert.Equal(t, StateDone, done.State)
	assert.Empty(t, done.Error)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")

	sess := New("sess-10", "https://github.com/acme/shop.git", "com.acme.shop")
	sess.AppName = "shop"
	sess.Proposal = &analyzer.StructureProposal{
		Dirs: map[string][]analyzer.ProposedFile{
			"src/main/java/com/acme/shop/model": {{Name: "Product.java", Summary: "entity"}},
		},
		Diagram: "graph TD\n  A --> B",
	}
	sess.MappingWarnings = []string{"mapping ambiguity: two candidates for OrderController.java"}
	sess.Summary = &generate.Summary{Translated: 3, Boiler: 2}
	sess.ArchiveKey = "sess-10.zip"

	store := NewStore(path)
	store.Put(sess)

	got, ok := store.Get("sess-10")
	require.True(t, ok)
	assert.Equal(t, sess.Proposal, got.Proposal)
	assert.Equal(t, sess.MappingWarnings, got.MappingWarnings)

	// a fresh store instance reads the snapshot back from disk
	reopened := NewStore(path)
	got, ok = reopened.Get("sess-10")
	require.True(t, ok)
	assert.Equal(t, StateInput, got.State)
	assert.Equal(t, "shop", got.AppName)
	assert.Equal(t, "sess-10.zip", got.ArchiveKey)
	assert.Equal(t, 3, got.Summary.Translated)
	require.NotNil(t, got.Proposal)
	assert.Equal(t, "Product.java", got.Proposal.Dirs["src/main/java/com/acme/shop/model"][0].Name)
	assert.True(t, got.CreatedAt.Equal(sess.CreatedAt))
}

func TestFileStoreUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	store := NewStore(path)

	sess := New("sess-20", "shop.zip", "com.acme")
	store.Put(sess)

	updated, ok := store.Update("sess-20", func(s *Session) {
		require.NoError(t, s.Advance(StateValidatingSource))
		s.WorkDir = "/tmp/springforge-sess-20"
	})
	require.True(t, ok)
	assert.Equal(t, StateValidatingSource, updated.State)
	assert.False(t, updated.UpdatedAt.Before(sess.UpdatedAt))

	reopened := NewStore(path)
	got, ok := reopened.Get("sess-20")
	require.True(t, ok)
	assert.Equal(t, StateValidatingSource, got.State)
	assert.Equal(t, "/tmp/springforge-sess-20", got.WorkDir)

	_, ok = store.Update("missing", func(s *Session) {})
	assert.False(t, ok)
}

func TestFileStoreDeleteAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	store := NewStore(path)

	now := time.Now().UTC()
	for i, id := range []string{"sess-a", "sess-b", "sess-c"} {
		sess := New(id, "shop.zip", "com.acme")
		sess.CreatedAt = now.Add(time.Duration(i) * time.Hour)
		store.Put(sess)
	}

	list := store.List()
	require.Len(t, list, 3)
	assert.Equal(t, "sess-c", list[0].ID)
	assert.Equal(t, "sess-a", list[2].ID)

	store.Delete("sess-b")
	assert.Len(t, store.List(), 2)

	reopened := NewStore(path)
	_, ok := reopened.Get("sess-b")
	assert.False(t, ok)
	assert.Len(t, reopened.List(), 2)
}

func TestFileStoreDropsEmptyIDs(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "sessions.json"))
	store.Put(Session{Source: "shop.zip"})
	assert.Empty(t, store.List())
}

func TestFileStoreNormalizesLoadedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	raw := `[{"id": "  sess-raw  ", "source": "shop.zip"}, {"id": "", "source": "dropped"}]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	store := NewStore(path)
	store.EnsureLoaded()

	got, ok := store.Get("sess-raw")
	require.True(t, ok)
	assert.Equal(t, StateInput, got.State)
	assert.Len(t, store.List(), 1)
}

func TestNewStoreFromEnvFallsBackToFile(t *testing.T) {
	t.Setenv("SESSION_DSN", "")
	path := filepath.Join(t.TempDir(), "sessions.json")

	store := NewStoreFromEnv(path)
	store.Put(New("sess-env", "shop.zip", "com.acme"))

	_, ok := store.Get("sess-env")
	assert.True(t, ok)
	require.NoError(t, store.Close())
	assert.FileExists(t, path)
}
