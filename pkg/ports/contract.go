package ports

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewConversation(sessionID)
		state.CurrentNodeID = "start"
		state.Open = true
		state.Transcript = append(state.Transcript,
			domain.Entry{Kind: domain.EntryMessage, Sender: domain.SenderBot, Text: "hello"},
			domain.Entry{Kind: domain.EntryOptions, Options: []domain.Option{
				{Label: "Voltar", Action: domain.Next{NodeID: "start"}},
				{Label: "Site", Action: domain.OpenLink{URL: "https://example.com"}},
			}},
		)

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.CurrentNodeID, loaded.CurrentNodeID)
		assert.True(t, loaded.Open)
		require.Len(t, loaded.Transcript, 2)
		assert.Equal(t, "hello", loaded.Transcript[0].Text)
		assert.Equal(t, domain.OpenLink{URL: "https://example.com"}, loaded.Transcript[1].Options[1].Action)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewConversation(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewConversation(id1))
		_ = store.Save(ctx, id2, domain.NewConversation(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunCacheStoreContract verifies that a CacheStore implementation honors
// generation scoping, overwrite semantics and generation deletion.
func RunCacheStoreContract(t *testing.T, store CacheStore) {
	ctx := context.Background()
	const g1, g2 = "contract-v1", "contract-v2"
	key := "https://example.com/static/css/style.css"

	entry := func(body string) *domain.CacheEntry {
		return &domain.CacheEntry{
			Key:      key,
			Status:   http.StatusOK,
			Header:   http.Header{"Content-Type": []string{"text/css"}},
			Body:     []byte(body),
			StoredAt: time.Now().UTC(),
		}
	}

	t.Run("Get Missing", func(t *testing.T) {
		_, err := store.Get(ctx, g1, key)
		assert.ErrorIs(t, err, domain.ErrEntryNotFound)
	})

	t.Run("Put and Get", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, g1, entry("body{}")))

		got, err := store.Get(ctx, g1, key)
		require.NoError(t, err)
		assert.Equal(t, "body{}", string(got.Body))
		assert.Equal(t, http.StatusOK, got.Status)
		assert.Equal(t, "text/css", got.Header.Get("Content-Type"))
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, g1, entry("v2")))

		got, err := store.Get(ctx, g1, key)
		require.NoError(t, err)
		assert.Equal(t, "v2", string(got.Body))

		keys, err := store.Keys(ctx, g1)
		require.NoError(t, err)
		assert.Equal(t, []string{key}, keys)
	})

	t.Run("Generations Are Isolated", func(t *testing.T) {
		_, err := store.Get(ctx, g2, key)
		assert.ErrorIs(t, err, domain.ErrEntryNotFound)

		require.NoError(t, store.Put(ctx, g2, entry("other")))
		gens, err := store.Generations(ctx)
		require.NoError(t, err)
		assert.Contains(t, gens, g1)
		assert.Contains(t, gens, g2)
	})

	t.Run("Delete Entry", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, g2, key))
		_, err := store.Get(ctx, g2, key)
		assert.ErrorIs(t, err, domain.ErrEntryNotFound)
		require.NoError(t, store.Delete(ctx, g2, "missing"))

		gens, err := store.Generations(ctx)
		require.NoError(t, err)
		assert.Contains(t, gens, g1)
		assert.NotContains(t, gens, g2, "a generation emptied by Delete is pruned")
	})

	t.Run("Delete Generation", func(t *testing.T) {
		require.NoError(t, store.DeleteGeneration(ctx, g1))
		require.NoError(t, store.DeleteGeneration(ctx, g2))

		_, err := store.Get(ctx, g1, key)
		assert.ErrorIs(t, err, domain.ErrEntryNotFound)

		gens, err := store.Generations(ctx)
		require.NoError(t, err)
		assert.NotContains(t, gens, g1)
		assert.NotContains(t, gens, g2)
	})

	t.Run("Concurrent Writers", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = store.Put(ctx, g1, entry("race"))
			}()
		}
		wg.Wait()

		got, err := store.Get(ctx, g1, key)
		require.NoError(t, err)
		assert.Equal(t, "race", string(got.Body))
		require.NoError(t, store.DeleteGeneration(ctx, g1))
	})
}
