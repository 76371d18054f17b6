package identity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mazen160/go-random"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	url := "https://www.orthobullets.com/Site/Cases/View/1"
	require.Equal(t, Fingerprint(url), Fingerprint(url))
	require.Len(t, Fingerprint(url), 40)
	require.NotEqual(t, Fingerprint(url), Fingerprint(url+"?x=1"))
	// sha1("abc")
	require.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", Fingerprint("abc"))
}

func TestSet(t *testing.T) {
	set := NewSet("b", "a")
	require.True(t, set.Has("a"))
	require.False(t, set.Has("c"))
	set.Add("c")
	set.Add("a")
	if diff := cmp.Diff([]string{"a", "b", "c"}, set.Sorted()); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, []string{}, NewSet().Sorted())
}

func randomIds(t testing.TB, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		s, err := random.String(16)
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = Fingerprint(s)
	}
	return ids
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "seen.json")
	store := NewFileStore(path)

	require.Empty(t, store.Load(ctx))

	ids := randomIds(t, 10)
	err := store.Save(ctx, NewSet(ids...))
	require.NoError(t, err)

	loaded := store.Load(ctx)
	if diff := cmp.Diff(NewSet(ids...).Sorted(), loaded.Sorted()); diff != "" {
		t.Fatal(diff)
	}

	err = store.Save(ctx, NewSet())
	require.NoError(t, err)
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "[]\n", string(contents))
}

func TestFileStoreCorrupt(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seen.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewFileStore(path)
	require.Empty(t, store.Load(ctx))

	require.NoError(t, store.Save(ctx, NewSet("x")))
	require.True(t, store.Load(ctx).Has("x"))
}

func TestSQLStore(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.Empty(t, store.Load(ctx))

	ids := randomIds(t, 5)
	require.NoError(t, store.Save(ctx, NewSet(ids[:3]...)))
	require.NoError(t, store.Save(ctx, NewSet(ids...)))

	loaded := store.Load(ctx)
	if diff := cmp.Diff(NewSet(ids...).Sorted(), loaded.Sorted()); diff != "" {
		t.Fatal(diff)
	}

	_, ok, err := store.FirstSeen(ctx, ids[0])
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = store.FirstSeen(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLStoreFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "seen.db")

	store, err := OpenSQLStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, NewSet("a", "b")))
	require.NoError(t, store.Close())

	store, err = OpenSQLStore(path)
	require.NoError(t, err)
	defer store.Close()
	require.Equal(t, []string{"a", "b"}, store.Load(ctx).Sorted())
}
