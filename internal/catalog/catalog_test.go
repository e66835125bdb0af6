package catalog

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datacatalog-cli/internal/sampler"
)

func sampleMap(vals ...string) *sampler.SampleMap {
	var s sampler.Samples
	for i := range vals {
		s[i] = &vals[i]
	}
	return &sampler.SampleMap{Columns: []sampler.ColumnSamples{{Name: "col", Values: s}}}
}

func exerciseStore(t *testing.T, driver, path string) {
	t.Helper()
	ctx := context.Background()
	st, err := Open(ctx, driver, path)
	require.NoError(t, err)

	b := NewEntry("/data", "b.csv", "csv")
	b.Samples = sampleMap("1", "2")
	a := NewEntry("/data", "a.json", "json")
	a.Profile = json.RawMessage(`{"col":{"dtype":"int64"}}`)
	require.NoError(t, st.Put(ctx, b))
	require.NoError(t, st.Put(ctx, a))

	got, err := st.Get(ctx, "/data", "b.csv")
	require.NoError(t, err)
	require.Equal(t, b.ID, got.ID)
	require.Equal(t, []string{"col"}, got.Samples.Names())
	s, _ := got.Samples.Get("col")
	require.Equal(t, []string{"1", "2", "None"}, s.Strings())
	require.WithinDuration(t, b.CreatedAt, got.CreatedAt, time.Millisecond)

	_, err = st.Get(ctx, "/data", "zzz.csv")
	require.ErrorIs(t, err, ErrNotFound)

	// same folder/file replaces
	b2 := NewEntry("/data", "b.csv", "csv")
	b2.Samples = sampleMap("9")
	require.NoError(t, st.Put(ctx, b2))
	require.NoError(t, st.Close())

	st, err = Open(ctx, driver, path)
	require.NoError(t, err)
	defer st.Close()
	list, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "a.json", list[0].File)
	require.JSONEq(t, `{"col":{"dtype":"int64"}}`, string(list[0].Profile))
	require.Nil(t, list[0].Samples)
	require.Equal(t, "b.csv", list[1].File)
	require.Equal(t, b2.ID, list[1].ID)
}

func TestJSONStore(t *testing.T) {
	exerciseStore(t, "json", filepath.Join(t.TempDir(), "nested", "catalog.json"))
}

func TestSQLiteStore(t *testing.T) {
	exerciseStore(t, "sqlite", filepath.Join(t.TempDir(), "catalog.db"))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mongo", "x")
	require.Error(t, err)
	_, err = Open(context.Background(), "json", "")
	require.Error(t, err)
}

func TestRegisterTwicePanics(t *testing.T) {
	require.Panics(t, func() { Register("json", openJSON) })
}
