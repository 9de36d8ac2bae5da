package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu       sync.Mutex
	readOnly bool
	shows    map[int64]Show
	runs     []ScanRun
	getCalls   int
	failGet    error
	failSave   error
	failDelete error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{shows: map[int64]Show{}}
}

func (m *memoryStore) ReadOnly() bool { return m.readOnly }

func (m *memoryStore) AddRoot(path string) (LibraryRoot, error) {
	return LibraryRoot{ID: "root-1", Path: path, CreatedAt: time.Now()}, nil
}

func (m *memoryStore) StartScanRun(rootID string, startedAt time.Time) (ScanRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := ScanRun{ID: "run-" + strconv.Itoa(len(m.runs)+1), RootID: rootID, StartedAt: startedAt, Status: "running"}
	m.runs = append(m.runs, run)
	return run, nil
}

func (m *memoryStore) finish(id, status, errMsg string, found int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID == id {
			m.runs[i].Status = status
			m.runs[i].Error = errMsg
			m.runs[i].Found = found
			return nil
		}
	}
	return errors.New("unknown run")
}

func (m *memoryStore) FinishScanRun(id string, finishedAt time.Time, found int) error {
	return m.finish(id, "finished", "", found)
}

func (m *memoryStore) FailScanRun(id string, finishedAt time.Time, errMsg string) error {
	return m.finish(id, "failed", errMsg, 0)
}

func (m *memoryStore) SaveShows(shows []Show) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	for _, s := range shows {
		m.shows[s.ID] = s
	}
	return nil
}

func (m *memoryStore) DeleteShows(ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete != nil {
		return m.failDelete
	}
	for _, id := range ids {
		delete(m.shows, id)
	}
	return nil
}

func (m *memoryStore) GetAll() ([]Show, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Show, 0, len(m.shows))
	for _, s := range m.shows {
		out = append(out, s)
	}
	sortShows(out)
	return out, nil
}

func (m *memoryStore) GetShow(id int64) (*Show, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.failGet != nil {
		return nil, false, m.failGet
	}
	s, ok := m.shows[id]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

func writeShowNFO(t *testing.T, root, dir string, id int64, title string, genres ...string) string {
	t.Helper()
	body := "<tvshow><title>" + title + "</title><uniqueid type=\"tvmaze\">" + strconv.FormatInt(id, 10) + "</uniqueid>"
	for _, g := range genres {
		body += "<genre>" + g + "</genre>"
	}
	body += "<actor><name>Shared Actor</name><role>Self</role><tmdbid>500</tmdbid></actor></tvshow>"
	path := filepath.Join(root, dir, "tvshow.nfo")
	write(t, path, body)
	return path
}

func newTestLibrary(t *testing.T, store Store) (*Library, string) {
	t.Helper()
	root := t.TempDir()
	lib, err := NewLibrary(root, store, LibraryOptions{CacheSize: 8})
	require.NoError(t, err)
	return lib, root
}

func TestLibraryScanFindsShows(t *testing.T) {
	lib, root := newTestLibrary(t, nil)
	writeShowNFO(t, root, "Lost", 3, "Lost", "Drama", "Mystery")
	writeShowNFO(t, root, "Fringe", 2, "fringe", "Drama")
	writeShowNFO(t, root, "Alias", 1, "Alias", "Action")
	write(t, filepath.Join(root, "Alias", "notes.txt"), "ignored")

	res, err := lib.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Found)
	assert.False(t, lib.LastScan().IsZero())

	got := lib.Shows(Filter{})
	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "fringe", got[1].Name)
}

func TestLibraryPrefersJSONOverNFO(t *testing.T) {
	lib, root := newTestLibrary(t, nil)
	writeShowNFO(t, root, "Girls", 999, "Girls (nfo)")
	write(t, filepath.Join(root, "Girls", "show.json"), girlsJSON)

	_, err := lib.Scan(context.Background())
	require.NoError(t, err)

	got := lib.Shows(Filter{})
	require.Len(t, got, 1)
	assert.Equal(t, int64(139), got[0].ID)
}

func TestLibraryDuplicateIDKeepsFirstPath(t *testing.T) {
	lib, root := newTestLibrary(t, nil)
	first := writeShowNFO(t, root, "a", 10, "First")
	writeShowNFO(t, root, "b", 10, "Second")

	_, err := lib.Scan(context.Background())
	require.NoError(t, err)

	show, ok := lib.Lookup(10)
	require.True(t, ok)
	assert.Equal(t, "First", show.Name)
	assert.Equal(t, first, show.SourcePath)
}

func TestLibraryShowsFilter(t *testing.T) {
	lib, root := newTestLibrary(t, nil)
	writeShowNFO(t, root, "Lost", 3, "Lost", "Drama", "Mystery")
	writeShowNFO(t, root, "Lost Girl", 4, "Lost Girl", "Fantasy")
	writeShowNFO(t, root, "Alias", 1, "Alias", "Action")
	_, err := lib.Scan(context.Background())
	require.NoError(t, err)

	ids := func(list []Summary) []int64 {
		out := []int64{}
		for _, s := range list {
			out = append(out, s.ID)
		}
		return out
	}

	assert.Equal(t, []int64{3, 4}, ids(lib.Shows(Filter{Query: "  LOST "})))
	assert.Equal(t, []int64{3}, ids(lib.Shows(Filter{Genre: "mystery"})))
	assert.Equal(t, []int64{1, 3, 4}, ids(lib.Shows(Filter{PersonID: 500})))
	assert.Equal(t, []int64{4}, ids(lib.Shows(Filter{Query: "lost", Genre: "Fantasy"})))
	assert.Empty(t, lib.Shows(Filter{Query: "nothing"}))
	assert.Empty(t, lib.Shows(Filter{PersonID: 1}))
}

func TestLibraryGenres(t *testing.T) {
	lib, root := newTestLibrary(t, nil)
	writeShowNFO(t, root, "a", 1, "A", "Drama", "Crime")
	writeShowNFO(t, root, "b", 2, "B", "drama")
	_, err := lib.Scan(context.Background())
	require.NoError(t, err)

	genres := lib.Genres()
	require.Len(t, genres, 2)
	assert.Equal(t, "Crime", genres[0].Genre)
	assert.Equal(t, 1, genres[0].Count)
	assert.Equal(t, 2, genres[1].Count)
}

func TestLibraryLocalPoster(t *testing.T) {
	lib, root := newTestLibrary(t, nil)
	writeShowNFO(t, root, "Lost", 3, "Lost")
	write(t, filepath.Join(root, "Lost", "poster.jpg"), "jpeg")

	_, err := lib.Scan(context.Background())
	require.NoError(t, err)

	show, ok := lib.Lookup(3)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "Lost", "poster.jpg"), show.PosterPath)
	require.NotNil(t, show.Image)
	assert.Equal(t, "/shows/3/poster", show.Image.Original)
}

func TestLibraryLookupMissing(t *testing.T) {
	lib, _ := newTestLibrary(t, nil)
	show, ok := lib.Lookup(12345)
	assert.False(t, ok)
	assert.Nil(t, show)
}

func TestLibraryScanSyncsStore(t *testing.T) {
	store := newMemoryStore()
	lib, root := newTestLibrary(t, store)
	writeShowNFO(t, root, "Lost", 3, "Lost")
	alias := writeShowNFO(t, root, "Alias", 1, "Alias")

	res, err := lib.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Saved)
	assert.Len(t, store.shows, 2)

	require.NoError(t, os.RemoveAll(filepath.Dir(alias)))
	res, err = lib.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, 0, res.Saved)
	assert.Len(t, store.shows, 1)

	require.Len(t, store.runs, 2)
	assert.Equal(t, "finished", store.runs[1].Status)
	assert.Equal(t, 1, store.runs[1].Found)
}

func TestLibraryLookupServesLoadedShows(t *testing.T) {
	store := newMemoryStore()
	require.NoError(t, store.SaveShows([]Show{{ID: 7, Name: "Stored"}}))
	lib, _ := newTestLibrary(t, store)

	assert.Equal(t, []Summary{{ID: 7, Name: "Stored"}}, lib.Shows(Filter{}))

	for i := 0; i < 3; i++ {
		show, ok := lib.Lookup(7)
		require.True(t, ok)
		assert.Equal(t, "Stored", show.Name)
	}
	assert.Zero(t, store.getCalls, "loaded shows never hit the store")
}

func TestLibraryLookupFallsBackToStore(t *testing.T) {
	store := newMemoryStore()
	lib, _ := newTestLibrary(t, store)
	require.NoError(t, store.SaveShows([]Show{{ID: 8, Name: "Late"}}))

	show, ok := lib.Lookup(8)
	require.True(t, ok)
	assert.Equal(t, "Late", show.Name)
	assert.Equal(t, 1, store.getCalls)

	store.failGet = errors.New("disk gone")
	show, ok = lib.Lookup(8)
	assert.False(t, ok)
	assert.Nil(t, show)
}

func TestLibraryLookupIgnoresStoreErrorForScannedShows(t *testing.T) {
	store := newMemoryStore()
	lib, root := newTestLibrary(t, store)
	writeShowNFO(t, root, "Lost", 3, "Lost")
	_, err := lib.Scan(context.Background())
	require.NoError(t, err)

	store.failGet = errors.New("disk gone")
	show, ok := lib.Lookup(3)
	require.True(t, ok)
	assert.Equal(t, "Lost", show.Name)
}

// touch moves the mtime of path forward so the next scan sees a change.
func touch(t *testing.T, path string) {
	t.Helper()
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
}

func TestLibraryScanRetriesFailedSave(t *testing.T) {
	store := newMemoryStore()
	store.failSave = errors.New("constraint failed")
	lib, root := newTestLibrary(t, store)
	writeShowNFO(t, root, "Lost", 3, "Lost")
	writeShowNFO(t, root, "Alias", 1, "Alias")

	res, err := lib.Scan(context.Background())
	require.ErrorIs(t, err, store.failSave)
	assert.Equal(t, 2, res.Found)
	assert.Zero(t, res.Saved)
	assert.Empty(t, store.shows)
	assert.Len(t, lib.Shows(Filter{}), 2, "the listing follows the scan even when the save fails")
	require.Len(t, store.runs, 1)
	assert.Equal(t, "failed", store.runs[0].Status)

	store.failSave = nil
	res, err = lib.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Saved)
	assert.Len(t, store.shows, 2)

	res, err = lib.Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Saved, "unchanged shows are not saved twice")
}

func TestLibraryScanRetriesFailedDelete(t *testing.T) {
	store := newMemoryStore()
	lib, root := newTestLibrary(t, store)
	writeShowNFO(t, root, "Lost", 3, "Lost")
	alias := writeShowNFO(t, root, "Alias", 1, "Alias")
	_, err := lib.Scan(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(filepath.Dir(alias)))
	store.failDelete = errors.New("locked")
	res, err := lib.Scan(context.Background())
	require.ErrorIs(t, err, store.failDelete)
	assert.Zero(t, res.Removed)
	assert.Len(t, store.shows, 2)

	store.failDelete = nil
	res, err = lib.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)
	assert.Len(t, store.shows, 1)
}

func TestLibraryLookupAfterFailedSave(t *testing.T) {
	store := newMemoryStore()
	lib, root := newTestLibrary(t, store)
	path := writeShowNFO(t, root, "Lost", 3, "Lost")
	_, err := lib.Scan(context.Background())
	require.NoError(t, err)
	show, ok := lib.Lookup(3)
	require.True(t, ok)
	require.Equal(t, "Lost", show.Name)

	writeShowNFO(t, root, "Lost", 3, "Lost (2004)")
	touch(t, path)
	store.failSave = errors.New("disk full")
	_, err = lib.Scan(context.Background())
	require.Error(t, err)

	assert.Equal(t, "Lost (2004)", lib.Shows(Filter{})[0].Name)
	show, ok = lib.Lookup(3)
	require.True(t, ok)
	assert.Equal(t, "Lost (2004)", show.Name, "detail matches the listing")
	assert.Equal(t, "Lost", store.shows[3].Name)
}

func TestLibraryLookupAfterRescanReadOnly(t *testing.T) {
	store := newMemoryStore()
	require.NoError(t, store.SaveShows([]Show{{ID: 3, Name: "Lost"}}))
	store.readOnly = true
	lib, root := newTestLibrary(t, store)

	show, ok := lib.Lookup(3)
	require.True(t, ok)
	require.Equal(t, "Lost", show.Name)

	writeShowNFO(t, root, "Lost", 3, "Lost (2004)")
	res, err := lib.Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Saved)
	assert.Empty(t, store.runs)

	show, ok = lib.Lookup(3)
	require.True(t, ok)
	assert.Equal(t, "Lost (2004)", show.Name)
	assert.Equal(t, "Lost", store.shows[3].Name)
}

func TestLibraryScanCancelled(t *testing.T) {
	store := newMemoryStore()
	lib, root := newTestLibrary(t, store)
	writeShowNFO(t, root, "Lost", 3, "Lost")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := lib.Scan(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, lib.Shows(Filter{}))
	require.Len(t, store.runs, 1)
	assert.Equal(t, "failed", store.runs[0].Status)
}

func TestShowSummarize(t *testing.T) {
	s := Show{ID: 1, Name: "X", Network: &Network{Name: "HBO"}, Image: &Image{Original: "o"}}
	assert.Equal(t, Summary{ID: 1, Name: "X", Network: "HBO", ImageURL: "o"}, s.Summarize())
	assert.Equal(t, Summary{ID: 2, Name: "Y"}, Show{ID: 2, Name: "Y"}.Summarize())
}
