package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const (
	showNFOName      = "tvshow.nfo"
	showJSONName     = "show.json"
	defaultCacheSize = 256
)

// PosterURL is the route serving the local poster of a show.
func PosterURL(id int64) string {
	return fmt.Sprintf("/shows/%d/poster", id)
}

type LibraryOptions struct {
	// CacheSize bounds the detail lookup cache. Zero selects a default.
	CacheSize int
	Logger    *zap.Logger
}

// Library holds the shows found below a root directory. The in-memory
// snapshot of the last scan is authoritative for both listing and lookups;
// the store only backs ids the snapshot does not know.
type Library struct {
	root    string
	rootID  string
	store   Store
	logger  *zap.Logger
	details *lru.Cache[int64, *Show]

	scanMu sync.Mutex
	// stored mirrors what the store is known to hold. Guarded by scanMu.
	stored map[int64]Show

	mu       sync.RWMutex
	shows    map[int64]Show
	lastScan time.Time
}

func NewLibrary(root string, store Store, opts LibraryOptions) (*Library, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	details, err := lru.New[int64, *Show](size)
	if err != nil {
		return nil, fmt.Errorf("catalog: detail cache: %w", err)
	}

	shows := map[int64]Show{}
	stored := map[int64]Show{}
	var rootID string
	if store != nil && !storeReadOnly(store) {
		rootEntry, err := store.AddRoot(root)
		if err != nil {
			return nil, err
		}
		rootID = rootEntry.ID
	}
	if store != nil {
		all, err := store.GetAll()
		if err != nil {
			return nil, err
		}
		for _, show := range all {
			shows[show.ID] = show
			stored[show.ID] = show
		}
	}

	return &Library{
		root:    root,
		rootID:  rootID,
		store:   store,
		logger:  logger,
		details: details,
		stored:  stored,
		shows:   shows,
	}, nil
}

func (l *Library) Root() string { return l.root }

func (l *Library) LastScan() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastScan
}

// Scan walks the root for show metadata and syncs the result to the store.
// Files that fail to parse are logged and skipped; other failures are joined
// into the returned error.
func (l *Library) Scan(ctx context.Context) (ScanResult, error) {
	l.scanMu.Lock()
	defer l.scanMu.Unlock()

	start := time.Now()
	var result ScanResult
	var scanErrs []error
	var scanRunID string
	if l.store != nil && l.rootID != "" {
		run, err := l.store.StartScanRun(l.rootID, start)
		if err != nil {
			scanErrs = append(scanErrs, err)
		} else {
			scanRunID = run.ID
		}
	}

	found, err := l.collect(ctx)
	if err != nil {
		scanErrs = append(scanErrs, err)
	}

	if ctx.Err() == nil {
		result.Found = len(found)
		if l.store != nil && !storeReadOnly(l.store) {
			removed, saved, err := l.sync(found)
			if err != nil {
				scanErrs = append(scanErrs, err)
			}
			result.Removed = removed
			result.Saved = saved
		}

		l.mu.Lock()
		l.shows = found
		l.lastScan = time.Now()
		// purged under the write lock so no lookup can re-cache the old snapshot
		l.details.Purge()
		l.mu.Unlock()
	}

	scanErr := errors.Join(scanErrs...)
	if scanRunID != "" {
		finishedAt := time.Now()
		if scanErr != nil {
			if err := l.store.FailScanRun(scanRunID, finishedAt, scanErr.Error()); err != nil {
				scanErr = errors.Join(scanErr, err)
			}
		} else if err := l.store.FinishScanRun(scanRunID, finishedAt, result.Found); err != nil {
			scanErr = err
		}
	}

	result.Duration = time.Since(start)
	l.logger.Info("library scan finished",
		zap.String("root", l.root),
		zap.Int("found", result.Found),
		zap.Int("saved", result.Saved),
		zap.Int("removed", result.Removed),
		zap.Duration("duration", result.Duration),
		zap.Error(scanErr),
	)
	return result, scanErr
}

// sync writes the difference between found and the store. l.stored only
// advances for writes that succeeded, so failed ones are retried next scan.
func (l *Library) sync(found map[int64]Show) (removed, saved int, err error) {
	var errs []error
	if ids := removedIDs(l.stored, found); len(ids) > 0 {
		if err := l.store.DeleteShows(ids); err != nil {
			errs = append(errs, err)
		} else {
			for _, id := range ids {
				delete(l.stored, id)
			}
			removed = len(ids)
		}
	}
	if changed := diffShows(found, l.stored); len(changed) > 0 {
		if err := l.store.SaveShows(changed); err != nil {
			errs = append(errs, err)
		} else {
			for _, show := range changed {
				l.stored[show.ID] = show
			}
			saved = len(changed)
		}
	}
	return removed, saved, errors.Join(errs...)
}

// collect finds one metadata file per directory, preferring show.json over
// tvshow.nfo, and parses them in path order.
func (l *Library) collect(ctx context.Context) (map[int64]Show, error) {
	sources := map[string]string{}
	var walkErrs []error

	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			walkErrs = append(walkErrs, err)
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			return nil
		}

		dir := filepath.Dir(path)
		switch strings.ToLower(d.Name()) {
		case showJSONName:
			sources[dir] = path
		case showNFOName:
			if _, ok := sources[dir]; !ok {
				sources[dir] = path
			}
		}
		return nil
	})
	if err != nil {
		walkErrs = append(walkErrs, err)
	}

	dirs := make([]string, 0, len(sources))
	for dir := range sources {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	found := make(map[int64]Show, len(dirs))
	for _, dir := range dirs {
		path := sources[dir]
		show, err := loadShow(path)
		if err != nil {
			l.logger.Warn("show metadata parse failed", zap.String("path", path), zap.Error(err))
			continue
		}
		if prev, dup := found[show.ID]; dup {
			l.logger.Warn("duplicate show id",
				zap.Int64("id", show.ID),
				zap.String("path", path),
				zap.String("kept", prev.SourcePath),
			)
			continue
		}
		found[show.ID] = *show
	}

	return found, errors.Join(walkErrs...)
}

func loadShow(path string) (*Show, error) {
	var (
		show *Show
		err  error
	)
	if strings.EqualFold(filepath.Base(path), showJSONName) {
		show, err = ParseShowJSON(path)
	} else {
		show, err = ParseShowNFO(path)
	}
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)

	show.SourcePath = path
	show.Modified = info.ModTime()
	if show.Name == "" {
		show.Name = filepath.Base(dir)
	}
	if poster, ok := FindPoster(dir); ok {
		show.PosterPath = poster
		if show.Image == nil {
			url := PosterURL(show.ID)
			show.Image = &Image{Medium: url, Original: url}
		}
	}
	return show, nil
}

// Shows returns the summaries matching f, ordered by name then id.
func (l *Library) Shows(f Filter) []Summary {
	l.mu.RLock()
	matched := make([]Show, 0, len(l.shows))
	for _, show := range l.shows {
		if f.matches(show) {
			matched = append(matched, show)
		}
	}
	l.mu.RUnlock()

	sortShows(matched)
	out := make([]Summary, 0, len(matched))
	for _, show := range matched {
		out = append(out, show.Summarize())
	}
	return out
}

// Lookup returns the full model of a show: cache, then the snapshot the
// list is built from, then the store for ids the snapshot lacks. The
// returned value is shared with the cache and must not be modified.
func (l *Library) Lookup(id int64) (*Show, bool) {
	if show, ok := l.details.Get(id); ok {
		return show, true
	}

	l.mu.RLock()
	show, ok := l.shows[id]
	if ok {
		l.details.Add(id, &show)
	}
	l.mu.RUnlock()
	if ok {
		return &show, true
	}

	if l.store == nil {
		return nil, false
	}
	stored, ok, err := l.store.GetShow(id)
	if err != nil {
		l.logger.Warn("show lookup failed", zap.Int64("id", id), zap.Error(err))
		return nil, false
	}
	return stored, ok
}

// Genres counts shows per genre, ordered by genre name.
func (l *Library) Genres() []GenreCount {
	counts := map[string]*GenreCount{}
	l.mu.RLock()
	for _, show := range l.shows {
		for _, genre := range show.Genres {
			key := strings.ToLower(genre)
			gc, ok := counts[key]
			if !ok {
				gc = &GenreCount{Genre: genre}
				counts[key] = gc
			}
			gc.Count++
		}
	}
	l.mu.RUnlock()

	out := make([]GenreCount, 0, len(counts))
	for _, gc := range counts {
		out = append(out, *gc)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Genre) < strings.ToLower(out[j].Genre)
	})
	return out
}

func sortShows(shows []Show) {
	sort.Slice(shows, func(i, j int) bool {
		ni, nj := strings.ToLower(shows[i].Name), strings.ToLower(shows[j].Name)
		if ni != nj {
			return ni < nj
		}
		return shows[i].ID < shows[j].ID
	})
}

func diffShows(found, stored map[int64]Show) []Show {
	out := make([]Show, 0, len(found))
	for id, show := range found {
		prev, ok := stored[id]
		if !ok || !showFileEqual(show, prev) {
			out = append(out, show)
		}
	}
	sortShows(out)
	return out
}

func removedIDs(previous, found map[int64]Show) []int64 {
	if len(previous) == 0 {
		return nil
	}
	out := make([]int64, 0, len(previous))
	for id := range previous {
		if _, ok := found[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func showFileEqual(a, b Show) bool {
	return a.ID == b.ID &&
		a.SourcePath == b.SourcePath &&
		a.PosterPath == b.PosterPath &&
		// the store keeps whole seconds
		a.Modified.Unix() == b.Modified.Unix()
}
