package catalog

import "time"

// Store defines the persistence operations the library relies on.
type Store interface {
	ReadOnly() bool
	AddRoot(path string) (LibraryRoot, error)
	StartScanRun(rootID string, startedAt time.Time) (ScanRun, error)
	FinishScanRun(id string, finishedAt time.Time, found int) error
	FailScanRun(id string, finishedAt time.Time, errMsg string) error
	SaveShows(shows []Show) error
	DeleteShows(ids []int64) error
	GetAll() ([]Show, error)
	GetShow(id int64) (*Show, bool, error)
}

func storeReadOnly(store Store) bool {
	if store == nil {
		return false
	}
	return store.ReadOnly()
}
