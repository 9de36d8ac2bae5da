package catalog

import (
	"strings"
	"time"
)

// Show is the full display model of a TV show.
type Show struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	OfficialSite string       `json:"officialSite,omitempty"`
	Summary      string       `json:"summary,omitempty"` // HTML fragment
	Premiered    string       `json:"premiered,omitempty"`
	Rating       *float64     `json:"rating,omitempty"`
	Genres       []string     `json:"genres,omitempty"`
	Network      *Network     `json:"network,omitempty"`
	Image        *Image       `json:"image,omitempty"`
	Cast         []CastMember `json:"cast,omitempty"`

	SourcePath string    `json:"-"`
	PosterPath string    `json:"-"`
	Modified   time.Time `json:"-"`
}

type Network struct {
	Name string `json:"name"`
}

type Image struct {
	Medium   string `json:"medium,omitempty"`
	Original string `json:"original,omitempty"`
}

type CastMember struct {
	Person    Person    `json:"person"`
	Character Character `json:"character"`
}

type Person struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Character struct {
	Name string `json:"name"`
}

// Summary is the lightweight list entry for a show.
type Summary struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Premiered string `json:"premiered,omitempty"`
	Network   string `json:"network,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

func (s Summary) ShowID() int64 { return s.ID }

// Summarize projects a show onto its list entry.
func (s Show) Summarize() Summary {
	sum := Summary{
		ID:        s.ID,
		Name:      s.Name,
		Premiered: s.Premiered,
	}
	if s.Network != nil {
		sum.Network = s.Network.Name
	}
	if s.Image != nil {
		sum.ImageURL = s.Image.Medium
		if sum.ImageURL == "" {
			sum.ImageURL = s.Image.Original
		}
	}
	return sum
}

// HasGenre reports whether the show is tagged with genre, ignoring case.
func (s Show) HasGenre(genre string) bool {
	for _, g := range s.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// Features reports whether the person appears in the cast.
func (s Show) Features(personID int64) bool {
	for _, m := range s.Cast {
		if m.Person.ID == personID {
			return true
		}
	}
	return false
}

// Filter selects shows from the library. The zero Filter matches everything.
type Filter struct {
	Query    string
	Genre    string
	PersonID int64
}

func (f Filter) matches(s Show) bool {
	if q := strings.TrimSpace(f.Query); q != "" {
		if !strings.Contains(strings.ToLower(s.Name), strings.ToLower(q)) {
			return false
		}
	}
	if f.Genre != "" && !s.HasGenre(f.Genre) {
		return false
	}
	if f.PersonID != 0 && !s.Features(f.PersonID) {
		return false
	}
	return true
}

type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

type ScanResult struct {
	Found    int           `json:"found"`
	Saved    int           `json:"saved"`
	Removed  int           `json:"removed"`
	Duration time.Duration `json:"duration"`
}

// LibraryRoot is a directory registered with the store.
type LibraryRoot struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"createdAt"`
}

type ScanRun struct {
	ID         string    `json:"id"`
	RootID     string    `json:"rootId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Status     string    `json:"status"`
	Found      int       `json:"found"`
	Error      string    `json:"error,omitempty"`
}
