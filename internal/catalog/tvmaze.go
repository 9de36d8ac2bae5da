package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type tvmazeShow struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Genres       []string `json:"genres"`
	Premiered    string   `json:"premiered"`
	OfficialSite string   `json:"officialSite"`
	Summary      string   `json:"summary"`
	Rating       struct {
		Average *float64 `json:"average"`
	} `json:"rating"`
	Network *struct {
		Name string `json:"name"`
	} `json:"network"`
	WebChannel *struct {
		Name string `json:"name"`
	} `json:"webChannel"`
	Image *struct {
		Medium   string `json:"medium"`
		Original string `json:"original"`
	} `json:"image"`
	Embedded struct {
		Cast []struct {
			Person struct {
				ID   int64  `json:"id"`
				Name string `json:"name"`
			} `json:"person"`
			Character struct {
				Name string `json:"name"`
			} `json:"character"`
		} `json:"cast"`
	} `json:"_embedded"`
}

// ParseShowJSON reads a TVmaze show payload, optionally carrying
// _embedded.cast as returned by /shows/{id}?embed=cast.
func ParseShowJSON(path string) (*Show, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var t tvmazeShow
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", path, err)
	}
	if t.ID <= 0 {
		return nil, fmt.Errorf("catalog: %s: missing show id", path)
	}

	show := &Show{
		ID:           t.ID,
		Name:         strings.TrimSpace(t.Name),
		OfficialSite: strings.TrimSpace(t.OfficialSite),
		Summary:      strings.TrimSpace(t.Summary),
		Premiered:    strings.TrimSpace(t.Premiered),
		Genres:       trimAll(t.Genres),
	}
	if r := t.Rating.Average; r != nil && validRating(*r) {
		show.Rating = r
	}

	switch {
	case t.Network != nil && strings.TrimSpace(t.Network.Name) != "":
		show.Network = &Network{Name: strings.TrimSpace(t.Network.Name)}
	case t.WebChannel != nil && strings.TrimSpace(t.WebChannel.Name) != "":
		show.Network = &Network{Name: strings.TrimSpace(t.WebChannel.Name)}
	}

	if t.Image != nil && (t.Image.Medium != "" || t.Image.Original != "") {
		show.Image = &Image{Medium: t.Image.Medium, Original: t.Image.Original}
		if show.Image.Original == "" {
			show.Image.Original = show.Image.Medium
		}
		if show.Image.Medium == "" {
			show.Image.Medium = show.Image.Original
		}
	}

	for _, c := range t.Embedded.Cast {
		name := strings.TrimSpace(c.Person.Name)
		if name == "" {
			continue
		}
		id := c.Person.ID
		if id <= 0 {
			id = stableID("person:" + strings.ToLower(name))
		}
		show.Cast = append(show.Cast, CastMember{
			Person:    Person{ID: id, Name: name},
			Character: Character{Name: strings.TrimSpace(c.Character.Name)},
		})
	}

	return show, nil
}
