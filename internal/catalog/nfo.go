package catalog

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/xml"
	"errors"
	"html"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrNotShow is returned for metadata files that do not describe a show.
var ErrNotShow = errors.New("catalog: not a tvshow document")

type nfoUniqueID struct {
	Type    string `xml:"type,attr"`
	Default string `xml:"default,attr"`
	Value   string `xml:",chardata"`
}

type nfoThumb struct {
	Aspect  string `xml:"aspect,attr"`
	Preview string `xml:"preview,attr"`
	URL     string `xml:",chardata"`
}

type nfoRating struct {
	Name    string `xml:"name,attr"`
	Default string `xml:"default,attr"`
	Value   string `xml:"value"`
}

type nfoActor struct {
	Name   string `xml:"name"`
	Role   string `xml:"role"`
	Order  string `xml:"order"`
	TMDBID string `xml:"tmdbid"`
}

type nfoShow struct {
	XMLName   xml.Name      `xml:"tvshow"`
	Title     string        `xml:"title"`
	Plot      string        `xml:"plot"`
	Genre     []string      `xml:"genre"`
	Studio    []string      `xml:"studio"`
	Premiered string        `xml:"premiered"`
	Rating    string        `xml:"rating"`
	Ratings   []nfoRating   `xml:"ratings>rating"`
	ID        string        `xml:"id"`
	UniqueIDs []nfoUniqueID `xml:"uniqueid"`
	Thumbs    []nfoThumb    `xml:"thumb"`
	Website   string        `xml:"website"`
	Actors    []nfoActor    `xml:"actor"`
}

// ParseShowNFO reads a Kodi tvshow.nfo file.
func ParseShowNFO(path string) (*Show, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if root := detectRootName(b); root != "tvshow" {
		return nil, ErrNotShow
	}

	var t nfoShow
	if err := xml.Unmarshal(b, &t); err != nil {
		return nil, err
	}

	show := &Show{
		ID:           nfoShowID(t, path),
		Name:         strings.TrimSpace(t.Title),
		OfficialSite: strings.TrimSpace(t.Website),
		Summary:      plotToHTML(t.Plot),
		Premiered:    strings.TrimSpace(t.Premiered),
		Rating:       nfoShowRating(t),
		Genres:       trimAll(t.Genre),
		Image:        nfoShowImage(t.Thumbs),
		Cast:         nfoShowCast(t.Actors),
	}
	if studios := trimAll(t.Studio); len(studios) > 0 {
		show.Network = &Network{Name: studios[0]}
	}
	return show, nil
}

func nfoShowID(t nfoShow, path string) int64 {
	var fallback string
	for _, u := range t.UniqueIDs {
		if strings.EqualFold(strings.TrimSpace(u.Type), "tvmaze") {
			if id, ok := parsePositiveID(u.Value); ok {
				return id
			}
		}
		if fallback == "" && strings.EqualFold(u.Default, "true") {
			fallback = u.Value
		}
	}
	if id, ok := parsePositiveID(fallback); ok {
		return id
	}
	if id, ok := parsePositiveID(t.ID); ok {
		return id
	}
	return stableID(path)
}

func nfoShowRating(t nfoShow) *float64 {
	values := []string{t.Rating}
	for _, r := range t.Ratings {
		if strings.EqualFold(r.Default, "true") {
			values = append([]string{r.Value}, values...)
		} else {
			values = append(values, r.Value)
		}
	}
	for _, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil && validRating(f) {
			return &f
		}
	}
	return nil
}

// validRating reports whether r fits the 0-10 scale the store accepts.
func validRating(r float64) bool {
	return r >= 0 && r <= 10
}

func nfoShowImage(thumbs []nfoThumb) *Image {
	var pick *nfoThumb
	for i := range thumbs {
		if strings.TrimSpace(thumbs[i].URL) == "" {
			continue
		}
		if pick == nil || (thumbs[i].Aspect == "poster" && pick.Aspect != "poster") {
			pick = &thumbs[i]
		}
	}
	if pick == nil {
		return nil
	}
	img := &Image{
		Original: strings.TrimSpace(pick.URL),
		Medium:   strings.TrimSpace(pick.Preview),
	}
	if img.Medium == "" {
		img.Medium = img.Original
	}
	return img
}

func nfoShowCast(actors []nfoActor) []CastMember {
	type ordered struct {
		member CastMember
		order  int
	}
	list := make([]ordered, 0, len(actors))
	for i, a := range actors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		id, ok := parsePositiveID(a.TMDBID)
		if !ok {
			id = stableID("person:" + strings.ToLower(name))
		}
		order, err := strconv.Atoi(strings.TrimSpace(a.Order))
		if err != nil {
			order = i
		}
		list = append(list, ordered{
			member: CastMember{
				Person:    Person{ID: id, Name: name},
				Character: Character{Name: strings.TrimSpace(a.Role)},
			},
			order: order,
		})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].order < list[j].order })

	if len(list) == 0 {
		return nil
	}
	out := make([]CastMember, 0, len(list))
	for _, o := range list {
		out = append(out, o.member)
	}
	return out
}

func plotToHTML(plot string) string {
	plot = strings.TrimSpace(plot)
	if plot == "" {
		return ""
	}
	var b strings.Builder
	for _, para := range strings.Split(plot, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(para))
		b.WriteString("</p>")
	}
	return b.String()
}

func detectRootName(b []byte) string {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, "<?xml") {
		if i := strings.Index(s, "?>"); i >= 0 {
			s = strings.TrimSpace(s[i+2:])
		}
	}
	if !strings.HasPrefix(s, "<") {
		return ""
	}
	s = s[1:]
	end := strings.IndexAny(s, " />\n\r\t")
	if end <= 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s[:end]))
}

func parsePositiveID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// stableID derives an id from s. Hashed ids live in [1<<51, 1<<52) so they
// stay below 2^53 and never collide with small upstream ids.
func stableID(s string) int64 {
	h := sha1.Sum([]byte(s))
	return int64(binary.BigEndian.Uint64(h[:8])>>13) | 1<<51
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
