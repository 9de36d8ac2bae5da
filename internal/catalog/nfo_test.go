package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const breakingBadNFO = `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>
<tvshow>
  <title>Breaking Bad</title>
  <plot>A chemistry teacher turns to crime &amp; more.

Second paragraph.</plot>
  <genre>Drama</genre>
  <genre> Crime </genre>
  <genre></genre>
  <studio>AMC</studio>
  <premiered>2008-01-20</premiered>
  <ratings>
    <rating name="imdb"><value>9.5</value></rating>
    <rating name="tvmaze" default="true"><value>9.2</value></rating>
  </ratings>
  <uniqueid type="tmdb">1396</uniqueid>
  <uniqueid type="tvmaze" default="true">169</uniqueid>
  <thumb aspect="banner">http://img/banner.jpg</thumb>
  <thumb aspect="poster" preview="http://img/poster-small.jpg">http://img/poster.jpg</thumb>
  <website>http://www.amc.com/shows/breaking-bad</website>
  <actor><name>Aaron Paul</name><role>Jesse Pinkman</role><order>1</order></actor>
  <actor><name>Bryan Cranston</name><role>Walter White</role><order>0</order><tmdbid>17419</tmdbid></actor>
  <actor><name> </name><role>Nobody</role></actor>
</tvshow>`

func TestParseShowNFO(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Breaking Bad", "tvshow.nfo")
	write(t, path, breakingBadNFO)

	got, err := ParseShowNFO(path)
	require.NoError(t, err)

	rating := 9.2
	want := &Show{
		ID:           169,
		Name:         "Breaking Bad",
		OfficialSite: "http://www.amc.com/shows/breaking-bad",
		Summary:      "<p>A chemistry teacher turns to crime &amp; more.</p><p>Second paragraph.</p>",
		Premiered:    "2008-01-20",
		Rating:       &rating,
		Genres:       []string{"Drama", "Crime"},
		Network:      &Network{Name: "AMC"},
		Image:        &Image{Medium: "http://img/poster-small.jpg", Original: "http://img/poster.jpg"},
		Cast: []CastMember{
			{Person: Person{ID: 17419, Name: "Bryan Cranston"}, Character: Character{Name: "Walter White"}},
			{Person: Person{ID: stableID("person:aaron paul"), Name: "Aaron Paul"}, Character: Character{Name: "Jesse Pinkman"}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ParseShowNFO() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseShowNFOFallbackID(t *testing.T) {
	dir := t.TempDir()

	withID := filepath.Join(dir, "a", "tvshow.nfo")
	write(t, withID, `<tvshow><title>A</title><id>42</id></tvshow>`)
	show, err := ParseShowNFO(withID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), show.ID)

	bare := filepath.Join(dir, "b", "tvshow.nfo")
	write(t, bare, `<tvshow><title>B</title></tvshow>`)
	show, err = ParseShowNFO(bare)
	require.NoError(t, err)
	assert.Equal(t, stableID(bare), show.ID)
	assert.GreaterOrEqual(t, show.ID, int64(1)<<51)
	assert.Less(t, show.ID, int64(1)<<52)
	assert.Nil(t, show.Network)
	assert.Nil(t, show.Image)
	assert.Nil(t, show.Cast)
	assert.Empty(t, show.Summary)
}

func TestParseShowNFORejectsOtherRoots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.nfo")
	write(t, path, `<movie><title>M</title></movie>`)

	_, err := ParseShowNFO(path)
	assert.ErrorIs(t, err, ErrNotShow)
}

func TestParseShowNFOMissingFile(t *testing.T) {
	_, err := ParseShowNFO("")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = ParseShowNFO(filepath.Join(t.TempDir(), "nope.nfo"))
	assert.Error(t, err)
}

func TestDetectRootName(t *testing.T) {
	assert.Equal(t, "tvshow", detectRootName([]byte(`<?xml version="1.0"?>`+"\n<tvshow>")))
	assert.Equal(t, "tvshow", detectRootName([]byte(`<TVShow xmlns="x">`)))
	assert.Equal(t, "tvshow", detectRootName([]byte(`<tvshow/>`)))
	assert.Equal(t, "", detectRootName([]byte(`plain text`)))
}

func TestParseShowNFODropsOutOfRangeRating(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tvshow.nfo")
	write(t, path, `<tvshow><title>Odd</title><uniqueid type="tvmaze">7</uniqueid>`+
		`<ratings><rating name="tvmaze" default="true"><value>85</value></rating></ratings></tvshow>`)

	got, err := ParseShowNFO(path)
	require.NoError(t, err)
	assert.Nil(t, got.Rating)
}
