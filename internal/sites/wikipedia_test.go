package sites

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gardenshed/seedscout/internal/plant"
)

const tomatoArticle = `<html><body>
<h1 id="firstHeading">Tomato</h1>
<div class="mw-parser-output">
<p>short</p>
<p>The tomato is the edible berry of the plant Solanum lycopersicum, commonly known
as the tomato plant, widely grown across temperate gardens worldwide.</p>
<table class="infobox">
<tr><td><img src="//upload.wikimedia.org/thumb/220px-Tomato.jpg"></td></tr>
<tr><td><img src="//upload.wikimedia.org/wiki-logo.png"></td></tr>
<tr><th>Binomial name</th></tr><tr><td><span class="binomial">Solanum lycopersicum</span></td></tr>
</table>
<div class="mw-heading"><h2>Cultivation</h2></div>
<p>Tomatoes thrive in warm soil with consistent watering and full sun exposure.</p>
<p>Indeterminate varieties need staking.</p>
<div class="mw-heading"><h2>History</h2></div>
<p>Domesticated in Mesoamerica.</p>
</div>
</body></html>`

func TestWikipediaFetchDetail(t *testing.T) {
	w := NewWikipedia(&stubFetcher{pages: map[string]string{
		"https://en.wikipedia.org/wiki/Tomato": tomatoArticle,
	}}, zap.NewNop())

	rec, err := w.FetchDetail(context.Background(), "https://en.wikipedia.org/wiki/Tomato")
	require.NoError(t, err)

	assert.Equal(t, "Tomato", rec.Name)
	assert.Contains(t, rec.Description, "edible berry")
	assert.NotContains(t, rec.Description, "short", "paragraphs under the length floor are skipped")
	assert.Equal(t, "Solanum lycopersicum", rec.Variety)
	require.Len(t, rec.Images, 1, "logo images are skipped")
	assert.Equal(t, "https://upload.wikimedia.org/thumb/400px-Tomato.jpg", rec.Images[0])
	assert.Contains(t, rec.GrowingNotes, "warm soil")
	assert.Contains(t, rec.GrowingNotes, "staking")
	assert.NotContains(t, rec.GrowingNotes, "Mesoamerica", "cultivation section stops at the next heading")
}

func TestWikipediaDisambiguation(t *testing.T) {
	disambig := `<html><body>
<h1 id="firstHeading">Mercury</h1>
<div id="disambigbox">This disambiguation page lists articles.</div>
<div class="mw-parser-output"><p>Mercury may refer to several things in different fields of study.</p></div>
</body></html>`
	w := NewWikipedia(&stubFetcher{pages: map[string]string{
		"https://en.wikipedia.org/wiki/Mercury": disambig,
	}}, zap.NewNop())

	_, err := w.FetchDetail(context.Background(), "https://en.wikipedia.org/wiki/Mercury")
	assert.ErrorIs(t, err, plant.ErrEmptyExtraction, "a disambiguation page returns nothing rather than a wrong match")

	images, err := w.InfoboxImages(context.Background(), "Mercury")
	require.NoError(t, err)
	assert.Empty(t, images)

	// The search path silently skips the page: no hits, no error, so
	// the fan-out never reports the source as failed.
	hits, err := w.Search(context.Background(), "Mercury")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestWikipediaSearch(t *testing.T) {
	w := NewWikipedia(&stubFetcher{pages: map[string]string{
		"https://en.wikipedia.org/wiki/Cherry_Tomato": tomatoArticle,
	}}, zap.NewNop())

	results, err := w.Search(context.Background(), "Cherry Tomato")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Tomato", results[0].Name)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Cherry_Tomato", results[0].URL)
	assert.True(t, strings.HasPrefix(results[0].ImageURL, "https://upload.wikimedia.org/"))
}

func TestWikipediaPageURL(t *testing.T) {
	w := NewWikipedia(&stubFetcher{}, zap.NewNop())
	assert.Equal(t, "https://en.wikipedia.org/wiki/Brandywine_Tomato", w.PageURL("Brandywine Tomato"))
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short untouched", "tomate cerise", 500, "tomate cerise"},
		{"cut on ascii", "abcdef", 4, "abcd"},
		{"cut inside rune backs up", strings.Repeat("a", 499) + "é", 500, strings.Repeat("a", 499)},
		{"cut between runes", "ééé", 4, "éé"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
