package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const samplePage = `<html>
<head>
<title>Pikachu</title>
<script>var tracking = "ignore me";</script>
<style>.hidden { display: none; }</style>
</head>
<body>
<h1>Pikachu</h1>
<p>Pikachu can evolve into Raichu when exposed to a Thunder Stone.
It is often found on Route 2 near the forest entrance.
Pikachu stores electricity in its cheeks!</p>
</body>
</html>`

// testSearcher points every configured site at the same test server.
func testSearcher(t *testing.T, handler http.Handler, maxResults int) (*Searcher, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s := New(5*time.Second, true, maxResults, zap.NewNop())
	s.sites = []site{
		{name: "SiteA", urlFor: func(q string) string { return server.URL + "/a" }},
		{name: "SiteB", urlFor: func(q string) string { return server.URL + "/b" }},
		{name: "SiteC", urlFor: func(q string) string { return server.URL + "/c" }},
	}
	return s, server
}

func pageHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePage))
	})
}

func TestDisabledSearcherReturnsNothing(t *testing.T) {
	s := New(time.Second, false, 5, zap.NewNop())
	assert.Nil(t, s.SearchPokemonInfo(context.Background(), "pikachu"))
	assert.Nil(t, s.SearchTrainingTips(context.Background(), "pikachu"))
}

func TestSearchPokemonInfoCollectsSnippets(t *testing.T) {
	s, server := testSearcher(t, pageHandler(), 5)

	results := s.SearchPokemonInfo(context.Background(), "pikachu")
	require.Len(t, results, 3)

	assert.Equal(t, "SiteA", results[0].Source)
	assert.Equal(t, server.URL+"/a", results[0].URL)
	assert.Contains(t, results[0].Content, "Thunder Stone")
	assert.NotContains(t, results[0].Content, "ignore me")
	assert.NotContains(t, results[0].Content, "display: none")
}

func TestSearchPokemonInfoHonorsMaxResults(t *testing.T) {
	s, _ := testSearcher(t, pageHandler(), 2)

	results := s.SearchPokemonInfo(context.Background(), "pikachu")
	assert.Len(t, results, 2)
}

func TestFailingSiteIsIsolated(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePage))
	})

	s, _ := testSearcher(t, mux, 5)
	results := s.SearchPokemonInfo(context.Background(), "pikachu")
	require.Len(t, results, 2)
	assert.Equal(t, "SiteB", results[0].Source)
}

func TestContentLengthCapped(t *testing.T) {
	long := "<html><body><p>" + strings.Repeat("word ", 600) + "</p></body></html>"
	s, _ := testSearcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(long))
	}), 1)

	results := s.SearchPokemonInfo(context.Background(), "pikachu")
	require.Len(t, results, 1)
	assert.LessOrEqual(t, len(results[0].Content), maxContentLength)
}

func TestSearchTrainingTipsExtractsKeywordSentences(t *testing.T) {
	s, _ := testSearcher(t, pageHandler(), 5)

	tips := s.SearchTrainingTips(context.Background(), "pikachu")
	require.NotEmpty(t, tips)
	assert.Contains(t, tips[0], "evolve")
}

func TestSearchLocationInfoExtractsKeywordSentences(t *testing.T) {
	s, _ := testSearcher(t, pageHandler(), 5)

	locations := s.SearchLocationInfo(context.Background(), "pikachu")
	require.NotEmpty(t, locations)
	assert.Contains(t, locations[0], "Route 2")
}

func TestExtractTextSkipsScriptAndStyle(t *testing.T) {
	text := extractText(strings.NewReader(samplePage))
	assert.Contains(t, text, "Pikachu stores electricity")
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "hidden")
}

func TestExtractSentencesBounds(t *testing.T) {
	results := []Result{{Content: "Short move. " +
		"This sentence mentions a move and sits inside the length bounds. " +
		strings.Repeat("x", 300) + " move."}}

	out := extractSentences(results, []string{"move"}, 20, 200, 5)
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "length bounds")
}

func TestDefaultSiteURLs(t *testing.T) {
	s := New(time.Second, true, 5, zap.NewNop())
	require.Len(t, s.sites, 3)
	assert.Equal(t, "https://bulbapedia.bulbagarden.net/wiki/Mr._mime", s.sites[0].urlFor("Mr. Mime"))
	assert.Equal(t, "https://www.serebii.net/pokedex/mrmime.shtml", s.sites[1].urlFor("Mr Mime"))
	assert.Equal(t, "https://pokemondb.net/pokedex/mr-mime", s.sites[2].urlFor("Mr Mime"))
}
