package pokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeUpstream serves a canned slice of the PokeAPI surface and counts hits
// per path.
type fakeUpstream struct {
	mu   sync.Mutex
	hits map[string]int
}

func (f *fakeUpstream) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeUpstream) {
	t.Helper()
	f := &fakeUpstream{hits: map[string]int{}}

	moves := make([]map[string]interface{}, 0, 30)
	for i := 0; i < 30; i++ {
		moves = append(moves, map[string]interface{}{
			"move": map[string]string{"name": fmt.Sprintf("move-%d", i)},
		})
	}
	pikachu := map[string]interface{}{
		"id":              25,
		"name":            "pikachu",
		"height":          4,
		"weight":          60,
		"base_experience": 112,
		"types":           []map[string]interface{}{{"type": map[string]string{"name": "electric"}}},
		"abilities":       []map[string]interface{}{{"ability": map[string]string{"name": "static"}}},
		"stats": []map[string]interface{}{
			{"base_stat": 35, "stat": map[string]string{"name": "hp"}},
			{"base_stat": 90, "stat": map[string]string{"name": "speed"}},
		},
		"moves": moves,
		"sprites": map[string]string{
			"front_default": "https://img/front.png",
			"back_default":  "https://img/back.png",
		},
	}
	raichu := map[string]interface{}{
		"id": 26, "name": "raichu", "height": 8, "weight": 300,
		"types": []map[string]interface{}{{"type": map[string]string{"name": "electric"}}},
	}

	mux := http.NewServeMux()
	serve := func(path string, payload interface{}) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.hits[r.URL.Path]++
			f.mu.Unlock()
			json.NewEncoder(w).Encode(payload)
		})
	}

	serve("/pokemon/pikachu", pikachu)
	serve("/pokemon/25", pikachu)
	serve("/pokemon/raichu", raichu)
	mux.HandleFunc("/pokemon/missingno", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	serve("/pokemon", map[string]interface{}{
		"count": 3,
		"results": []map[string]string{
			{"name": "pikachu", "url": "/pokemon/25"},
			{"name": "raichu", "url": "/pokemon/26"},
			{"name": "mew", "url": "/pokemon/151"},
		},
	})
	serve("/pokemon-species/pikachu", map[string]interface{}{
		"evolution_chain": map[string]string{"url": "https://pokeapi.co/api/v2/evolution-chain/10/"},
		"flavor_text_entries": []map[string]interface{}{
			{"flavor_text": "Wenn es\nblitzt", "language": map[string]string{"name": "de"}},
			{"flavor_text": "When it\nsmells\fdanger", "language": map[string]string{"name": "en"}},
			{"flavor_text": "second english", "language": map[string]string{"name": "en"}},
		},
	})
	serve("/evolution-chain/10", map[string]interface{}{
		"chain": map[string]interface{}{
			"species": map[string]string{"name": "pichu"},
			"evolves_to": []map[string]interface{}{
				{
					"species": map[string]string{"name": "pikachu"},
					"evolves_to": []map[string]interface{}{
						{"species": map[string]string{"name": "raichu"}},
					},
				},
			},
		},
	})
	serve("/type", map[string]interface{}{
		"results": []map[string]string{{"name": "electric"}, {"name": "water"}},
	})
	serve("/type/electric", map[string]interface{}{
		"pokemon": []map[string]interface{}{
			{"pokemon": map[string]string{"name": "pikachu"}},
			{"pokemon": map[string]string{"name": "raichu"}},
		},
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, f
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *fakeUpstream) {
	t.Helper()
	server, f := newTestServer(t)
	return New(server.URL, 5*time.Second, zap.NewNop(), opts...), f
}

func TestGetPokemonByNameNormalizesUnits(t *testing.T) {
	client, _ := newTestClient(t)

	data, ok := client.GetPokemonByName(context.Background(), "Pikachu")
	require.True(t, ok)

	assert.Equal(t, 25, data.ID)
	assert.Equal(t, "pikachu", data.Name)
	assert.InDelta(t, 0.4, data.Height, 1e-9)
	assert.InDelta(t, 6.0, data.Weight, 1e-9)
	assert.Equal(t, []string{"electric"}, data.Types)
	assert.Equal(t, 35, data.Stats["hp"])
	assert.Equal(t, "https://img/front.png", data.Sprites["front_default"])
}

func TestGetPokemonByNameCapsMoves(t *testing.T) {
	client, _ := newTestClient(t)

	data, ok := client.GetPokemonByName(context.Background(), "pikachu")
	require.True(t, ok)
	assert.Len(t, data.Moves, maxMoves)
	assert.Equal(t, "move-0", data.Moves[0])
}

func TestGetPokemonByNameNotFound(t *testing.T) {
	client, _ := newTestClient(t)

	_, ok := client.GetPokemonByName(context.Background(), "missingno")
	assert.False(t, ok)
}

func TestGetPokemonByNameIdempotent(t *testing.T) {
	client, _ := newTestClient(t)

	first, ok := client.GetPokemonByName(context.Background(), "pikachu")
	require.True(t, ok)
	second, ok := client.GetPokemonByName(context.Background(), "pikachu")
	require.True(t, ok)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGetPokemonByID(t *testing.T) {
	client, _ := newTestClient(t)

	data, ok := client.GetPokemonByID(context.Background(), 25)
	require.True(t, ok)
	assert.Equal(t, "pikachu", data.Name)
}

func TestGetPokemonDescriptionFirstEnglish(t *testing.T) {
	client, _ := newTestClient(t)

	desc, ok := client.GetPokemonDescription(context.Background(), "pikachu")
	require.True(t, ok)
	assert.Equal(t, "When it smells danger", desc)
}

func TestGetEvolutionChainDepthFirst(t *testing.T) {
	client, _ := newTestClient(t)

	names := client.GetEvolutionChain(context.Background(), "pikachu")
	assert.Equal(t, []string{"pichu", "pikachu", "raichu"}, names)
}

func TestGetAllTypes(t *testing.T) {
	client, _ := newTestClient(t)

	assert.Equal(t, []string{"electric", "water"},
		client.GetAllTypes(context.Background()))
}

func TestGetPokemonByTypeHydratesMembers(t *testing.T) {
	client, _ := newTestClient(t)

	members := client.GetPokemonByType(context.Background(), "electric")
	require.Len(t, members, 2)
	assert.Equal(t, "pikachu", members[0].Name)
	assert.Equal(t, "raichu", members[1].Name)
}

func TestSearchPokemonSubstringMatch(t *testing.T) {
	client, _ := newTestClient(t)

	out := client.SearchPokemon(context.Background(), "CHU")
	require.Len(t, out, 2)
	assert.Equal(t, "pikachu", out[0].Name)
	assert.Equal(t, "raichu", out[1].Name)
}

func TestListPokemon(t *testing.T) {
	client, _ := newTestClient(t)

	page, ok := client.ListPokemon(context.Background(), 3, 0)
	require.True(t, ok)
	assert.EqualValues(t, 3, page["count"])
}

func TestUnreachableUpstreamDegradesToNotFound(t *testing.T) {
	client := New("http://127.0.0.1:1", 200*time.Millisecond, zap.NewNop())

	_, ok := client.GetPokemonByName(context.Background(), "pikachu")
	assert.False(t, ok)
	assert.Nil(t, client.GetAllTypes(context.Background()))
}

func TestRedisCacheReadThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := NewRedisCache(mr.Addr(), "", time.Minute, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	server, upstream := newTestServer(t)
	client := New(server.URL, 5*time.Second, zap.NewNop(), WithCache(cache))

	first, ok := client.GetPokemonByName(context.Background(), "pikachu")
	require.True(t, ok)
	second, ok := client.GetPokemonByName(context.Background(), "pikachu")
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, upstream.count("/pokemon/pikachu"))
	assert.True(t, mr.Exists("pokedex:pokemon:pikachu"))
}
