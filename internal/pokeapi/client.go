// Package pokeapi is the data fetch adapter for the PokeAPI upstream.
// Lookups never escape an error: network failures, timeouts and non-200
// responses all degrade to a not-found result with a logged warning. Unit
// conversion (decimeters/hectograms to meters/kilograms) and list caps are
// part of the adapter contract.
package pokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pokedexlab/orchestrator/internal/metrics"
	"github.com/pokedexlab/orchestrator/internal/models"
	"github.com/pokedexlab/orchestrator/internal/ratecontrol"
	"github.com/pokedexlab/orchestrator/internal/tracing"
)

const (
	// maxMoves caps the move list on a single record.
	maxMoves = 20
	// maxTypeMembers caps how many members of a type are hydrated.
	maxTypeMembers = 50
	// searchScanLimit bounds the upstream listing scanned for partial-name
	// search; the API offers no server-side substring search.
	searchScanLimit = 1000
)

// Client fetches structured records from PokeAPI.
type Client struct {
	baseURL string
	http    *http.Client
	cache   Cache
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCache installs a read-through cache for single-record lookups.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the given base URL, e.g.
// "https://pokeapi.co/api/v2".
func New(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upstream JSON shapes, decoded privately and normalized at the boundary.

type namedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type pokemonResponse struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Height         int    `json:"height"`
	Weight         int    `json:"weight"`
	BaseExperience int    `json:"base_experience"`
	Types          []struct {
		Type namedResource `json:"type"`
	} `json:"types"`
	Abilities []struct {
		Ability namedResource `json:"ability"`
	} `json:"abilities"`
	Stats []struct {
		BaseStat int           `json:"base_stat"`
		Stat     namedResource `json:"stat"`
	} `json:"stats"`
	Moves []struct {
		Move namedResource `json:"move"`
	} `json:"moves"`
	Sprites struct {
		FrontDefault string `json:"front_default"`
		BackDefault  string `json:"back_default"`
		FrontShiny   string `json:"front_shiny"`
		BackShiny    string `json:"back_shiny"`
	} `json:"sprites"`
}

type listResponse struct {
	Results []namedResource `json:"results"`
}

type typeResponse struct {
	Pokemon []struct {
		Pokemon namedResource `json:"pokemon"`
	} `json:"pokemon"`
}

type speciesResponse struct {
	EvolutionChain struct {
		URL string `json:"url"`
	} `json:"evolution_chain"`
	FlavorTextEntries []struct {
		FlavorText string        `json:"flavor_text"`
		Language   namedResource `json:"language"`
	} `json:"flavor_text_entries"`
}

type chainLink struct {
	Species   namedResource `json:"species"`
	EvolvesTo []chainLink   `json:"evolves_to"`
}

type evolutionChainResponse struct {
	Chain chainLink `json:"chain"`
}

// getJSON fetches one endpoint into out. Returns false on any failure.
func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) bool {
	if err := ratecontrol.Wait(ctx, ratecontrol.UpstreamPokeAPI); err != nil {
		c.logger.Warn("pokeapi rate limit wait aborted", zap.Error(err))
		return false
	}

	url := c.baseURL + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.logger.Warn("pokeapi request build failed", zap.String("url", url), zap.Error(err))
		return false
	}
	tracing.InjectTraceparent(ctx, req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("pokeapi request failed", zap.String("url", url), zap.Error(err))
		metrics.FetchRequests.WithLabelValues(ratecontrol.UpstreamPokeAPI, "error").Inc()
		return false
	}
	defer resp.Body.Close()
	metrics.FetchDuration.WithLabelValues(ratecontrol.UpstreamPokeAPI).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("pokeapi request returned non-200",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode))
		metrics.FetchRequests.WithLabelValues(ratecontrol.UpstreamPokeAPI, strconv.Itoa(resp.StatusCode)).Inc()
		return false
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Warn("pokeapi response decode failed", zap.String("url", url), zap.Error(err))
		metrics.FetchRequests.WithLabelValues(ratecontrol.UpstreamPokeAPI, "decode_error").Inc()
		return false
	}
	metrics.FetchRequests.WithLabelValues(ratecontrol.UpstreamPokeAPI, "ok").Inc()
	return true
}

// GetPokemonByName returns the normalized record for a Pokémon, or false when
// it does not exist or the upstream is unreachable.
func (c *Client) GetPokemonByName(ctx context.Context, name string) (models.PokemonData, bool) {
	key := "pokemon:" + strings.ToLower(name)
	if c.cache != nil {
		if raw, ok := c.cache.Get(ctx, key); ok {
			var cached models.PokemonData
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, true
			}
		}
	}

	var raw pokemonResponse
	if !c.getJSON(ctx, "pokemon/"+strings.ToLower(name), &raw) {
		return models.PokemonData{}, false
	}

	data := models.PokemonData{
		ID:   raw.ID,
		Name: raw.Name,
		// Upstream reports decimeters and hectograms.
		Height:         float64(raw.Height) / 10.0,
		Weight:         float64(raw.Weight) / 10.0,
		BaseExperience: raw.BaseExperience,
		Stats:          make(map[string]int, len(raw.Stats)),
		Sprites: map[string]string{
			"front_default": raw.Sprites.FrontDefault,
			"back_default":  raw.Sprites.BackDefault,
			"front_shiny":   raw.Sprites.FrontShiny,
			"back_shiny":    raw.Sprites.BackShiny,
		},
	}
	for _, t := range raw.Types {
		data.Types = append(data.Types, t.Type.Name)
	}
	for _, a := range raw.Abilities {
		data.Abilities = append(data.Abilities, a.Ability.Name)
	}
	for _, s := range raw.Stats {
		data.Stats[s.Stat.Name] = s.BaseStat
	}
	for i, m := range raw.Moves {
		if i >= maxMoves {
			break
		}
		data.Moves = append(data.Moves, m.Move.Name)
	}

	if c.cache != nil {
		if b, err := json.Marshal(data); err == nil {
			c.cache.Set(ctx, key, b)
		}
	}
	return data, true
}

// GetPokemonByID looks a Pokémon up by Pokédex number.
func (c *Client) GetPokemonByID(ctx context.Context, id int) (models.PokemonData, bool) {
	return c.GetPokemonByName(ctx, strconv.Itoa(id))
}

// GetPokemonByType returns the hydrated records for members of one type,
// capped at the first 50.
func (c *Client) GetPokemonByType(ctx context.Context, pokemonType string) []models.PokemonData {
	var raw typeResponse
	if !c.getJSON(ctx, "type/"+strings.ToLower(pokemonType), &raw) {
		return nil
	}

	var out []models.PokemonData
	for i, member := range raw.Pokemon {
		if i >= maxTypeMembers {
			break
		}
		if data, ok := c.GetPokemonByName(ctx, member.Pokemon.Name); ok {
			out = append(out, data)
		}
	}
	return out
}

// SearchPokemon scans the first 1000 entries of the upstream listing for
// names containing the query, hydrating each match. The scan cap bounds
// memory and latency; the upstream has no substring search of its own.
func (c *Client) SearchPokemon(ctx context.Context, query string) []models.PokemonData {
	var raw listResponse
	if !c.getJSON(ctx, fmt.Sprintf("pokemon?limit=%d", searchScanLimit), &raw) {
		return nil
	}

	q := strings.ToLower(query)
	var out []models.PokemonData
	for _, entry := range raw.Results {
		if !strings.Contains(strings.ToLower(entry.Name), q) {
			continue
		}
		if data, ok := c.GetPokemonByName(ctx, entry.Name); ok {
			out = append(out, data)
		}
	}
	return out
}

// GetEvolutionChain returns the species names of the full evolution tree,
// flattened depth-first from the base form.
func (c *Client) GetEvolutionChain(ctx context.Context, name string) []string {
	var species speciesResponse
	if !c.getJSON(ctx, "pokemon-species/"+strings.ToLower(name), &species) {
		return nil
	}
	if species.EvolutionChain.URL == "" {
		return nil
	}

	parts := strings.Split(strings.TrimRight(species.EvolutionChain.URL, "/"), "/")
	chainID := parts[len(parts)-1]

	var chain evolutionChainResponse
	if !c.getJSON(ctx, "evolution-chain/"+chainID, &chain) {
		return nil
	}

	var names []string
	var walk func(link chainLink)
	walk = func(link chainLink) {
		names = append(names, link.Species.Name)
		for _, next := range link.EvolvesTo {
			walk(next)
		}
	}
	walk(chain.Chain)
	return names
}

// GetPokemonDescription returns the first English flavor text for a species.
func (c *Client) GetPokemonDescription(ctx context.Context, name string) (string, bool) {
	var species speciesResponse
	if !c.getJSON(ctx, "pokemon-species/"+strings.ToLower(name), &species) {
		return "", false
	}
	for _, entry := range species.FlavorTextEntries {
		if entry.Language.Name != "en" {
			continue
		}
		text := strings.ReplaceAll(entry.FlavorText, "\n", " ")
		text = strings.ReplaceAll(text, "\f", " ")
		return text, true
	}
	return "", false
}

// GetAllTypes returns the names of every Pokémon type.
func (c *Client) GetAllTypes(ctx context.Context) []string {
	var raw listResponse
	if !c.getJSON(ctx, "type", &raw) {
		return nil
	}
	out := make([]string, 0, len(raw.Results))
	for _, t := range raw.Results {
		out = append(out, t.Name)
	}
	return out
}

// GetGenerationInfo returns the raw generation record.
func (c *Client) GetGenerationInfo(ctx context.Context, generation string) (map[string]interface{}, bool) {
	var out map[string]interface{}
	if !c.getJSON(ctx, "generation/"+strings.ToLower(generation), &out) {
		return nil, false
	}
	return out, true
}

// ListPokemon returns one page of the raw Pokémon listing.
func (c *Client) ListPokemon(ctx context.Context, limit, offset int) (map[string]interface{}, bool) {
	var out map[string]interface{}
	if !c.getJSON(ctx, fmt.Sprintf("pokemon?limit=%d&offset=%d", limit, offset), &out) {
		return nil, false
	}
	return out, true
}

// GetAbility returns the raw ability record.
func (c *Client) GetAbility(ctx context.Context, ability string) (map[string]interface{}, bool) {
	var out map[string]interface{}
	if !c.getJSON(ctx, "ability/"+strings.ToLower(ability), &out) {
		return nil, false
	}
	return out, true
}
