// Package tools routes the oracle's structured tool-call requests to the data
// fetch adapters and merges results into the shared research scratchpad.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pokedexlab/orchestrator/internal/ledger"
	"github.com/pokedexlab/orchestrator/internal/metrics"
	"github.com/pokedexlab/orchestrator/internal/models"
	"github.com/pokedexlab/orchestrator/internal/oracle"
	"github.com/pokedexlab/orchestrator/internal/tracing"
	"github.com/pokedexlab/orchestrator/internal/websearch"
)

// Fetcher is the slice of the PokeAPI adapter the dispatcher consumes.
type Fetcher interface {
	GetPokemonByName(ctx context.Context, name string) (models.PokemonData, bool)
	GetPokemonByID(ctx context.Context, id int) (models.PokemonData, bool)
	GetPokemonByType(ctx context.Context, pokemonType string) []models.PokemonData
	SearchPokemon(ctx context.Context, query string) []models.PokemonData
	GetEvolutionChain(ctx context.Context, name string) []string
	GetPokemonDescription(ctx context.Context, name string) (string, bool)
	GetAllTypes(ctx context.Context) []string
	GetGenerationInfo(ctx context.Context, generation string) (map[string]interface{}, bool)
	ListPokemon(ctx context.Context, limit, offset int) (map[string]interface{}, bool)
	GetAbility(ctx context.Context, ability string) (map[string]interface{}, bool)
}

// WebSearcher is the slice of the web adapter the dispatcher consumes.
type WebSearcher interface {
	SearchPokemonInfo(ctx context.Context, query string) []websearch.Result
	SearchTrainingTips(ctx context.Context, pokemonName string) []string
	SearchCompetitiveInfo(ctx context.Context, pokemonName string) []string
	SearchLocationInfo(ctx context.Context, pokemonName string) []string
}

// Env is the per-run state a dispatch batch mutates.
type Env struct {
	Context *models.ResearchContext
	Ledger  *ledger.Ledger
	Worker  int
}

type handlerFunc func(ctx context.Context, env *Env, args map[string]interface{}) error

// Dispatcher executes tool-call batches with per-call error isolation.
type Dispatcher struct {
	fetch    Fetcher
	web      WebSearcher
	logger   *zap.Logger
	handlers map[string]handlerFunc
}

// earlyGamePokemon is the fixed set probed by research_training_info.
var earlyGamePokemon = []string{"pikachu", "charmander", "bulbasaur", "squirtle", "pidgey", "rattata"}

// uniqueCriteria are the query keywords research_unique_pokemon recognizes.
var uniqueCriteria = []string{"legendary", "mythical", "regional", "fossil", "water", "ocean"}

// NewDispatcher builds the dispatch table and verifies it stays in lock-step
// with the tool catalogue: every catalogue entry must have a handler and
// every handler a catalogue entry.
func NewDispatcher(fetch Fetcher, web WebSearcher, logger *zap.Logger) (*Dispatcher, error) {
	d := &Dispatcher{fetch: fetch, web: web, logger: logger}
	d.handlers = map[string]handlerFunc{
		"get_pokemon_by_name":     d.getPokemonByName,
		"get_pokemon_by_id":       d.getPokemonByID,
		"get_pokemon_by_type":     d.getPokemonByType,
		"search_pokemon":          d.searchPokemon,
		"get_evolution_chain":     d.getEvolutionChain,
		"get_pokemon_description": d.getPokemonDescription,
		"get_all_types":           d.getAllTypes,
		"get_generation_info":     d.getGenerationInfo,
		"fetch_all_pokemon":       d.fetchAllPokemon,
		"fetch_pokemon_ability":   d.fetchPokemonAbility,
		"research_pokemon_api":    d.researchPokemonAPI,
		"research_pokemon_web":    d.researchPokemonWeb,
		"research_training_info":  d.researchTrainingInfo,
		"research_unique_pokemon": d.researchUniquePokemon,
	}
	if err := d.validateCatalogue(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) validateCatalogue() error {
	for _, def := range catalogue {
		if _, ok := d.handlers[def.Name]; !ok {
			return fmt.Errorf("tool %q is in the catalogue but has no handler", def.Name)
		}
	}
	if len(d.handlers) != len(catalogue) {
		names := make(map[string]struct{}, len(catalogue))
		for _, def := range catalogue {
			names[def.Name] = struct{}{}
		}
		for name := range d.handlers {
			if _, ok := names[name]; !ok {
				return fmt.Errorf("handler %q has no catalogue entry", name)
			}
		}
	}
	return nil
}

// Execute runs every tool call in the batch. One failing call is recorded as
// a failed step and never drops the remaining calls. Unknown tool names are
// logged and skipped; a malformed argument string becomes an empty argument
// set.
func (d *Dispatcher) Execute(ctx context.Context, env *Env, calls []oracle.ToolCall) {
	for _, call := range calls {
		handler, ok := d.handlers[call.Name]
		if !ok {
			d.logger.Warn("unknown tool requested",
				zap.String("tool", call.Name),
				zap.Int("worker", env.Worker))
			metrics.ToolDispatches.WithLabelValues(call.Name, "unknown").Inc()
			continue
		}

		args := map[string]interface{}{}
		if trimmed := strings.TrimSpace(call.Arguments); trimmed != "" {
			if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
				d.logger.Warn("malformed tool arguments, treating as empty",
					zap.String("tool", call.Name),
					zap.Error(err))
				args = map[string]interface{}{}
			}
		}

		tctx, span := tracing.StartToolSpan(ctx, call.Name)
		err := handler(tctx, env, args)
		span.End()

		if err != nil {
			d.logger.Error("tool call failed",
				zap.String("tool", call.Name),
				zap.Int("worker", env.Worker),
				zap.Error(err))
			metrics.ToolDispatches.WithLabelValues(call.Name, "error").Inc()
			env.Ledger.Append(ctx, models.FailedStep(models.StepSynthesis,
				fmt.Sprintf("Failed research worker %d executing tool %s", env.Worker, call.Name), err))
			continue
		}
		metrics.ToolDispatches.WithLabelValues(call.Name, "ok").Inc()
	}
}

func stringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return s, nil
}

func intArg(args map[string]interface{}, key string, def int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return def
}

func (d *Dispatcher) getPokemonByName(ctx context.Context, env *Env, args map[string]interface{}) error {
	name, err := stringArg(args, "name")
	if err != nil {
		return err
	}
	data, ok := d.fetch.GetPokemonByName(ctx, name)
	if !ok {
		return fmt.Errorf("pokemon %q not found", name)
	}
	env.Context.SetData("pokemon_"+strings.ToLower(name), data)
	return nil
}

func (d *Dispatcher) getPokemonByID(ctx context.Context, env *Env, args map[string]interface{}) error {
	id := intArg(args, "pokemon_id", 0)
	if id <= 0 {
		return fmt.Errorf("argument \"pokemon_id\" must be a positive integer")
	}
	data, ok := d.fetch.GetPokemonByID(ctx, id)
	if !ok {
		return fmt.Errorf("pokemon id %d not found", id)
	}
	env.Context.SetData(fmt.Sprintf("pokemon_id_%d", id), data)
	return nil
}

func (d *Dispatcher) getPokemonByType(ctx context.Context, env *Env, args map[string]interface{}) error {
	typ, err := stringArg(args, "pokemon_type")
	if err != nil {
		return err
	}
	list := d.fetch.GetPokemonByType(ctx, typ)
	env.Context.SetData("pokemon_type_"+strings.ToLower(typ), list)
	return nil
}

func (d *Dispatcher) searchPokemon(ctx context.Context, env *Env, args map[string]interface{}) error {
	query, err := stringArg(args, "query")
	if err != nil {
		return err
	}
	results := d.fetch.SearchPokemon(ctx, query)
	env.Context.SetData("search_"+strings.ToLower(query), results)
	return nil
}

func (d *Dispatcher) getEvolutionChain(ctx context.Context, env *Env, args map[string]interface{}) error {
	name, err := stringArg(args, "pokemon_name")
	if err != nil {
		return err
	}
	chain := d.fetch.GetEvolutionChain(ctx, name)
	env.Context.SetData("evolution_chain_"+strings.ToLower(name), chain)
	return nil
}

func (d *Dispatcher) getPokemonDescription(ctx context.Context, env *Env, args map[string]interface{}) error {
	name, err := stringArg(args, "pokemon_name")
	if err != nil {
		return err
	}
	desc, ok := d.fetch.GetPokemonDescription(ctx, name)
	if !ok {
		return fmt.Errorf("no description found for %q", name)
	}
	env.Context.SetData("description_"+strings.ToLower(name), desc)
	return nil
}

func (d *Dispatcher) getAllTypes(ctx context.Context, env *Env, _ map[string]interface{}) error {
	env.Context.SetData("all_types", d.fetch.GetAllTypes(ctx))
	return nil
}

func (d *Dispatcher) getGenerationInfo(ctx context.Context, env *Env, args map[string]interface{}) error {
	gen, err := stringArg(args, "generation")
	if err != nil {
		return err
	}
	info, ok := d.fetch.GetGenerationInfo(ctx, gen)
	if !ok {
		return fmt.Errorf("generation %q not found", gen)
	}
	env.Context.SetData("generation_"+strings.ToLower(gen), info)
	return nil
}

func (d *Dispatcher) fetchAllPokemon(ctx context.Context, env *Env, args map[string]interface{}) error {
	limit := intArg(args, "limit", 100)
	offset := intArg(args, "offset", 0)
	page, ok := d.fetch.ListPokemon(ctx, limit, offset)
	if !ok {
		return fmt.Errorf("failed to list pokemon (limit=%d offset=%d)", limit, offset)
	}
	env.Context.SetData(fmt.Sprintf("all_pokemon_%d_%d", offset, limit), page)
	return nil
}

func (d *Dispatcher) fetchPokemonAbility(ctx context.Context, env *Env, args map[string]interface{}) error {
	name, err := stringArg(args, "ability_name")
	if err != nil {
		return err
	}
	data, ok := d.fetch.GetAbility(ctx, name)
	if !ok {
		return fmt.Errorf("ability %q not found", name)
	}
	env.Context.SetData("ability_"+strings.ToLower(name), data)
	return nil
}

// researchPokemonAPI is the composite lookup: record, description and
// evolution chain in one step with a source attached.
func (d *Dispatcher) researchPokemonAPI(ctx context.Context, env *Env, args map[string]interface{}) error {
	name, err := stringArg(args, "pokemon_name")
	if err != nil {
		return err
	}
	name = strings.ToLower(name)
	data, ok := d.fetch.GetPokemonByName(ctx, name)
	if !ok {
		return fmt.Errorf("pokemon %q not found", name)
	}
	if desc, ok := d.fetch.GetPokemonDescription(ctx, name); ok {
		data.Description = desc
	}
	if chain := d.fetch.GetEvolutionChain(ctx, name); len(chain) > 0 {
		data.EvolutionChain = chain
	}

	env.Context.SetData("pokemon_"+name, data)

	step := models.NewStep(models.StepPokeAPIQuery,
		fmt.Sprintf("Retrieved comprehensive data for %s from PokeAPI", name))
	step.OutputData = map[string]interface{}{"pokemon_data": data}
	step.Sources = []string{"https://pokeapi.co/api/v2/pokemon/" + name}
	env.Ledger.Append(ctx, step)
	return nil
}

// researchPokemonWeb gathers the web-sourced extras for one Pokémon.
func (d *Dispatcher) researchPokemonWeb(ctx context.Context, env *Env, args map[string]interface{}) error {
	name, err := stringArg(args, "pokemon_name")
	if err != nil {
		return err
	}

	results := d.web.SearchPokemonInfo(ctx, name)
	webData := map[string]interface{}{
		"web_results":      results,
		"training_tips":    d.web.SearchTrainingTips(ctx, name),
		"competitive_info": d.web.SearchCompetitiveInfo(ctx, name),
		"location_info":    d.web.SearchLocationInfo(ctx, name),
	}
	env.Context.SetData("web_data_"+strings.ToLower(name), webData)

	step := models.NewStep(models.StepWebSearch,
		fmt.Sprintf("Gathered additional information about %s from web sources", name))
	step.OutputData = webData
	for _, r := range results {
		step.Sources = append(step.Sources, r.URL)
	}
	env.Ledger.Append(ctx, step)
	return nil
}

// researchTrainingInfo probes a fixed set of early-game Pokémon for training
// and evolution data.
func (d *Dispatcher) researchTrainingInfo(ctx context.Context, env *Env, _ map[string]interface{}) error {
	training := map[string]interface{}{}
	for _, name := range earlyGamePokemon {
		data, ok := d.fetch.GetPokemonByName(ctx, name)
		if !ok {
			continue
		}
		training[name] = map[string]interface{}{
			"base_exp":        data.BaseExperience,
			"evolution_chain": d.fetch.GetEvolutionChain(ctx, name),
			"stats":           data.Stats,
		}
	}
	env.Context.SetData("training_research", training)

	step := models.NewStep(models.StepAnalysis,
		"Researched training information for early-game Pokemon")
	step.OutputData = training
	env.Ledger.Append(ctx, step)
	return nil
}

// researchUniquePokemon runs bounded searches for whichever unique-Pokémon
// criteria appear in the original query.
func (d *Dispatcher) researchUniquePokemon(ctx context.Context, env *Env, _ map[string]interface{}) error {
	query := strings.ToLower(env.Context.OriginalQuery)
	unique := map[string]interface{}{}
	for _, criteria := range uniqueCriteria {
		if !strings.Contains(query, criteria) {
			continue
		}
		results := d.fetch.SearchPokemon(ctx, criteria)
		if len(results) > 10 {
			results = results[:10]
		}
		unique[criteria] = results
	}
	env.Context.SetData("unique_pokemon", unique)

	step := models.NewStep(models.StepAnalysis,
		"Researched unique Pokemon matching the query criteria")
	step.OutputData = unique
	env.Ledger.Append(ctx, step)
	return nil
}
