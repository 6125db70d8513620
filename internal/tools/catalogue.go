package tools

import "github.com/pokedexlab/orchestrator/internal/oracle"

// The catalogue is the fixed set of tools offered to the oracle. It must stay
// in lock-step with the dispatch table; NewDispatcher enforces that at
// construction.

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

func objectSchema(required []string, properties map[string]interface{}) map[string]interface{} {
	if required == nil {
		required = []string{}
	}
	if properties == nil {
		properties = map[string]interface{}{}
	}
	return map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

var catalogue = []oracle.ToolDef{
	{
		Name:        "get_pokemon_by_name",
		Description: "Retrieves detailed data for a Pokémon by name.",
		Parameters: objectSchema([]string{"name"}, map[string]interface{}{
			"name": prop("string", "The name of the Pokémon (e.g. pikachu)."),
		}),
	},
	{
		Name:        "get_pokemon_by_id",
		Description: "Retrieves detailed data for a Pokémon by its Pokédex ID.",
		Parameters: objectSchema([]string{"pokemon_id"}, map[string]interface{}{
			"pokemon_id": prop("integer", "The Pokédex ID of the Pokémon (e.g. 25 for Pikachu)."),
		}),
	},
	{
		Name:        "get_pokemon_by_type",
		Description: "Retrieves a list of Pokémon of a specific type.",
		Parameters: objectSchema([]string{"pokemon_type"}, map[string]interface{}{
			"pokemon_type": prop("string", "The Pokémon type (e.g. bug, water, fire)."),
		}),
	},
	{
		Name:        "search_pokemon",
		Description: "Searches for Pokémon by partial name match.",
		Parameters: objectSchema([]string{"query"}, map[string]interface{}{
			"query": prop("string", "Partial name to search for (e.g. 'char')."),
		}),
	},
	{
		Name:        "get_evolution_chain",
		Description: "Retrieves the evolution chain for a given Pokémon.",
		Parameters: objectSchema([]string{"pokemon_name"}, map[string]interface{}{
			"pokemon_name": prop("string", "The name of the Pokémon (e.g. bulbasaur)."),
		}),
	},
	{
		Name:        "get_pokemon_description",
		Description: "Retrieves the English Pokédex description for a Pokémon.",
		Parameters: objectSchema([]string{"pokemon_name"}, map[string]interface{}{
			"pokemon_name": prop("string", "The name of the Pokémon (e.g. squirtle)."),
		}),
	},
	{
		Name:        "get_all_types",
		Description: "Retrieves a list of all available Pokémon types.",
		Parameters:  objectSchema(nil, nil),
	},
	{
		Name:        "get_generation_info",
		Description: "Retrieves information about a specific Pokémon generation.",
		Parameters: objectSchema([]string{"generation"}, map[string]interface{}{
			"generation": prop("string", "The generation name or number (e.g. 'generation-i', 'generation-iii')."),
		}),
	},
	{
		Name:        "fetch_all_pokemon",
		Description: "Fetches a paginated list of Pokémon.",
		Parameters: objectSchema([]string{"limit", "offset"}, map[string]interface{}{
			"limit":  prop("integer", "Maximum number of Pokémon to return."),
			"offset": prop("integer", "Offset for pagination."),
		}),
	},
	{
		Name:        "fetch_pokemon_ability",
		Description: "Fetches data for a Pokémon ability by name.",
		Parameters: objectSchema([]string{"ability_name"}, map[string]interface{}{
			"ability_name": prop("string", "The name of the ability (e.g. 'overgrow')."),
		}),
	},
	{
		Name:        "research_pokemon_api",
		Description: "Retrieves comprehensive Pokémon data from PokeAPI, including description and evolution chain.",
		Parameters: objectSchema([]string{"pokemon_name"}, map[string]interface{}{
			"pokemon_name": prop("string", "The name of the Pokémon to research (e.g. pikachu)."),
		}),
	},
	{
		Name:        "research_pokemon_web",
		Description: "Searches web sources for additional information about a Pokémon including training tips, competitive info, and locations.",
		Parameters: objectSchema([]string{"pokemon_name"}, map[string]interface{}{
			"pokemon_name": prop("string", "The name of the Pokémon to research (e.g. charizard)."),
		}),
	},
	{
		Name:        "research_training_info",
		Description: "Retrieves training and evolution information for common early-game Pokémon.",
		Parameters:  objectSchema(nil, nil),
	},
	{
		Name:        "research_unique_pokemon",
		Description: "Searches for unique Pokémon (e.g. legendary, mythical, regional) matching query criteria.",
		Parameters: objectSchema([]string{"criteria"}, map[string]interface{}{
			"criteria": prop("string", "Criteria for unique Pokémon (e.g. 'legendary', 'mythical', 'fossil')."),
		}),
	},
}

// Catalogue returns the tool descriptors offered to the oracle.
func Catalogue() []oracle.ToolDef {
	out := make([]oracle.ToolDef, len(catalogue))
	copy(out, catalogue)
	return out
}
