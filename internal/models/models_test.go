package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexIntDecoding(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"integer", `3`, 3},
		{"float", `2.7`, 2},
		{"quoted number", `"4"`, 4},
		{"zero", `0`, 0},
		{"negative", `-1`, -1},
		{"garbage string", `"three"`, 0},
		{"bool", `true`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var f FlexInt
			require.NoError(t, json.Unmarshal([]byte(tc.in), &f))
			assert.Equal(t, tc.want, int(f))
		})
	}
}

func TestInstructionListFromMap(t *testing.T) {
	in := `{"subagent_2": "second", "subagent_1": "first", "subagent_10": "tenth"}`
	var l InstructionList
	require.NoError(t, json.Unmarshal([]byte(in), &l))
	assert.Equal(t, []string{"first", "second", "tenth"}, []string(l))
}

func TestInstructionListFromArray(t *testing.T) {
	var l InstructionList
	require.NoError(t, json.Unmarshal([]byte(`["a", "b"]`), &l))
	assert.Equal(t, []string{"a", "b"}, []string(l))
}

func TestInstructionListFromGarbage(t *testing.T) {
	var l InstructionList
	require.NoError(t, json.Unmarshal([]byte(`42`), &l))
	assert.Empty(t, l)
}

func TestClarificationResultDecoding(t *testing.T) {
	in := `{
		"goals": ["g1", "g2"],
		"pokemon_to_research": ["scizor", "heracross"],
		"research_focus": "speed",
		"constraints": ["gen iv"],
		"subagent_instructions": {"subagent_1": "fast bugs", "subagent_2": "tanky bugs"},
		"num_subagents": 2
	}`
	var c ClarificationResult
	require.NoError(t, json.Unmarshal([]byte(in), &c))
	assert.Equal(t, []string{"g1", "g2"}, c.Goals)
	assert.Equal(t, 2, int(c.NumSubagents))
	assert.Equal(t, []string{"fast bugs", "tanky bugs"}, []string(c.SubagentInstructions))
}

func TestContextDataAccess(t *testing.T) {
	rc := NewContext("query")
	require.NotEmpty(t, rc.RunID)

	rc.SetData("count", float64(3))
	assert.Equal(t, 3, rc.GetInt("count"))
	assert.Equal(t, 0, rc.GetInt("missing"))

	rc.SetData("names", []interface{}{"a", 1, "b"})
	assert.Equal(t, []string{"a", "b"}, rc.GetStringSlice("names"))

	rc.SetData("focus", "stats")
	assert.Equal(t, "stats", rc.GetString("focus"))
}

func TestContextSnapshotIsCopy(t *testing.T) {
	rc := NewContext("query")
	rc.SetData("k", "v1")

	snap := rc.DataSnapshot()
	rc.SetData("k", "v2")

	assert.Equal(t, "v1", snap["k"])
	assert.Equal(t, "v2", rc.GetString("k"))
}

func TestFailedStepCarriesMessage(t *testing.T) {
	step := FailedStep(StepAnalysis, "broke", assert.AnError)
	assert.False(t, step.Success)
	assert.NotEmpty(t, step.ErrorMessage)

	step = FailedStep(StepAnalysis, "broke", nil)
	assert.NotEmpty(t, step.ErrorMessage)
}
