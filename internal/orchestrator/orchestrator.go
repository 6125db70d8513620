// Package orchestrator drives the research pipeline: Clarify -> Research ->
// Analyze, repeated through a bounded refinement loop, then Report. A run
// always yields a ResearchReport; every failure short of total report
// exhaustion is recovered at the narrowest possible scope.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pokedexlab/orchestrator/internal/ledger"
	"github.com/pokedexlab/orchestrator/internal/metrics"
	"github.com/pokedexlab/orchestrator/internal/models"
	"github.com/pokedexlab/orchestrator/internal/oracle"
	"github.com/pokedexlab/orchestrator/internal/tools"
	"github.com/pokedexlab/orchestrator/internal/tracing"
)

// Per-phase oracle budgets.
const (
	clarifyMaxTokens   = 1000
	clarifyTemperature = 0.6

	workerToolMaxTokens   = 300
	workerToolTemperature = 0.7

	workerSynthMaxTokens   = 500
	workerSynthTemperature = 1.0

	analysisMaxTokens   = 1500
	analysisTemperature = 0.8

	reportMaxTokens   = 2500
	reportTemperature = 1.0
)

// defaultConfidence is reported when no analysis block exists.
const defaultConfidence = 0.7

// Config bounds one orchestrator instance.
type Config struct {
	// MaxSubagents caps the worker fan-out per cycle.
	MaxSubagents int
	// MaxRefinementCycles caps how often the analysis phase may re-run the
	// whole pipeline with a refined query.
	MaxRefinementCycles int
}

// Orchestrator coordinates the research pipeline over its collaborators.
type Orchestrator struct {
	oracle     oracle.Completer
	dispatcher *tools.Dispatcher
	store      ledger.Store
	logger     *zap.Logger
	cfg        Config
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore installs a persistent step store shared by all runs.
func WithStore(store ledger.Store) Option {
	return func(o *Orchestrator) { o.store = store }
}

// New creates an orchestrator.
func New(completer oracle.Completer, dispatcher *tools.Dispatcher, cfg Config, logger *zap.Logger, opts ...Option) *Orchestrator {
	if cfg.MaxSubagents < 1 {
		cfg.MaxSubagents = 5
	}
	if cfg.MaxRefinementCycles < 0 {
		cfg.MaxRefinementCycles = 0
	}
	o := &Orchestrator{
		oracle:     completer,
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one research run. It never fails to the caller: unrecoverable
// errors produce a degraded report with zero confidence and an explanatory
// limitation instead.
func (o *Orchestrator) Run(ctx context.Context, query string) (report models.ResearchReport) {
	start := time.Now()
	metrics.RunsStarted.Inc()

	rc := models.NewContext(query)
	led := ledger.New(rc.RunID, o.store, o.logger)

	ctx, span := tracing.StartSpan(ctx, "research.run")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("research run panicked",
				zap.String("run_id", rc.RunID),
				zap.Any("panic", r))
			report = o.degradedReport(rc, led, fmt.Sprintf("internal error: %v", r))
			metrics.RunsCompleted.WithLabelValues("panic").Inc()
		}
	}()

	cycles := 0
	for {
		cycles++
		o.clarify(ctx, rc, led)
		o.research(ctx, rc, led)
		if !o.analyze(ctx, rc, led) {
			break
		}
		o.logger.Info("re-running research with refined query",
			zap.String("run_id", rc.RunID),
			zap.Int("cycle", cycles),
			zap.String("refined_query", rc.OriginalQuery))
	}
	metrics.ResearchCycles.Observe(float64(cycles))

	report = o.generateReport(ctx, rc, led)

	status := "ok"
	if report.ConfidenceScore == 0 {
		status = "degraded"
	}
	metrics.RunsCompleted.WithLabelValues(status).Inc()
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	o.logger.Info("research run completed",
		zap.String("run_id", rc.RunID),
		zap.Int("cycles", cycles),
		zap.Int("steps", led.Len()),
		zap.Float64("confidence", report.ConfidenceScore),
		zap.Duration("duration", time.Since(start)))
	return report
}

// clarify asks the coordinator oracle to decompose the query. A malformed or
// empty response is a soft failure: the cycle proceeds with defaults.
func (o *Orchestrator) clarify(ctx context.Context, rc *models.ResearchContext, led *ledger.Ledger) {
	ctx, span := tracing.StartPhaseSpan(ctx, "clarify")
	defer span.End()

	res, err := o.complete(ctx, "clarify", oracle.Request{
		System:      coordinationPrompt,
		Messages:    []oracle.Message{{Role: "user", Content: rc.OriginalQuery}},
		MaxTokens:   clarifyMaxTokens,
		Temperature: clarifyTemperature,
	})
	if err == nil && res.Empty() {
		err = fmt.Errorf("oracle returned no clarification content")
	}

	var clar models.ClarificationResult
	if err == nil {
		err = json.Unmarshal([]byte(stripJSONFences(res.Text)), &clar)
	}
	if err != nil {
		o.logger.Error("goal clarification failed",
			zap.String("run_id", rc.RunID),
			zap.Error(err))
		led.Append(ctx, models.FailedStep(models.StepClarification, "Failed to clarify research goals", err))
		return
	}

	rc.ClarifiedGoals = clar.Goals
	rc.CurrentFocus = clar.ResearchFocus
	rc.SetData("pokemon_to_research", clar.PokemonToResearch)
	rc.SetData("research_focus", clar.ResearchFocus)
	rc.SetData("constraints", clar.Constraints)
	rc.SetData("subagent_instructions", []string(clar.SubagentInstructions))
	rc.SetData("num_subagents", int(clar.NumSubagents))

	step := models.NewStep(models.StepClarification,
		"Clarified research goals and identified key areas to investigate")
	step.OutputData = map[string]interface{}{
		"goals":                 clar.Goals,
		"pokemon_to_research":   clar.PokemonToResearch,
		"research_focus":        clar.ResearchFocus,
		"constraints":           clar.Constraints,
		"subagent_instructions": []string(clar.SubagentInstructions),
		"num_subagents":         int(clar.NumSubagents),
	}
	led.Append(ctx, step)
}

// research fans the cycle's work out over the clamped worker count. Workers
// run strictly in index order, one completing both sub-phases before the
// next begins.
func (o *Orchestrator) research(ctx context.Context, rc *models.ResearchContext, led *ledger.Ledger) {
	ctx, span := tracing.StartPhaseSpan(ctx, "research")
	defer span.End()

	n := rc.GetInt("num_subagents")
	if n < 1 {
		n = 1
	}
	if n > o.cfg.MaxSubagents {
		n = o.cfg.MaxSubagents
	}
	instructions := rc.GetStringSlice("subagent_instructions")

	o.logger.Info("starting research phase",
		zap.String("run_id", rc.RunID),
		zap.Int("workers", n))

	for i := 0; i < n; i++ {
		worker := i + 1
		task := ""
		if i < len(instructions) {
			task = instructions[i]
		}
		metrics.WorkersRun.Inc()
		o.runWorker(ctx, rc, led, worker, n, task)
	}
}

// runWorker executes one worker's tool-call and synthesis sub-phases. Every
// failure is isolated to this worker; siblings and the run continue.
func (o *Orchestrator) runWorker(ctx context.Context, rc *models.ResearchContext, led *ledger.Ledger, worker, total int, task string) {
	brief := fmt.Sprintf(`You are subagent %d of %d.
Your specific task is: %s
The current research focus is: %s
The constraints to consider are: %s
The Pokemon to research are: %s`,
		worker, total, task,
		rc.GetString("research_focus"),
		strings.Join(rc.GetStringSlice("constraints"), ", "),
		strings.Join(rc.GetStringSlice("pokemon_to_research"), ", "))

	res, err := o.complete(ctx, "worker_tools", oracle.Request{
		System:      subagentToolPrompt,
		Messages:    []oracle.Message{{Role: "user", Content: brief}},
		Tools:       tools.Catalogue(),
		MaxTokens:   workerToolMaxTokens,
		Temperature: workerToolTemperature,
	})
	if err != nil {
		led.Append(ctx, models.FailedStep(models.StepSynthesis,
			fmt.Sprintf("Failed research worker %d during tool selection", worker), err))
		return
	}

	if len(res.ToolCalls) > 0 {
		env := &tools.Env{Context: rc, Ledger: led, Worker: worker}
		o.dispatcher.Execute(ctx, env, res.ToolCalls)
	} else {
		o.logger.Info("research worker made no tool calls",
			zap.String("run_id", rc.RunID),
			zap.Int("worker", worker))
	}

	step := models.NewStep(models.StepSynthesis,
		fmt.Sprintf("Completed research worker %d", worker))
	step.OutputData = rc.DataSnapshot()
	led.Append(ctx, step)

	findings, err := json.Marshal(rc.DataSnapshot())
	if err != nil {
		findings = []byte("{}")
	}
	synth, err := o.complete(ctx, "worker_synthesis", oracle.Request{
		System: subagentSynthesisPrompt,
		Messages: []oracle.Message{{
			Role: "user",
			Content: fmt.Sprintf("You are subagent %d of %d.\nYour research findings so far are:\n%s",
				worker, total, findings),
		}},
		MaxTokens:   workerSynthMaxTokens,
		Temperature: workerSynthTemperature,
	})
	if err == nil && synth.Empty() {
		err = fmt.Errorf("worker %d returned no synthesis content", worker)
	}
	if err != nil {
		led.Append(ctx, models.FailedStep(models.StepSynthesis,
			fmt.Sprintf("Failed research worker %d during synthesis", worker), err))
		return
	}

	key := fmt.Sprintf("subagent_%d_synthesis", worker)
	rc.SetData(key, synth.Text)

	synthStep := models.NewStep(models.StepSynthesis,
		fmt.Sprintf("Completed synthesis for research worker %d", worker))
	synthStep.OutputData = map[string]interface{}{key: synth.Text}
	led.Append(ctx, synthStep)
}

// analyze evaluates the aggregated findings. It returns true when the run
// should re-enter the pipeline with a refined query; the refinement counter
// and refined query are persisted into collected data so later cycles and the
// final report can see the history.
func (o *Orchestrator) analyze(ctx context.Context, rc *models.ResearchContext, led *ledger.Ledger) bool {
	ctx, span := tracing.StartPhaseSpan(ctx, "analyze")
	defer span.End()

	snapshot, err := json.MarshalIndent(rc.DataSnapshot(), "", "  ")
	if err != nil {
		snapshot = []byte("{}")
	}
	prompt := fmt.Sprintf("USER QUERY:\n%s\n\nRESEARCH GOALS:\n%s\n\nCOLLECTED DATA:\n```json\n%s\n```",
		rc.OriginalQuery, strings.Join(rc.ClarifiedGoals, "; "), snapshot)

	res, err := o.complete(ctx, "analyze", oracle.Request{
		System:      analystPrompt,
		Messages:    []oracle.Message{{Role: "user", Content: prompt}},
		MaxTokens:   analysisMaxTokens,
		Temperature: analysisTemperature,
	})
	if err == nil && res.Empty() {
		err = fmt.Errorf("oracle returned no analysis content")
	}

	var analysis models.AnalysisResult
	var analysisMap map[string]interface{}
	if err == nil {
		text := stripJSONFences(res.Text)
		if uerr := json.Unmarshal([]byte(text), &analysis); uerr != nil {
			err = uerr
		} else {
			// Keep the raw map alongside the typed result so the findings
			// snapshot in the report carries the analyst's full output.
			_ = json.Unmarshal([]byte(text), &analysisMap)
		}
	}
	if err != nil {
		o.logger.Error("analysis failed, proceeding to report with existing data",
			zap.String("run_id", rc.RunID),
			zap.Error(err))
		led.Append(ctx, models.FailedStep(models.StepAnalysis, "Failed to analyse research findings", err))
		return false
	}

	rc.Analysis = &analysis
	rc.SetData("analysis", analysisMap)

	step := models.NewStep(models.StepAnalysis,
		"Analysed research findings and generated insights")
	step.OutputData = analysisMap
	led.Append(ctx, step)

	count := rc.GetInt("refinement_count")
	if analysis.FurtherResearchNeeded && count < o.cfg.MaxRefinementCycles {
		refined := analysis.RefinedQuery
		if refined == "" {
			refined = rc.OriginalQuery
		}
		rc.OriginalQuery = refined
		rc.SetData("refined_query", refined)
		rc.SetData("refinement_count", count+1)
		return true
	}
	return false
}

// generateReport produces the terminal artifact. This is the only phase whose
// failure degrades the whole run.
func (o *Orchestrator) generateReport(ctx context.Context, rc *models.ResearchContext, led *ledger.Ledger) models.ResearchReport {
	ctx, span := tracing.StartPhaseSpan(ctx, "report")
	defer span.End()

	analysisJSON := []byte("{}")
	if raw, ok := rc.GetData("analysis"); ok {
		if b, err := json.MarshalIndent(raw, "", "  "); err == nil {
			analysisJSON = b
		}
	}

	prompt := fmt.Sprintf(`Generate a comprehensive research report based on the following data:

Query: %s
Analysis: %s
Research Steps: %d steps completed

Create a detailed report with:
1. Executive summary
2. Detailed findings
3. Specific recommendations
4. Sources used

Make it informative, well-structured, and helpful for the user.`,
		rc.OriginalQuery, analysisJSON, led.Len())

	res, err := o.complete(ctx, "report", oracle.Request{
		System:      reportWriterPrompt,
		Messages:    []oracle.Message{{Role: "user", Content: prompt}},
		MaxTokens:   reportMaxTokens,
		Temperature: reportTemperature,
	})
	if err == nil && res.Empty() {
		err = fmt.Errorf("oracle returned no report content")
	}
	if err != nil {
		o.logger.Error("report generation failed",
			zap.String("run_id", rc.RunID),
			zap.Error(err))
		return o.degradedReport(rc, led, "Failed to generate complete report")
	}

	confidence := defaultConfidence
	var recommendations, limitations []string
	if rc.Analysis != nil {
		confidence = rc.Analysis.ConfidenceScore
		recommendations = rc.Analysis.Recommendations
		limitations = rc.Analysis.Limitations
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return models.ResearchReport{
		RunID:            rc.RunID,
		Query:            rc.OriginalQuery,
		ExecutiveSummary: res.Text,
		DetailedFindings: rc.DataSnapshot(),
		Recommendations:  recommendations,
		Sources:          led.Sources(),
		ResearchSteps:    led.Steps(),
		ConfidenceScore:  confidence,
		Limitations:      limitations,
		GeneratedAt:      time.Now(),
	}
}

// degradedReport is the terminal artifact after unrecoverable failure: zero
// confidence and an explicit limitation, but still a complete report shape.
func (o *Orchestrator) degradedReport(rc *models.ResearchContext, led *ledger.Ledger, limitation string) models.ResearchReport {
	return models.ResearchReport{
		RunID:            rc.RunID,
		Query:            rc.OriginalQuery,
		ExecutiveSummary: "Error generating report",
		DetailedFindings: rc.DataSnapshot(),
		Recommendations:  nil,
		Sources:          nil,
		ResearchSteps:    led.Steps(),
		ConfidenceScore:  0.0,
		Limitations:      []string{limitation},
		GeneratedAt:      time.Now(),
	}
}

// complete wraps the oracle call with metrics.
func (o *Orchestrator) complete(ctx context.Context, phase string, req oracle.Request) (oracle.Result, error) {
	start := time.Now()
	res, err := o.oracle.Complete(ctx, req)
	metrics.OracleLatency.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OracleCalls.WithLabelValues(phase, "error").Inc()
		return oracle.Result{}, err
	}
	metrics.OracleCalls.WithLabelValues(phase, "ok").Inc()
	return res, nil
}

// stripJSONFences removes a surrounding markdown code fence from an oracle
// response that was asked for bare JSON.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
