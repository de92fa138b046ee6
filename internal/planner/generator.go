package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"keto-planner/internal/llm"
	"keto-planner/internal/logger"
	"keto-planner/internal/shared"
)

// Stage names recorded in AgentMeta.
const (
	StageGenerate          = "planner.generate"
	StageRepair            = "planner.repair"
	StageNormalize         = "planner.normalize"
	StageConstrainedRepair = "planner.constrained_repair"
)

const (
	jsonMIMEType = "application/json"
	// maxAttempts keeps base*2^n well inside time.Duration.
	maxAttempts = 10
)

// Options tune the retry and repair policy. Zero values fall back to the defaults.
type Options struct {
	MaxAttempts int
	BackoffBase time.Duration
	// DisableNormalize sends shape failures straight to a constrained repair call.
	DisableNormalize bool

	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func() float64
	Logger *logger.Logger
}

// Generator turns a PlanRequest into a shape-conformant MealPlan. It holds no per-request
// state and is safe for concurrent use.
type Generator struct {
	textGen llm.TextGenerator
	opts    Options
}

// NewGenerator creates a Generator backed by textGen.
func NewGenerator(textGen llm.TextGenerator, opts Options) *Generator {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.MaxAttempts > maxAttempts {
		opts.MaxAttempts = maxAttempts
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Jitter == nil {
		opts.Jitter = rand.Float64
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	return &Generator{textGen: textGen, opts: opts}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Generate produces a meal plan. The returned metas describe every model call and repair
// stage, including those of a failed request.
func (g *Generator) Generate(ctx context.Context, req PlanRequest, targets NutritionTargets) (*MealPlan, []shared.AgentMeta, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	if err := targets.validate(); err != nil {
		return nil, nil, err
	}

	prompt, err := BuildPrompt(targets, req)
	if err != nil {
		return nil, nil, err
	}
	maxTokens := MaxOutputTokens(req)
	log := g.opts.Logger.With("days", req.Days, "meals_per_day", req.MealsPerDay)

	var metas []shared.AgentMeta
	resp, meta, err := g.generate(ctx, log, prompt, maxTokens)
	metas = append(metas, meta)
	if err != nil {
		return nil, metas, err
	}

	plan, err := decodeResponse(resp)
	if err != nil {
		log.Warn("meal plan did not parse, requesting repair", "error", err)
		plan, meta, err = g.repair(ctx, resp.Content, err, maxTokens)
		metas = append(metas, meta)
		if err != nil {
			return nil, metas, err
		}
	}

	mismatches := CheckShape(plan, req)
	if len(mismatches) == 0 {
		return plan, metas, nil
	}

	if !g.opts.DisableNormalize {
		start := time.Now()
		normalized := Normalize(plan, req)
		remaining := CheckShape(normalized, req)
		meta := shared.AgentMeta{AgentName: StageNormalize, Latency: time.Since(start), Attempts: 1}
		if len(remaining) > 0 {
			meta.Err = joinReasons(remaining)
		}
		metas = append(metas, meta)
		log.Warn("meal plan shape mismatch, normalized locally", "mismatches", mismatches, "ok", len(remaining) == 0)
		if len(remaining) == 0 {
			return normalized, metas, nil
		}
	}

	log.Warn("meal plan shape mismatch, requesting constrained repair", "mismatches", mismatches)
	plan, meta, err = g.constrainedRepair(ctx, req, plan, mismatches, maxTokens)
	metas = append(metas, meta)
	if err != nil {
		return nil, metas, err
	}
	return plan, metas, nil
}

// generate calls the model, retrying only while the provider reports overload.
func (g *Generator) generate(ctx context.Context, log *logger.Logger, prompt string, maxTokens int) (llm.ContentResponse, shared.AgentMeta, error) {
	meta := shared.AgentMeta{AgentName: StageGenerate}
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt < g.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := g.backoff(attempt - 1)
			log.Warn("provider overloaded, backing off", "attempt", attempt, "delay", delay)
			if err := g.opts.Sleep(ctx, delay); err != nil {
				meta.Err = err.Error()
				meta.Latency = time.Since(start)
				return llm.ContentResponse{}, meta, &Error{
					Kind:     KindProviderUnavailable,
					Message:  "meal plan generation was cancelled while waiting for the provider",
					Attempts: attempt,
					Err:      errors.Join(err, lastErr),
				}
			}
		}

		meta.Attempts = attempt + 1
		resp, err := g.textGen.GenerateContent(ctx, g.contentRequest(prompt, maxTokens))
		meta.Usage = meta.Usage.Add(resp.Usage)
		meta.Latency = time.Since(start)
		if err == nil {
			return resp, meta, nil
		}
		meta.Err = err.Error()

		switch llm.KindOf(err) {
		case llm.KindOverloaded:
			lastErr = err
			continue
		case llm.KindRateLimited:
			return llm.ContentResponse{}, meta, &Error{
				Kind:     KindProviderRateLimited,
				Message:  "provider rate limit reached",
				Attempts: meta.Attempts,
				Err:      err,
			}
		default:
			return llm.ContentResponse{}, meta, &Error{
				Kind:     KindProviderFailed,
				Message:  "provider error",
				Attempts: meta.Attempts,
				Err:      err,
			}
		}
	}

	return llm.ContentResponse{}, meta, &Error{
		Kind:     KindProviderUnavailable,
		Message:  fmt.Sprintf("provider is temporarily unavailable (overloaded after %d attempts), please try again in a minute", g.opts.MaxAttempts),
		Attempts: g.opts.MaxAttempts,
		Err:      lastErr,
	}
}

// backoff is base*2^n plus up to half a base unit of jitter.
func (g *Generator) backoff(n int) time.Duration {
	base := g.opts.BackoffBase
	return base*time.Duration(1<<n) + time.Duration(g.opts.Jitter()*0.5*float64(base))
}

func (g *Generator) contentRequest(prompt string, maxTokens int) llm.ContentRequest {
	return llm.ContentRequest{
		Prompt:           prompt,
		ResponseMIMEType: jsonMIMEType,
		Schema:           responseSchema(),
		MaxOutputTokens:  maxTokens,
	}
}

// decodeResponse prefers a provider-native structured payload and falls back to the
// text pipeline.
func decodeResponse(resp llm.ContentResponse) (*MealPlan, error) {
	if len(resp.Structured) > 0 {
		if plan, err := DecodePlan(string(resp.Structured)); err == nil {
			return plan, nil
		}
	}
	return ParsePlan(resp.Content)
}

// repair makes the single unconstrained "fix this JSON" call.
func (g *Generator) repair(ctx context.Context, raw string, parseErr error, maxTokens int) (*MealPlan, shared.AgentMeta, error) {
	meta := shared.AgentMeta{AgentName: StageRepair, Attempts: 1}
	start := time.Now()

	malformed := malformedError(raw, parseErr)

	prompt, err := BuildRepairPrompt(raw)
	if err != nil {
		return nil, meta, err
	}
	resp, err := g.textGen.GenerateContent(ctx, g.contentRequest(prompt, maxTokens))
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)
	if err != nil {
		meta.Err = err.Error()
		if llm.KindOf(err) == llm.KindRateLimited {
			return nil, meta, &Error{Kind: KindProviderRateLimited, Message: "provider rate limit reached", Attempts: 1, Err: err}
		}
		return nil, meta, malformed
	}

	plan, err := decodeResponse(resp)
	if err != nil {
		meta.Err = err.Error()
		return nil, meta, malformed
	}
	return plan, meta, nil
}

func malformedError(raw string, parseErr error) *Error {
	e := &Error{
		Kind:        KindMalformedResponse,
		Preview:     Preview(raw),
		Diagnostics: parseErr.Error(),
		Err:         parseErr,
	}
	var se *SyntaxError
	if errors.As(parseErr, &se) {
		e.Message = "LLM returned non-JSON"
	} else {
		e.Message = "LLM returned JSON that doesn't match schema"
	}
	return e
}

// constrainedRepair makes the single call that restates the structure and the
// mismatches found. Its result must conform as is.
func (g *Generator) constrainedRepair(ctx context.Context, req PlanRequest, plan *MealPlan, mismatches []string, maxTokens int) (*MealPlan, shared.AgentMeta, error) {
	meta := shared.AgentMeta{AgentName: StageConstrainedRepair, Attempts: 1}
	start := time.Now()

	failed := func(reasons []string, cause error) *Error {
		return &Error{
			Kind:       KindShapeMismatch,
			Message:    "meal plan does not match the requested structure",
			Mismatches: reasons,
			Err:        cause,
		}
	}

	serialized, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, meta, fmt.Errorf("failed to serialize meal plan: %w", err)
	}
	prompt, err := BuildConstrainedRepairPrompt(req, mismatches, string(serialized))
	if err != nil {
		return nil, meta, err
	}

	resp, err := g.textGen.GenerateContent(ctx, g.contentRequest(prompt, maxTokens))
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)
	if err != nil {
		meta.Err = err.Error()
		if llm.KindOf(err) == llm.KindRateLimited {
			return nil, meta, &Error{Kind: KindProviderRateLimited, Message: "provider rate limit reached", Attempts: 1, Err: err}
		}
		return nil, meta, failed(mismatches, err)
	}

	repaired, err := decodeResponse(resp)
	if err != nil {
		meta.Err = err.Error()
		return nil, meta, failed(mismatches, err)
	}
	if remaining := CheckShape(repaired, req); len(remaining) > 0 {
		meta.Err = joinReasons(remaining)
		return nil, meta, failed(remaining, nil)
	}
	return repaired, meta, nil
}
