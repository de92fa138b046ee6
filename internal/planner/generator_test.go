package planner

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"keto-planner/internal/llm"
	"keto-planner/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReply struct {
	resp llm.ContentResponse
	err  error
}

// fakeTextGenerator replays scripted replies; the last one repeats.
type fakeTextGenerator struct {
	mu      sync.Mutex
	replies []fakeReply
	calls   []llm.ContentRequest
}

func (f *fakeTextGenerator) GenerateContent(ctx context.Context, req llm.ContentRequest) (llm.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if len(f.replies) == 0 {
		return llm.ContentResponse{}, errors.New("unexpected call")
	}
	r := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return r.resp, r.err
}

func text(s string) fakeReply {
	return fakeReply{resp: llm.ContentResponse{Content: s, Usage: shared.TokenUsage{TotalTokens: 10}}}
}

func providerErr(kind llm.ErrorKind) fakeReply {
	return fakeReply{err: &llm.ProviderError{Kind: kind, Provider: "fake", Err: errors.New(string(kind))}}
}

func planText(t *testing.T, plan *MealPlan) string {
	t.Helper()
	b, err := json.Marshal(plan)
	require.NoError(t, err)
	return string(b)
}

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func newTestGenerator(gen llm.TextGenerator, sleeps *recordedSleeps, opts Options) *Generator {
	opts.BackoffBase = 100 * time.Millisecond
	opts.Sleep = sleeps.sleep
	opts.Jitter = func() float64 { return 0.5 }
	return NewGenerator(gen, opts)
}

var (
	testTargets = NutritionTargets{CaloriesTotal: 2000, ProteinG: 140, FatG: 150, NetCarbsG: 25}
	twoByThree  = PlanRequest{Days: 2, MealsPerDay: 3}
)

func conformingPlan() *MealPlan {
	return makePlan(
		[]string{"breakfast", "lunch", "dinner"},
		[]string{"breakfast", "lunch", "dinner"},
	)
}

func agentNames(metas []shared.AgentMeta) []string {
	names := make([]string, len(metas))
	for i, m := range metas {
		names[i] = m.AgentName
	}
	return names
}

func TestGenerate_HappyPath(t *testing.T) {
	gen := &fakeTextGenerator{replies: []fakeReply{text("```json\n" + planText(t, conformingPlan()) + "\n```")}}
	sleeps := &recordedSleeps{}

	plan, metas, err := newTestGenerator(gen, sleeps, Options{}).Generate(context.Background(), twoByThree, testTargets)
	require.NoError(t, err)
	assert.Len(t, plan.Days, 2)
	assert.Equal(t, []string{StageGenerate}, agentNames(metas))
	assert.Equal(t, 1, metas[0].Attempts)
	assert.Equal(t, 10, metas[0].Usage.TotalTokens)
	assert.Empty(t, sleeps.delays)

	require.Len(t, gen.calls, 1)
	call := gen.calls[0]
	assert.Equal(t, "application/json", call.ResponseMIMEType)
	assert.Equal(t, 1820, call.MaxOutputTokens)
	assert.NotNil(t, call.Schema)
}

func TestGenerate_PrefersStructuredPayload(t *testing.T) {
	gen := &fakeTextGenerator{replies: []fakeReply{{resp: llm.ContentResponse{
		Content:    "not json at all",
		Structured: json.RawMessage(planText(t, conformingPlan())),
	}}}}

	plan, _, err := newTestGenerator(gen, &recordedSleeps{}, Options{}).Generate(context.Background(), twoByThree, testTargets)
	require.NoError(t, err)
	assert.Len(t, plan.Days, 2)
	assert.Len(t, gen.calls, 1)
}

func TestGenerate_RetryCeiling(t *testing.T) {
	gen := &fakeTextGenerator{replies: []fakeReply{providerErr(llm.KindOverloaded)}}
	sleeps := &recordedSleeps{}

	_, metas, err := newTestGenerator(gen, sleeps, Options{}).Generate(context.Background(), twoByThree, testTargets)
	require.Error(t, err)
	assert.Equal(t, KindProviderUnavailable, KindOf(err))
	assert.Len(t, gen.calls, 3)
	assert.Equal(t, []time.Duration{125 * time.Millisecond, 225 * time.Millisecond}, sleeps.delays)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Attempts)
	assert.Equal(t, llm.KindOverloaded, llm.KindOf(pe.Err))

	require.Len(t, metas, 1)
	assert.Equal(t, 3, metas[0].Attempts)
}

func TestGenerate_AttemptsAreCapped(t *testing.T) {
	gen := &fakeTextGenerator{replies: []fakeReply{providerErr(llm.KindOverloaded)}}
	sleeps := &recordedSleeps{}

	_, _, err := newTestGenerator(gen, sleeps, Options{MaxAttempts: 64}).Generate(context.Background(), twoByThree, testTargets)
	require.Error(t, err)
	assert.Len(t, gen.calls, 10)
	require.Len(t, sleeps.delays, 9)
	for i := 1; i < len(sleeps.delays); i++ {
		assert.Greater(t, sleeps.delays[i], sleeps.delays[i-1])
	}
}

func TestGenerate_OverloadThenSuccess(t *testing.T) {
	gen := &fakeTextGenerator{replies: []fakeReply{
		providerErr(llm.KindOverloaded),
		text(planText(t, conformingPlan())),
	}}
	sleeps := &recordedSleeps{}

	_, metas, err := newTestGenerator(gen, sleeps, Options{}).Generate(context.Background(), twoByThree, testTargets)
	require.NoError(t, err)
	assert.Len(t, gen.calls, 2)
	assert.Len(t, sleeps.delays, 1)
	assert.Equal(t, 2, metas[0].Attempts)
}

func TestGenerate_RateLimitShortCircuit(t *testing.T) {
	gen := &fakeTextGenerator{replies: []fakeReply{providerErr(llm.KindRateLimited)}}
	sleeps := &recordedSleeps{}

	_, _, err := newTestGenerator(gen, sleeps, Options{}).Generate(context.Background(), twoByThree, testTargets)
	require.Error(t, err)
	assert.Equal(t, KindProviderRateLimited, KindOf(err))
	assert.Len(t, gen.calls, 1)
	assert.Empty(t, sleeps.delays)
}

func TestGenerate_OtherProviderError(t *testing.T) {
	gen := &fakeTextGenerator{replies: []fakeReply{providerErr(llm.KindOther)}}
	sleeps := &recordedSleeps{}

	_, _, err := newTestGenerator(gen, sleeps, Options{}).Generate(context.Background(), twoByThree, testTargets)
	assert.Equal(t, KindProviderFailed, KindOf(err))
	assert.Len(t, gen.calls, 1)
	assert.Empty(t, sleeps.delays)
}

func TestGenerate_CancelledDuringBackoff(t *testing.T) {
	gen := &fakeTextGenerator{replies: []fakeReply{providerErr(llm.KindOverloaded)}}
	g := NewGenerator(gen, Options{
		Sleep: func(ctx context.Context, d time.Duration) error { return context.Canceled },
	})

	_, _, err := g.Generate(context.Background(), twoByThree, testTargets)
	assert.Equal(t, KindProviderUnavailable, KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, gen.calls, 1)
}

func TestGenerate_InvalidInput(t *testing.T) {
	gen := &fakeTextGenerator{}
	g := NewGenerator(gen, Options{})

	_, _, err := g.Generate(context.Background(), PlanRequest{Days: 0, MealsPerDay: 3}, testTargets)
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, _, err = g.Generate(context.Background(), PlanRequest{Days: 1, MealsPerDay: 7}, testTargets)
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, _, err = g.Generate(context.Background(), twoByThree, NutritionTargets{CaloriesTotal: -1})
	assert.Equal(t, KindInvalidInput, KindOf(err))

	assert.Empty(t, gen.calls)
}

func TestGenerate_UnconstrainedRepair(t *testing.T) {
	gen := &fakeTextGenerator{replies: []fakeReply{
		text(`{"days": [oops`),
		text(planText(t, conformingPlan())),
	}}

	plan, metas, err := newTestGenerator(gen, &recordedSleeps{}, Options{}).Generate(context.Background(), twoByThree, testTargets)
	require.NoError(t, err)
	assert.Len(t, plan.Days, 2)
	assert.Equal(t, []string{StageGenerate, StageRepair}, agentNames(metas))

	require.Len(t, gen.calls, 2)
	assert.Contains(t, gen.calls[1].Prompt, "Fix the JSON below")
	assert.Contains(t, gen.calls[1].Prompt, `{"days": [oops`)
}

func TestGenerate_MalformedAfterRepair(t *testing.T) {
	raw := "Sorry, I can't produce that.\nPlease try again."
	gen := &fakeTextGenerator{replies: []fakeReply{text(raw), text("still not json")}}

	_, metas, err := newTestGenerator(gen, &recordedSleeps{}, Options{}).Generate(context.Background(), twoByThree, testTargets)
	require.Error(t, err)
	assert.Equal(t, KindMalformedResponse, KindOf(err))

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, `Sorry, I can't produce that.\nPlease try again.`, pe.Preview)
	assert.Contains(t, pe.Diagnostics, "line 1 col 1")
	assert.Contains(t, err.Error(), "LLM returned non-JSON")
	assert.Len(t, gen.calls, 2)
	assert.Equal(t, []string{StageGenerate, StageRepair}, agentNames(metas))
}

func TestGenerate_SchemaMismatchIsMalformed(t *testing.T) {
	gen := &fakeTextGenerator{replies: []fakeReply{text(`{"days": []}`)}}

	_, _, err := newTestGenerator(gen, &recordedSleeps{}, Options{}).Generate(context.Background(), twoByThree, testTargets)
	assert.Equal(t, KindMalformedResponse, KindOf(err))
	assert.Contains(t, err.Error(), "doesn't match schema")
}

func TestGenerate_RepairRateLimited(t *testing.T) {
	gen := &fakeTextGenerator{replies: []fakeReply{text("nope"), providerErr(llm.KindRateLimited)}}

	_, _, err := newTestGenerator(gen, &recordedSleeps{}, Options{}).Generate(context.Background(), twoByThree, testTargets)
	assert.Equal(t, KindProviderRateLimited, KindOf(err))
}

func TestGenerate_NormalizesShape(t *testing.T) {
	source := makePlan([]string{"lunch", "dinner"})
	gen := &fakeTextGenerator{replies: []fakeReply{text(planText(t, source))}}

	plan, metas, err := newTestGenerator(gen, &recordedSleeps{}, Options{}).Generate(context.Background(), twoByThree, testTargets)
	require.NoError(t, err)
	require.Len(t, plan.Days, 2)
	for _, day := range plan.Days {
		assert.Equal(t, []string{"breakfast", "lunch", "dinner"}, mealNamesOf(day))
		assert.Empty(t, day.Meals[0].Items)
		assert.Equal(t, "lunch food", day.Meals[1].Items[0].Name)
	}
	assert.Equal(t, []string{StageGenerate, StageNormalize}, agentNames(metas))
	assert.Len(t, gen.calls, 1)
}

func TestGenerate_ConstrainedRepair(t *testing.T) {
	source := makePlan([]string{"lunch", "dinner"})
	gen := &fakeTextGenerator{replies: []fakeReply{
		text(planText(t, source)),
		text(planText(t, conformingPlan())),
	}}

	plan, metas, err := newTestGenerator(gen, &recordedSleeps{}, Options{DisableNormalize: true}).
		Generate(context.Background(), twoByThree, testTargets)
	require.NoError(t, err)
	assert.Len(t, plan.Days, 2)
	assert.Equal(t, []string{StageGenerate, StageConstrainedRepair}, agentNames(metas))

	require.Len(t, gen.calls, 2)
	prompt := gen.calls[1].Prompt
	assert.Contains(t, prompt, "expected 2 days, got 1")
	assert.Contains(t, prompt, "day 1: expected 3 meals, got 2")
	assert.Contains(t, prompt, `"lunch food"`)
}

func TestGenerate_ConstrainedRepairFails(t *testing.T) {
	source := makePlan([]string{"lunch", "dinner"})
	gen := &fakeTextGenerator{replies: []fakeReply{
		text(planText(t, source)),
		text(planText(t, makePlan([]string{"brunch"}))),
	}}

	_, metas, err := newTestGenerator(gen, &recordedSleeps{}, Options{DisableNormalize: true}).
		Generate(context.Background(), twoByThree, testTargets)
	require.Error(t, err)
	assert.Equal(t, KindShapeMismatch, KindOf(err))

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Mismatches, "expected 2 days, got 1")
	assert.True(t, strings.Contains(err.Error(), "does not match the requested structure"))
	assert.NotEmpty(t, metas[len(metas)-1].Err)
	assert.Len(t, gen.calls, 2)
}

func TestGenerate_ConcurrentUse(t *testing.T) {
	gen := &fakeTextGenerator{replies: []fakeReply{text(planText(t, conformingPlan()))}}
	g := newTestGenerator(gen, &recordedSleeps{}, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := g.Generate(context.Background(), twoByThree, testTargets)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, gen.calls, 8)
}
