package modelrouter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu    sync.Mutex
	reqs  []Request
	resps map[string]string
	err   error
}

func (f *fakeClient) Generate(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	if resp, ok := f.resps[req.Prompt]; ok {
		return resp, nil
	}
	return `{"ok":true}`, nil
}

func TestRouteUsesTierConfig(t *testing.T) {
	client := &fakeClient{}
	r := New(client)

	_, err := r.Route(context.Background(), "review this diff", HighQuality, "system")
	require.NoError(t, err)

	require.Len(t, client.reqs, 1)
	assert.Equal(t, "claude-opus-4-5", client.reqs[0].ModelName)
	assert.Equal(t, 8192, client.reqs[0].MaxTokens)
	assert.Equal(t, "review this diff", client.reqs[0].Prompt)
	assert.Equal(t, "system", client.reqs[0].SystemPrompt)
}

func TestRouteUnknownTierFallsBackToBalanced(t *testing.T) {
	client := &fakeClient{}
	r := New(client)

	_, err := r.Route(context.Background(), "p", Tier("nonexistent"), "")
	require.NoError(t, err)

	assert.Equal(t, tiers[Balanced].ModelName, client.reqs[0].ModelName)
}

func TestRouteOptionsOverrideWithoutMutatingTierTable(t *testing.T) {
	client := &fakeClient{}
	r := New(client)

	_, err := r.Route(context.Background(), "p", Fast, "", WithMaxTokens(512), WithTemperature(0.7))
	require.NoError(t, err)

	require.Len(t, client.reqs, 1)
	assert.Equal(t, 512, client.reqs[0].MaxTokens)
	assert.Equal(t, 0.7, client.reqs[0].Temperature)

	// The tier table keeps its fixed defaults for the next call.
	_, err = r.Route(context.Background(), "p", Fast, "")
	require.NoError(t, err)
	assert.Equal(t, 2048, client.reqs[1].MaxTokens)
	assert.Equal(t, 0.1, client.reqs[1].Temperature)
}

func TestRoutePropagatesClientError(t *testing.T) {
	client := &fakeClient{err: errors.New("boom")}
	r := New(client)

	_, err := r.Route(context.Background(), "p", Fast, "")
	assert.ErrorContains(t, err, "boom")
}

type target struct {
	Findings []string `json:"findings"`
}

func TestRouteJSONExtractsAndUnmarshals(t *testing.T) {
	client := &fakeClient{resps: map[string]string{}}
	client.resps["p\n\nYou must respond with valid JSON only. Do not include markdown formatting, explanations, or any text outside the JSON."] =
		"Sure, here you go:\n```json\n{\"findings\":[\"a\",\"b\"]}\n```"
	r := New(client)

	var tgt target
	err := r.RouteJSON(context.Background(), "p", Balanced, "", &tgt)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tgt.Findings)
}

func TestRouteJSONPropagatesClientError(t *testing.T) {
	client := &fakeClient{err: errors.New("down")}
	r := New(client)

	var tgt target
	err := r.RouteJSON(context.Background(), "p", Balanced, "", &tgt)
	assert.ErrorContains(t, err, "down")
}

func TestBatchRouteDropsFailuresKeepsSuccesses(t *testing.T) {
	client := &fakeClient{resps: map[string]string{
		"ok1": "result1",
		"ok2": "result2",
	}}
	r := New(client)

	got := r.BatchRoute(context.Background(), []string{"ok1", "ok2"}, Fast, "")
	assert.ElementsMatch(t, []string{"result1", "result2"}, got)
}

func TestBatchRouteAllFailuresReturnsEmpty(t *testing.T) {
	client := &fakeClient{err: errors.New("unavailable")}
	r := New(client)

	got := r.BatchRoute(context.Background(), []string{"a", "b", "c"}, Fast, "")
	assert.Empty(t, got)
}

func TestSelectTierSecurityAlwaysHighQuality(t *testing.T) {
	assert.Equal(t, HighQuality, SelectTier("security", "low", "low"))
}

func TestSelectTierLowComplexityLowPriorityIsFast(t *testing.T) {
	assert.Equal(t, Fast, SelectTier("style", "low", "low"))
}

func TestSelectTierHighComplexityOrPriorityIsHighQuality(t *testing.T) {
	assert.Equal(t, HighQuality, SelectTier("logic", "high", "low"))
	assert.Equal(t, HighQuality, SelectTier("logic", "low", "high"))
}

func TestSelectTierDefaultIsBalanced(t *testing.T) {
	assert.Equal(t, Balanced, SelectTier("style", "medium", "medium"))
}
