package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstReturnsFirstSuccess(t *testing.T) {
	calls := []string{}
	attempts := []Attempt[string]{
		{Name: "a", Run: func(ctx context.Context) (string, error) {
			calls = append(calls, "a")
			return "", errors.New("a down")
		}},
		{Name: "b", Run: func(ctx context.Context) (string, error) {
			calls = append(calls, "b")
			return "from-b", nil
		}},
		{Name: "c", Run: func(ctx context.Context) (string, error) {
			calls = append(calls, "c")
			return "from-c", nil
		}},
	}

	out, name, err := First(context.Background(), "text", attempts)
	require.NoError(t, err)
	assert.Equal(t, "from-b", out)
	assert.Equal(t, "b", name)
	// c is never reached once b succeeds
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestFirstAggregatesAllFailures(t *testing.T) {
	attempts := []Attempt[string]{
		{Name: "alpha", Run: func(ctx context.Context) (string, error) {
			return "", errors.New("quota exceeded")
		}},
		{Name: "beta", Run: func(ctx context.Context) (string, error) {
			return "", errors.New("timeout")
		}},
	}

	_, _, err := First(context.Background(), "image", attempts)
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.Failures, 2)
	assert.Contains(t, err.Error(), "alpha: quota exceeded")
	assert.Contains(t, err.Error(), "beta: timeout")
}

func TestFirstWithNoAttempts(t *testing.T) {
	_, _, err := First[string](context.Background(), "judge", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no providers configured")
}

type stubText struct {
	name      string
	available bool
}

func (s stubText) Name() string    { return s.name }
func (s stubText) Available() bool { return s.available }
func (s stubText) Complete(ctx context.Context, system, user string, opts CompleteOpts) (string, error) {
	return "", nil
}

func TestOrderTextFiltersAndOrders(t *testing.T) {
	providers := map[string]TextProvider{
		"openai":    stubText{name: "openai", available: false},
		"anthropic": stubText{name: "anthropic", available: true},
		"ollama":    stubText{name: "ollama", available: true},
	}

	chain := OrderText([]string{"openai", "anthropic", "ollama"}, providers)
	require.Len(t, chain, 2)
	assert.Equal(t, "anthropic", chain[0].Name())
	assert.Equal(t, "ollama", chain[1].Name())
}
