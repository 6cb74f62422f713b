package discovery

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-planner/internal/pkg/common"
)

type engineFunc func(ctx context.Context, prompt string) (string, error)

func (f engineFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestFindRecipeURLsParsesAndDedupes(t *testing.T) {
	engine := engineFunc(func(ctx context.Context, prompt string) (string, error) {
		return `Here are some recipes:
1. https://example.com/pad-thai
2. https://example.com/green-curry.
3. https://example.com/pad-thai
4. not-a-url
5. ftp://example.com/ignored
6. https://other.com/tom-yum`, nil
	})

	s := NewService(engine)
	urls := s.FindRecipeURLs(context.Background(), &common.PlanRequest{MealCount: 3})

	require.Len(t, urls, 3)
	assert.Equal(t, "https://example.com/pad-thai", urls[0])
	assert.Equal(t, "https://example.com/green-curry", urls[1], "trailing punctuation stripped")
	assert.Equal(t, "https://other.com/tom-yum", urls[2])
}

func TestFindRecipeURLsCapsAtTwiceRequested(t *testing.T) {
	engine := engineFunc(func(ctx context.Context, prompt string) (string, error) {
		var out string
		for i := 0; i < 10; i++ {
			out += fmt.Sprintf("https://example.com/recipe-%d\n", i)
		}
		return out, nil
	})

	s := NewService(engine)
	urls := s.FindRecipeURLs(context.Background(), &common.PlanRequest{MealCount: 2})
	assert.Len(t, urls, 4)
}

func TestFindRecipeURLsSwallowsEngineErrors(t *testing.T) {
	engine := engineFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", fmt.Errorf("engine down")
	})

	s := NewService(engine)
	urls := s.FindRecipeURLs(context.Background(), &common.PlanRequest{MealCount: 3})
	assert.Empty(t, urls, "discovery failure degrades to an empty list, never an error")
}

func TestFindRecipeURLsEmptyResponse(t *testing.T) {
	engine := engineFunc(func(ctx context.Context, prompt string) (string, error) {
		return "I could not find anything useful.", nil
	})

	s := NewService(engine)
	assert.Empty(t, s.FindRecipeURLs(context.Background(), &common.PlanRequest{MealCount: 3}))
}

func TestBuildQueryIncludesConstraints(t *testing.T) {
	var captured string
	engine := engineFunc(func(ctx context.Context, prompt string) (string, error) {
		captured = prompt
		return "", nil
	})

	s := NewService(engine)
	s.FindRecipeURLs(context.Background(), &common.PlanRequest{
		MealCount:           2,
		Cuisines:            []string{"thai", "vietnamese"},
		DietaryRestrictions: []string{"gluten-free"},
		ExcludeIngredients:  []string{"peanuts"},
		MaxTimeMinutes:      45,
	})

	assert.Contains(t, captured, "thai, vietnamese")
	assert.Contains(t, captured, "gluten-free")
	assert.Contains(t, captured, "peanuts")
	assert.Contains(t, captured, "45 minutes")
}
