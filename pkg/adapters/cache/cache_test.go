package cache

import (
	"context"
	"testing"
	"time"

	"github.com/aescanero/eduvid/internal/domain"
	"github.com/aescanero/eduvid/pkg/adapters/cache/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "concept_knowledge:Binary Search:Algorithms",
		Key("concept_knowledge", "Binary Search", "Algorithms"))
}

func TestJSONRoundTripThroughCache(t *testing.T) {
	ctx := context.Background()
	c := memory.NewCache()

	in := domain.ConceptContext{
		Concept:       domain.Concept{Name: "Binary Search", Description: "halving search"},
		Prerequisites: []domain.Concept{{Name: "Arrays"}},
	}
	require.NoError(t, SetJSON(ctx, c, "k", in, time.Minute))

	var out domain.ConceptContext
	ok, err := GetJSON(ctx, c, "k", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestGetJSON_CorruptPayloadIsMiss(t *testing.T) {
	ctx := context.Background()
	c := memory.NewCache()
	require.NoError(t, c.Set(ctx, "k", []byte("{not json"), time.Minute))

	var out domain.ConceptContext
	ok, err := GetJSON(ctx, c, "k", &out)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestNopAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c Nop
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
