package almanac_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/almanac/pkg/almanac"
)

// TestCompose_TwoStage verifies composition of the two-stage example.
func TestCompose_TwoStage(t *testing.T) {
	t.Parallel()

	p := twoStage(t)
	composed := almanac.Compose(p.Tables()[0], p.Tables()[1])

	assert.Equal(t, "a-to-c", composed.Name())
	assert.Equal(t, uint64(203), composed.Map(3))
	assert.Equal(t, uint64(107), composed.Map(7))

	// 100..104 are not covered by stage A, so stage B alone applies.
	assert.Equal(t, uint64(202), composed.Map(102))
	assert.Equal(t, uint64(105), composed.Map(105))
}

// TestCompose_IdentityRangeInFirst verifies a self-mapping range in the first table.
func TestCompose_IdentityRangeInFirst(t *testing.T) {
	t.Parallel()

	first, err := almanac.NewTable("a-to-b", []almanac.Triple{{Destination: 10, Source: 10, Length: 10}})
	require.NoError(t, err)

	second, err := almanac.NewTable("b-to-c", []almanac.Triple{{Destination: 500, Source: 0, Length: 30}})
	require.NoError(t, err)

	composed := almanac.Compose(first, second)

	for v := range uint64(40) {
		assert.Equal(t, second.Map(first.Map(v)), composed.Map(v), "value %d", v)
	}
}

// TestFlatten_Example verifies the flattened table agrees with feed-forward.
func TestFlatten_Example(t *testing.T) {
	t.Parallel()

	p := examplePipeline(t)
	flat := p.Flatten()

	assert.Equal(t, "seed-to-location", flat.Name())

	for v := range uint64(200) {
		require.Equal(t, p.FeedForward(v), flat.Map(v), "value %d", v)
	}

	for _, seed := range exampleSeeds {
		assert.Equal(t, p.FeedForward(seed), flat.Map(seed))
	}
}

// TestFlatten_Random verifies composition on random disjoint tables.
func TestFlatten_Random(t *testing.T) {
	t.Parallel()

	const (
		stages  = 4
		ranges  = 12
		span    = 400
		maxLen  = 30
		rounds  = 20
		probeTo = span + maxLen*2
	)

	rng := rand.New(rand.NewPCG(7, 11))

	for range rounds {
		tables := make([]*almanac.Table, 0, stages)

		for s := range stages {
			var (
				triples []almanac.Triple
				cursor  uint64
			)

			for range ranges {
				cursor += rng.Uint64N(maxLen)
				length := 1 + rng.Uint64N(maxLen)

				triples = append(triples, almanac.Triple{
					Destination: rng.Uint64N(span),
					Source:      cursor,
					Length:      length,
				})

				cursor += length
			}

			table, err := almanac.NewTable(string(rune('a'+s))+"-to-"+string(rune('b'+s)), triples)
			require.NoError(t, err)

			tables = append(tables, table)
		}

		p := almanac.NewPipeline(tables...)
		flat := p.Flatten()

		for v := range uint64(probeTo) {
			require.Equal(t, p.FeedForward(v), flat.Map(v), "value %d", v)
		}
	}
}

// TestFlatten_Empty verifies an empty pipeline flattens to identity.
func TestFlatten_Empty(t *testing.T) {
	t.Parallel()

	flat := almanac.NewPipeline().Flatten()
	assert.Equal(t, uint64(9), flat.Map(9))
}
