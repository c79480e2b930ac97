package almanac_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/almanac/pkg/almanac"
)

func tri(destination, source, length uint64) almanac.Triple {
	return almanac.Triple{Destination: destination, Source: source, Length: length}
}

// exampleSeeds are the seeds of the canonical example almanac.
var exampleSeeds = []uint64{79, 14, 55, 13}

// exampleBlocks lists the canonical example tables in chain order.
var exampleBlocks = []struct {
	name    string
	triples []almanac.Triple
}{
	{"seed-to-soil", []almanac.Triple{tri(50, 98, 2), tri(52, 50, 48)}},
	{"soil-to-fertilizer", []almanac.Triple{tri(0, 15, 37), tri(37, 52, 2), tri(39, 0, 15)}},
	{"fertilizer-to-water", []almanac.Triple{tri(49, 53, 8), tri(0, 11, 42), tri(42, 0, 7), tri(57, 7, 4)}},
	{"water-to-light", []almanac.Triple{tri(88, 18, 7), tri(18, 25, 70)}},
	{"light-to-temperature", []almanac.Triple{tri(45, 77, 23), tri(81, 45, 19), tri(68, 64, 13)}},
	{"temperature-to-humidity", []almanac.Triple{tri(0, 69, 1), tri(1, 0, 69)}},
	{"humidity-to-location", []almanac.Triple{tri(60, 56, 37), tri(56, 93, 4)}},
}

// Known answers for the example almanac.
const (
	exampleMinLocation     = 35
	exampleMinSpanLocation = 46
)

func exampleTables(t *testing.T) []*almanac.Table {
	t.Helper()

	tables := make([]*almanac.Table, 0, len(exampleBlocks))

	for _, block := range exampleBlocks {
		table, err := almanac.NewTable(block.name, block.triples)
		require.NoError(t, err)

		tables = append(tables, table)
	}

	return tables
}

func examplePipeline(t *testing.T) *almanac.Pipeline {
	t.Helper()

	return almanac.NewPipeline(exampleTables(t)...)
}
