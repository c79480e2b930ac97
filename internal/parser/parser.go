// Package parser reads almanac text: a seeds line followed by blank-line
// separated table blocks of "destination source length" triples.
package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/almanac/pkg/almanac"
)

// Sentinel parse errors.
var (
	ErrMissingSeeds    = errors.New("missing seeds line")
	ErrFieldCount      = errors.New("expected exactly 3 fields")
	ErrNumber          = errors.New("invalid unsigned integer")
	ErrUnexpectedLine  = errors.New("unexpected line")
	ErrOrphanTriple    = errors.New("range line outside a map block")
	ErrDuplicateBlock  = errors.New("duplicate map block")
	ErrOddSeedRanges   = errors.New("seed ranges need start/length pairs")
	ErrNoTables        = errors.New("no map blocks")
	errScannerOverflow = errors.New("line too long")
)

const (
	seedsPrefix  = "seeds:"
	blockSuffix  = " map:"
	tripleFields = 3
	maxLineBytes = 1 << 20
)

// Error locates a parse failure.
type Error struct {
	Line int
	Text string
	Err  error
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

// Unwrap returns the underlying sentinel.
func (e *Error) Unwrap() error {
	return e.Err
}

// Block is one "<name> map:" section.
type Block struct {
	Name    string
	Line    int
	Triples []almanac.Triple
}

// Document is a parsed almanac.
type Document struct {
	Seeds  []uint64
	Blocks []Block
}

// Parse reads an almanac from r.
func Parse(ctx context.Context, r io.Reader) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineBytes)

	doc := &Document{}
	seen := make(map[string]int)

	var (
		lineNo  int
		seeded  bool
		current = -1
	)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("parse almanac: %w", err)
		}

		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			current = -1
		case !seeded:
			seeds, err := parseSeeds(line)
			if err != nil {
				return nil, &Error{Line: lineNo, Text: line, Err: err}
			}

			doc.Seeds = seeds
			seeded = true
		case strings.HasSuffix(line, blockSuffix):
			name := strings.TrimSpace(strings.TrimSuffix(line, blockSuffix))
			if first, dup := seen[name]; dup {
				return nil, &Error{Line: lineNo, Text: line, Err: fmt.Errorf("%w: first at line %d", ErrDuplicateBlock, first)}
			}

			seen[name] = lineNo
			doc.Blocks = append(doc.Blocks, Block{Name: name, Line: lineNo})
			current = len(doc.Blocks) - 1
		case current < 0:
			return nil, &Error{Line: lineNo, Text: line, Err: ErrOrphanTriple}
		default:
			triple, err := ParseTriple(line)
			if err != nil {
				return nil, &Error{Line: lineNo, Text: line, Err: err}
			}

			doc.Blocks[current].Triples = append(doc.Blocks[current].Triples, triple)
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			err = errScannerOverflow
		}

		return nil, fmt.Errorf("read almanac: %w", err)
	}

	if !seeded {
		return nil, ErrMissingSeeds
	}

	return doc, nil
}

// ParseTriple parses "destination source length".
func ParseTriple(line string) (almanac.Triple, error) {
	fields := strings.Fields(line)
	if len(fields) != tripleFields {
		return almanac.Triple{}, fmt.Errorf("%w, got %d", ErrFieldCount, len(fields))
	}

	var nums [tripleFields]uint64

	for i, f := range fields {
		n, err := parseUint(f)
		if err != nil {
			return almanac.Triple{}, err
		}

		nums[i] = n
	}

	return almanac.Triple{Destination: nums[0], Source: nums[1], Length: nums[2]}, nil
}

func parseSeeds(line string) ([]uint64, error) {
	rest, ok := strings.CutPrefix(line, seedsPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: want %q", ErrUnexpectedLine, seedsPrefix)
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil, ErrMissingSeeds
	}

	seeds := make([]uint64, 0, len(fields))

	for _, f := range fields {
		n, err := parseUint(f)
		if err != nil {
			return nil, err
		}

		seeds = append(seeds, n)
	}

	return seeds, nil
}

func parseUint(field string) (uint64, error) {
	n, err := strconv.ParseUint(field, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNumber, field)
	}

	return n, nil
}

// SeedPairs reads the seeds line as "start length" pairs.
func (d *Document) SeedPairs() ([][2]uint64, error) {
	if len(d.Seeds)%2 != 0 {
		return nil, fmt.Errorf("%w: got %d numbers", ErrOddSeedRanges, len(d.Seeds))
	}

	pairs := make([][2]uint64, 0, len(d.Seeds)/2)
	for i := 0; i < len(d.Seeds); i += 2 {
		pairs = append(pairs, [2]uint64{d.Seeds[i], d.Seeds[i+1]})
	}

	return pairs, nil
}

// Tables builds one table per block, in document order.
func (d *Document) Tables() ([]*almanac.Table, error) {
	if len(d.Blocks) == 0 {
		return nil, ErrNoTables
	}

	tables := make([]*almanac.Table, 0, len(d.Blocks))

	for _, b := range d.Blocks {
		table, err := b.Table()
		if err != nil {
			return nil, err
		}

		tables = append(tables, table)
	}

	return tables, nil
}

// Table builds the block's table. Failures are located at the block header.
func (b Block) Table() (*almanac.Table, error) {
	table, err := almanac.NewTable(b.Name, b.Triples)
	if err != nil {
		return nil, &Error{Line: b.Line, Text: b.Name + blockSuffix, Err: err}
	}

	return table, nil
}
