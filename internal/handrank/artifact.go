package handrank

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// The build artifact is a pair of JSON files mapping decimal prime-product
// strings to integer ranks, the same format the circuit table generator
// emits. Categories are recomputed on load from the class ranks.

const (
	BasicFileName = "basic.json"
	FlushFileName = "flush.json"
)

func entriesToJSON(entries []Entry) map[string]uint16 {
	out := make(map[string]uint16, len(entries))
	for _, e := range entries {
		out[strconv.FormatUint(e.PrimeProduct, 10)] = e.Rank
	}
	return out
}

// Save writes the two lookup files into dir.
func (t *Table) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("handrank: mkdir: %w", err)
	}
	for _, f := range []struct {
		name    string
		entries []Entry
	}{
		{BasicFileName, t.Basic},
		{FlushFileName, t.Flush},
	} {
		b, err := json.MarshalIndent(entriesToJSON(f.entries), "", "  ")
		if err != nil {
			return fmt.Errorf("handrank: encode %s: %w", f.name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, f.name), b, 0o644); err != nil {
			return fmt.Errorf("handrank: write %s: %w", f.name, err)
		}
	}
	return nil
}

func loadFile(path string, want int) ([]Entry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("handrank: read %s: %w", path, err)
	}
	var m map[string]uint16
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("handrank: decode %s: %w", path, err)
	}
	if len(m) != want {
		return nil, fmt.Errorf("handrank: %s has %d classes, want %d", path, len(m), want)
	}
	entries := make([]Entry, 0, len(m))
	for k, rank := range m {
		pp, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("handrank: key %q in %s: %w", k, path, err)
		}
		entries = append(entries, Entry{PrimeProduct: pp, Rank: rank})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Rank < entries[j].Rank })
	return entries, nil
}

// Load reads the lookup files from dir. When dir is empty or the files are
// missing, the table is generated in process instead; both paths yield the
// identical table, so the roots agree with the circuit artifact either way.
func Load(dir string) (*Table, error) {
	if dir == "" {
		return Generate()
	}
	basic, err := loadFile(filepath.Join(dir, BasicFileName), NumBasicHands)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Generate()
		}
		return nil, err
	}
	flush, err := loadFile(filepath.Join(dir, FlushFileName), NumFlushHands)
	if err != nil {
		return nil, err
	}

	// Re-derive categories from a generated table so descriptions stay
	// available to showdown reporting.
	gen, err := Generate()
	if err != nil {
		return nil, err
	}
	t := &Table{
		basicByKey: make(map[uint64]Entry, len(basic)),
		flushByKey: make(map[uint64]Entry, len(flush)),
	}
	for _, e := range basic {
		ref, err := gen.Lookup(e.PrimeProduct, false)
		if err != nil || ref.Rank != e.Rank {
			return nil, fmt.Errorf("handrank: basic artifact disagrees with generator at key %d", e.PrimeProduct)
		}
		e.Category = ref.Category
		t.Basic = append(t.Basic, e)
		t.basicByKey[e.PrimeProduct] = e
	}
	for _, e := range flush {
		ref, err := gen.Lookup(e.PrimeProduct, true)
		if err != nil || ref.Rank != e.Rank {
			return nil, fmt.Errorf("handrank: flush artifact disagrees with generator at key %d", e.PrimeProduct)
		}
		e.Category = ref.Category
		t.Flush = append(t.Flush, e)
		t.flushByKey[e.PrimeProduct] = e
	}
	return t, nil
}

// Roots builds both trees and returns (rootBasic, rootFlush).
func (t *Table) Roots() (fr.Element, fr.Element, error) {
	bt, err := BuildTree(t.Basic, false)
	if err != nil {
		return fr.Element{}, fr.Element{}, err
	}
	ft, err := BuildTree(t.Flush, true)
	if err != nil {
		return fr.Element{}, fr.Element{}, err
	}
	return bt.Root(), ft.Root(), nil
}
