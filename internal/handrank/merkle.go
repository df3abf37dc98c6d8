package handrank

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"mentalpoker/internal/mpcrypto"
)

// TreeDepth covers both class lists: leaves are padded to 2^13 = 8192.
const TreeDepth = 13

const numLeaves = 1 << TreeDepth

// MerkleTree is the full node set of one class list: levels[0] holds the
// 8192 leaves, levels[TreeDepth] the root.
type MerkleTree struct {
	levels [][]fr.Element
}

// LeafHash commits one table entry: H(primeProduct, rank, isFlush).
func LeafHash(e Entry, isFlush bool) fr.Element {
	var pp, rk, fl fr.Element
	pp.SetUint64(e.PrimeProduct)
	rk.SetUint64(uint64(e.Rank))
	if isFlush {
		fl.SetOne()
	}
	return mpcrypto.MustHash(pp, rk, fl)
}

// BuildTree hashes the entries into leaves, zero-pads to 2^13, and folds
// pairwise with the two-input Poseidon at every internal node.
func BuildTree(entries []Entry, isFlush bool) (*MerkleTree, error) {
	if len(entries) > numLeaves {
		return nil, fmt.Errorf("handrank: %d entries exceed %d leaves", len(entries), numLeaves)
	}
	leaves := make([]fr.Element, numLeaves)
	for i, e := range entries {
		leaves[i] = LeafHash(e, isFlush)
	}

	t := &MerkleTree{levels: make([][]fr.Element, TreeDepth+1)}
	t.levels[0] = leaves
	for d := 1; d <= TreeDepth; d++ {
		prev := t.levels[d-1]
		level := make([]fr.Element, len(prev)/2)
		for i := range level {
			level[i] = mpcrypto.Hash2(prev[2*i], prev[2*i+1])
		}
		t.levels[d] = level
	}
	return t, nil
}

// Root returns the tree root.
func (t *MerkleTree) Root() fr.Element {
	return t.levels[TreeDepth][0]
}

// Proof is a sibling path from a leaf to the root. PathBits[d] is the
// leaf-side position at depth d: 0 when the running hash is the left input.
type Proof struct {
	Leaf     fr.Element
	Siblings [TreeDepth]fr.Element
	PathBits [TreeDepth]uint8
}

// Prove constructs the sibling path for leaf index i.
func (t *MerkleTree) Prove(index int) (Proof, error) {
	if index < 0 || index >= numLeaves {
		return Proof{}, fmt.Errorf("handrank: leaf index %d out of range", index)
	}
	var p Proof
	p.Leaf = t.levels[0][index]
	pos := index
	for d := 0; d < TreeDepth; d++ {
		sib := pos ^ 1
		p.Siblings[d] = t.levels[d][sib]
		p.PathBits[d] = uint8(pos & 1)
		pos >>= 1
	}
	return p, nil
}

// VerifyProof folds the path and compares against the root.
func VerifyProof(root fr.Element, p Proof) bool {
	h := p.Leaf
	for d := 0; d < TreeDepth; d++ {
		if p.PathBits[d] == 0 {
			h = mpcrypto.Hash2(h, p.Siblings[d])
		} else {
			h = mpcrypto.Hash2(p.Siblings[d], h)
		}
	}
	return h.Equal(&root)
}
