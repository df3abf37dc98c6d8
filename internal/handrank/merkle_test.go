package handrank

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMerkleProofRoundTrip(t *testing.T) {
	tbl, err := Generate()
	require.NoError(t, err)
	tree, err := BuildTree(tbl.Flush, true)
	require.NoError(t, err)
	root := tree.Root()

	for _, idx := range []int{0, 1, 700, NumFlushHands - 1} {
		p, err := tree.Prove(idx)
		require.NoError(t, err)
		require.True(t, VerifyProof(root, p), "leaf %d", idx)
	}

	// Padded region proves too: the zero leaf is a member.
	p, err := tree.Prove(NumFlushHands + 5)
	require.NoError(t, err)
	require.True(t, VerifyProof(root, p))
}

func TestMerkleProofRejectsWrongRoot(t *testing.T) {
	tbl, err := Generate()
	require.NoError(t, err)
	basic, err := BuildTree(tbl.Basic, false)
	require.NoError(t, err)
	flush, err := BuildTree(tbl.Flush, true)
	require.NoError(t, err)

	p, err := basic.Prove(10)
	require.NoError(t, err)
	require.True(t, VerifyProof(basic.Root(), p))
	require.False(t, VerifyProof(flush.Root(), p))
}

func TestMerkleProofRejectsTamperedLeaf(t *testing.T) {
	tbl, err := Generate()
	require.NoError(t, err)
	tree, err := BuildTree(tbl.Basic, false)
	require.NoError(t, err)

	p, err := tree.Prove(42)
	require.NoError(t, err)
	p.Leaf.SetUint64(1)
	require.False(t, VerifyProof(tree.Root(), p))
}

func TestProveOutOfRange(t *testing.T) {
	tbl, err := Generate()
	require.NoError(t, err)
	tree, err := BuildTree(tbl.Flush, true)
	require.NoError(t, err)
	_, err = tree.Prove(-1)
	require.Error(t, err)
	_, err = tree.Prove(1 << TreeDepth)
	require.Error(t, err)
}

// Every equivalence class round-trips generation -> tree -> proof ->
// verify. The full sweep is slow; -short samples it.
func TestAllClassesRoundTrip(t *testing.T) {
	tbl, err := Generate()
	require.NoError(t, err)
	basic, err := BuildTree(tbl.Basic, false)
	require.NoError(t, err)
	flush, err := BuildTree(tbl.Flush, true)
	require.NoError(t, err)

	step := 1
	if testing.Short() {
		step = 97
	}
	for i := 0; i < len(tbl.Basic); i += step {
		p, err := basic.Prove(i)
		require.NoError(t, err)
		require.True(t, VerifyProof(basic.Root(), p), "basic leaf %d", i)
		lh := LeafHash(tbl.Basic[i], false)
		require.True(t, p.Leaf.Equal(&lh), "basic leaf hash %d", i)
	}
	for i := 0; i < len(tbl.Flush); i += step {
		p, err := flush.Prove(i)
		require.NoError(t, err)
		require.True(t, VerifyProof(flush.Root(), p), "flush leaf %d", i)
		lh := LeafHash(tbl.Flush[i], true)
		require.True(t, p.Leaf.Equal(&lh), "flush leaf hash %d", i)
	}
}
