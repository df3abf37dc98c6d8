package prover

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"mentalpoker/internal/mpcrypto"
)

func mustHash2(a, b fr.Element) fr.Element {
	return mpcrypto.Hash2(a, b)
}

// boardCommitment mirrors the coordinator's board binding: the hash of the
// five board card values in reveal order.
func boardCommitment(board []int) fr.Element {
	in := make([]fr.Element, len(board))
	for i, v := range board {
		in[i].SetUint64(uint64(v))
	}
	return mpcrypto.MustHash(in...)
}
