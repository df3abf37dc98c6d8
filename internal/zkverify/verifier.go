// Package zkverify adapts the Groth16 backend to the coordinator: one
// verification key per circuit type, preloaded at process start, and a
// strict verify contract that treats the proving system as a black box.
package zkverify

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
)

// CircuitType is a closed enum of the eight proving circuits.
type CircuitType uint8

const (
	CircuitShuffle CircuitType = iota
	CircuitReshuffle
	CircuitAddKeys
	CircuitMask
	CircuitUnmask
	CircuitGameAction
	CircuitHandEval
	CircuitShowdown

	NumCircuits = 8
)

var circuitNames = [NumCircuits]string{
	"shuffle", "reshuffle", "add_keys", "mask", "unmask", "game_action", "hand_eval", "showdown",
}

func (c CircuitType) String() string {
	if int(c) >= NumCircuits {
		return fmt.Sprintf("circuit(%d)", uint8(c))
	}
	return circuitNames[c]
}

// CircuitFromString resolves a wire name to its circuit type.
func CircuitFromString(name string) (CircuitType, error) {
	for i, n := range circuitNames {
		if n == name {
			return CircuitType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCircuit, name)
}

var (
	ErrUnknownCircuit       = errors.New("zkverify: unknown circuit")
	ErrMalformedProof       = errors.New("zkverify: malformed proof")
	ErrPublicSignalMismatch = errors.New("zkverify: public signal mismatch")
	ErrKeyNotLoaded         = errors.New("zkverify: verification key not loaded")
	ErrInvalid              = errors.New("zkverify: proof invalid")
)

// Verifier checks a proof blob against declared public signals (decimal
// field-element strings, in circuit order). The caller is responsible for
// comparing those signals against its own canonical commitments first.
type Verifier interface {
	Verify(circuit CircuitType, proof []byte, publicSignals []string) error
}

// Groth16Verifier verifies against gnark verification keys loaded from a
// directory of "<circuit>.vk" files. The key table is read-only after
// preload and safe for concurrent use.
type Groth16Verifier struct {
	keys [NumCircuits]groth16.VerifyingKey
}

// KeyFileName returns the on-disk name of a circuit's verification key.
func KeyFileName(c CircuitType) string {
	return c.String() + ".vk"
}

// LoadKeys preloads every key present in dir. Missing files leave the slot
// empty; verifying against an empty slot fails with ErrKeyNotLoaded so a
// coordinator configured for a subset of circuits can still start.
func LoadKeys(dir string) (*Groth16Verifier, error) {
	v := &Groth16Verifier{}
	loaded := 0
	for i := 0; i < NumCircuits; i++ {
		path := filepath.Join(dir, KeyFileName(CircuitType(i)))
		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("zkverify: open %s: %w", path, err)
		}
		vk := groth16.NewVerifyingKey(ecc.BN254)
		_, err = vk.ReadFrom(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("zkverify: read %s: %w", path, err)
		}
		v.keys[i] = vk
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("zkverify: no verification keys found in %s", dir)
	}
	return v, nil
}

// Verify implements Verifier.
func (v *Groth16Verifier) Verify(circuit CircuitType, proof []byte, publicSignals []string) error {
	if int(circuit) >= NumCircuits {
		return fmt.Errorf("%w: %d", ErrUnknownCircuit, uint8(circuit))
	}
	vk := v.keys[circuit]
	if vk == nil {
		return fmt.Errorf("%w: %s", ErrKeyNotLoaded, circuit)
	}

	p := groth16.NewProof(ecc.BN254)
	if _, err := p.ReadFrom(bytes.NewReader(proof)); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedProof, err)
	}

	pub, err := PublicWitness(publicSignals)
	if err != nil {
		return err
	}
	if err := groth16.Verify(p, vk, pub); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// PublicWitness builds a gnark public witness from decimal signal strings.
func PublicWitness(signals []string) (witness.Witness, error) {
	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("zkverify: new witness: %w", err)
	}
	values := make(chan any, len(signals))
	for _, s := range signals {
		var e fr.Element
		if _, err := e.SetString(s); err != nil {
			return nil, fmt.Errorf("%w: signal %q", ErrMalformedProof, s)
		}
		values <- e
	}
	close(values)
	if err := w.Fill(len(signals), 0, values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProof, err)
	}
	return w, nil
}
