package server

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"mentalpoker/internal/config"
	"mentalpoker/internal/handrank"
	"mentalpoker/internal/prover"
	"mentalpoker/internal/zkverify"
)

// stubEngine stands in for the external proving stack.
type stubEngine struct{}

func (stubEngine) Prove(zkverify.CircuitType, prover.Witness) ([]byte, error) {
	return []byte{1}, nil
}

// acceptAll stands in for Groth16 verification; the coordinator's
// commitment checks still run in full.
type acceptAll struct{}

func (acceptAll) Verify(zkverify.CircuitType, []byte, []string) error { return nil }

var (
	tblOnce sync.Once
	tbl     *handrank.Table
)

func testTable(t *testing.T) *handrank.Table {
	t.Helper()
	tblOnce.Do(func() {
		var err error
		tbl, err = handrank.Generate()
		if err != nil {
			panic(err)
		}
	})
	return tbl
}

// Two automated players connect over real websockets and play a complete
// hand to showdown with check/call strategies.
func TestHeadsUpHandOverWebsocket(t *testing.T) {
	if testing.Short() {
		t.Skip("end-to-end hand is slow")
	}
	cfg := config.Default()
	cfg.TurnTimeout = config.Duration{Duration: 10 * time.Second}
	cfg.PhaseTimeout = config.Duration{Duration: 10 * time.Second}

	log := zerolog.Nop()
	srv := New(cfg, log, acceptAll{}, testTable(t))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	done := make(chan []uint64, 2)

	alice, err := prover.NewClient("alice", stubEngine{}, testTable(t), nil, log)
	require.NoError(t, err)
	alice.AutoReady = false
	alice.OnHandEnd = func(reason string, stacks []uint64) {
		require.Contains(t, []string{"showdown", "fold"}, reason)
		done <- stacks
	}
	require.NoError(t, alice.Connect(url, ""))
	defer alice.Close()

	// Wait for alice's room to exist, then join bob into it.
	require.Eventually(t, func() bool { return srv.RoomCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	var roomID string
	srv.mu.Lock()
	for id := range srv.rooms {
		roomID = id
	}
	srv.mu.Unlock()

	bob, err := prover.NewClient("bob", stubEngine{}, testTable(t), nil, log)
	require.NoError(t, err)
	bob.AutoReady = false
	bob.OnHandEnd = func(_ string, stacks []uint64) { done <- stacks }
	require.NoError(t, bob.Connect(url, roomID))
	defer bob.Close()

	select {
	case stacks := <-done:
		var total uint64
		for _, s := range stacks {
			total += s
		}
		require.Equal(t, uint64(200), total, "chips conserved")
	case <-time.After(60 * time.Second):
		t.Fatal("hand did not complete")
	}
}

func TestJoinUnknownRoomRejected(t *testing.T) {
	cfg := config.Default()
	log := zerolog.Nop()
	srv := New(cfg, log, acceptAll{}, testTable(t))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	c, err := prover.NewClient("carol", stubEngine{}, testTable(t), nil, log)
	require.NoError(t, err)
	require.NoError(t, c.Connect(url, "no-such-room"))
	defer c.Close()

	// The join is rejected, so no room ever materializes.
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, 0, srv.RoomCount())
}
