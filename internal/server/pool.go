package server

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"mentalpoker/internal/room"
	"mentalpoker/internal/zkverify"
)

// verifyPool bounds CPU-heavy proof verification so one busy room cannot
// starve the rest. Each (room, player) pair may hold a limited number of
// pending jobs; excess submissions bounce with BUSY at the room layer.
type verifyPool struct {
	verifier  zkverify.Verifier
	sem       *semaphore.Weighted
	perPlayer int
	log       zerolog.Logger

	mu      sync.Mutex
	pending map[string]int // roomID+"/"+playerID -> queued jobs
}

func newVerifyPool(verifier zkverify.Verifier, workers, perPlayer int, log zerolog.Logger) *verifyPool {
	return &verifyPool{
		verifier:  verifier,
		sem:       semaphore.NewWeighted(int64(workers)),
		perPlayer: perPlayer,
		log:       log,
		pending:   map[string]int{},
	}
}

// Submit implements room.AsyncVerifier.
func (vp *verifyPool) Submit(job room.VerifyJob) bool {
	key := job.RoomID + "/" + job.PlayerID
	vp.mu.Lock()
	if vp.pending[key] >= vp.perPlayer {
		vp.mu.Unlock()
		return false
	}
	vp.pending[key]++
	vp.mu.Unlock()

	go func() {
		if err := vp.sem.Acquire(context.Background(), 1); err != nil {
			vp.release(key)
			job.Done(err)
			return
		}
		err := vp.verifier.Verify(job.Circuit, job.Proof, job.Signals)
		vp.sem.Release(1)
		vp.release(key)
		if err != nil {
			vp.log.Debug().Err(err).Str("circuit", job.Circuit.String()).Str("player", job.PlayerID).Msg("proof rejected")
		}
		job.Done(err)
	}()
	return true
}

func (vp *verifyPool) release(key string) {
	vp.mu.Lock()
	if vp.pending[key] > 0 {
		vp.pending[key]--
	}
	vp.mu.Unlock()
}
