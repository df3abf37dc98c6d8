package room

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"mentalpoker/internal/elgamal"
	"mentalpoker/internal/holdem"
	"mentalpoker/internal/mpcrypto"
	"mentalpoker/internal/wire"
	"mentalpoker/internal/zkverify"
)

// unmaskTracker follows one card through cooperative unmasking. The card's
// current state lives in the room's canonical deck; the tracker records who
// has stripped their layer and, for community cards, whose turn it is.
type unmaskTracker struct {
	cardIndex    int
	ownerID      string // empty for community cards
	isCommunity  bool
	contributors map[string]bool
	queue        []string // community only: pending players, head acts next
}

// dealCards assigns deterministic deck slots: hand-seat p holds positions
// 2p and 2p+1, the board occupies 2N..2N+4. Hole unmask requests then fan
// out to every non-owner.
func (r *Room) dealCards() {
	r.cancelTimer()
	r.phase = PhaseDealing
	n := len(r.handSeats)

	for p, id := range r.handSeats {
		player := r.players[id]
		player.HoleIndices = []int{2 * p, 2*p + 1}
		r.sender.Send(id, wire.TypeCardsDealt, wire.CardsDealt{YourCards: player.HoleIndices})
	}
	r.boardSlots = r.boardSlots[:0]
	for i := 0; i < 5; i++ {
		r.boardSlots = append(r.boardSlots, 2*n+i)
	}

	r.phase = PhaseUnmaskingHole
	for p, id := range r.handSeats {
		for _, slot := range []int{2 * p, 2*p + 1} {
			r.trackers[slot] = &unmaskTracker{
				cardIndex:    slot,
				ownerID:      id,
				contributors: map[string]bool{},
			}
			r.fanOutHoleRequests(slot)
		}
	}
	r.armUnmaskTimer()
}

// fanOutHoleRequests (re-)issues the card's current state to every
// non-owner that has not contributed yet. Each accepted unmask advances the
// canonical state, so laggards always receive a fresh pre-image to prove
// against.
func (r *Room) fanOutHoleRequests(slot int) {
	t := r.trackers[slot]
	req := wire.UnmaskRequest{
		CardIndex:   slot,
		ForPlayerID: t.ownerID,
		Card:        wire.EncodeCard(r.deck[slot]),
	}
	for _, id := range r.handSeats {
		if id == t.ownerID || t.contributors[id] {
			continue
		}
		r.sender.Send(id, wire.TypeUnmaskRequest, req)
	}
}

func (r *Room) armUnmaskTimer() {
	r.armTimer(r.cfg.PhaseTimeoutD(), func() {
		if r.phase != PhaseUnmaskingHole && r.phase != PhaseUnmaskingStreet {
			return
		}
		// Forfeit the first player still owing an unmask; the hand aborts
		// because their layer is unremovable.
		for _, t := range r.trackers {
			for _, id := range r.pendingUnmaskers(t) {
				if p, ok := r.players[id]; ok {
					r.forfeitPlayer(p, "unmask timeout")
					return
				}
			}
		}
	})
}

// pendingUnmaskers lists players that still owe a layer on this card.
func (r *Room) pendingUnmaskers(t *unmaskTracker) []string {
	if t.isCommunity {
		return t.queue
	}
	out := []string{}
	for _, id := range r.handSeats {
		if id != t.ownerID && !t.contributors[id] {
			out = append(out, id)
		}
	}
	return out
}

// handleUnmask validates and applies one partial unmask.
func (r *Room) handleUnmask(playerID string, m wire.SubmitUnmask) {
	p := r.players[playerID]
	if r.phase != PhaseUnmaskingHole && r.phase != PhaseUnmaskingStreet {
		r.sendError(playerID, wire.CodeInvalidState, "no unmask in progress")
		return
	}
	t, ok := r.trackers[m.CardIndex]
	if !ok {
		r.sendError(playerID, wire.CodeInvalidCard, "card is not being unmasked")
		return
	}
	if t.contributors[playerID] {
		r.sendError(playerID, wire.CodeAlreadyUnmasked, "layer already removed")
		return
	}
	if t.isCommunity {
		if len(t.queue) == 0 || t.queue[0] != playerID {
			r.sendError(playerID, wire.CodeNotYourTurn, "not your unmask turn")
			return
		}
	} else if playerID == t.ownerID {
		r.sendError(playerID, wire.CodeInvalidUnmask, "owners do not unmask their own hole cards")
		return
	}

	newCard, err := wire.DecodeCard(m.UnmaskedCard)
	if err != nil {
		r.sendError(playerID, wire.CodeInvalidCard, err.Error())
		return
	}
	cur := r.deck[m.CardIndex]
	if !mpcrypto.PointEq(newCard.Epk, cur.Epk) {
		r.proofRejected(p, wire.CodeInvalidUnmask, "partial unmask must not change the ephemeral key")
		return
	}
	newCommit := elgamal.CardCommitment(newCard)

	if len(m.PublicSignals) != 4 {
		r.sendError(playerID, wire.CodeInvalidMessage, "unmask expects 4 public signals")
		return
	}
	// A stale pre-image is a benign race on fanned-out hole cards: another
	// layer landed first. Reject without burning the proof-failure budget
	// and re-issue the fresh state.
	if !equalSignals(m.PublicSignals[:1], []string{wire.FieldString(r.cardCommits[m.CardIndex])}) {
		r.sendError(playerID, wire.CodeCommitmentMismatch, "card state advanced; re-derive from latest state")
		if !t.isCommunity {
			r.fanOutHoleRequests(m.CardIndex)
		}
		return
	}
	pubX, pubY := p.Pub.Strings()
	expected := []string{wire.FieldString(newCommit), pubX, pubY}
	if !equalSignals(m.PublicSignals[1:], expected) {
		r.proofRejected(p, wire.CodeCommitmentMismatch, "public signals do not match canonical card commitment")
		return
	}

	slot := m.CardIndex
	r.enqueueVerify(playerID, zkverify.CircuitUnmask, m.Proof, m.PublicSignals, func(err error) {
		cont, still := r.trackers[slot]
		if !still || cont != t || t.contributors[playerID] {
			return
		}
		if r.phase != PhaseUnmaskingHole && r.phase != PhaseUnmaskingStreet {
			return
		}
		if err != nil {
			r.proofRejected(p, wire.CodeInvalidProof, err.Error())
			return
		}
		// The state may have advanced while this proof was in flight; the
		// pre-image it speaks for must still be the canonical one.
		if !equalSignals(m.PublicSignals[:1], []string{wire.FieldString(r.cardCommits[slot])}) {
			r.sendError(playerID, wire.CodeCommitmentMismatch, "card state advanced; re-derive from latest state")
			if !t.isCommunity {
				r.fanOutHoleRequests(slot)
			}
			return
		}
		r.applyUnmask(t, playerID, newCard, newCommit)
	})
}

func (r *Room) applyUnmask(t *unmaskTracker, playerID string, newCard elgamal.Card, newCommit fr.Element) {
	slot := t.cardIndex
	r.deck[slot] = newCard
	r.cardCommits[slot] = newCommit
	t.contributors[playerID] = true

	if t.isCommunity {
		if len(t.queue) > 0 && t.queue[0] == playerID {
			t.queue = t.queue[1:]
		}
		remaining := len(t.queue)
		r.broadcast(wire.TypeCardPartiallyUnmask, wire.CardPartiallyUnmasked{
			CardIndex:        slot,
			ByPlayerID:       playerID,
			RemainingUnmasks: remaining,
			CardCommitment:   wire.FieldString(newCommit),
		})
		if remaining > 0 {
			r.requestCommunityUnmask(t)
			return
		}
		r.finishCommunityCard(t)
		return
	}

	remaining := len(r.pendingUnmaskers(t))
	r.broadcast(wire.TypeCardPartiallyUnmask, wire.CardPartiallyUnmasked{
		CardIndex:        slot,
		ByPlayerID:       playerID,
		RemainingUnmasks: remaining,
		CardCommitment:   wire.FieldString(newCommit),
	})
	if remaining > 0 {
		r.fanOutHoleRequests(slot)
		return
	}
	// Every non-owner stripped a layer; the remaining mask is the owner's
	// own, so only the owner can finish the decryption locally.
	r.sender.Send(t.ownerID, wire.TypeCardFullyUnmasked, wire.CardFullyUnmasked{
		CardIndex: slot,
		Card:      wire.EncodeCard(r.deck[slot]),
	})
	delete(r.trackers, slot)
	if r.phase == PhaseUnmaskingHole && len(r.trackers) == 0 {
		r.cancelTimer()
		r.startBetting()
	}
}

// beginStreetReveal advances the betting street and queues its community
// cards for sequential unmasking by every player.
func (r *Room) beginStreetReveal() {
	g := r.game
	street, err := g.AdvanceStreet()
	if err != nil {
		r.log.Error().Err(err).Msg("advance street")
		r.abortHand("internal street error")
		return
	}
	if street == holdem.StreetShowdown {
		r.beginShowdown()
		return
	}

	var slots []int
	switch street {
	case holdem.StreetFlop:
		slots = r.boardSlots[0:3]
	case holdem.StreetTurn:
		slots = r.boardSlots[3:4]
	case holdem.StreetRiver:
		slots = r.boardSlots[4:5]
	}

	r.phase = PhaseUnmaskingStreet
	r.pendingStreet = append([]int(nil), slots...)
	r.streetRevealed = r.streetRevealed[:0]
	r.startNextCommunityCard()
}

// startNextCommunityCard opens the next queued board card, or closes the
// street once all its cards are public.
func (r *Room) startNextCommunityCard() {
	if len(r.pendingStreet) == 0 {
		r.finishStreetReveal()
		return
	}
	slot := r.pendingStreet[0]
	r.pendingStreet = r.pendingStreet[1:]
	t := &unmaskTracker{
		cardIndex:    slot,
		isCommunity:  true,
		contributors: map[string]bool{},
		queue:        append([]string(nil), r.handSeats...),
	}
	r.trackers[slot] = t
	r.armUnmaskTimer()
	r.requestCommunityUnmask(t)
}

func (r *Room) requestCommunityUnmask(t *unmaskTracker) {
	if len(t.queue) == 0 {
		return
	}
	r.sender.Send(t.queue[0], wire.TypeUnmaskRequest, wire.UnmaskRequest{
		CardIndex:   t.cardIndex,
		ForPlayerID: wire.CommunityOwner,
		Card:        wire.EncodeCard(r.deck[t.cardIndex]),
	})
}

// finishCommunityCard decodes a fully unmasked board card and broadcasts
// its value.
func (r *Room) finishCommunityCard(t *unmaskTracker) {
	slot := t.cardIndex
	value, err := elgamal.Decode(r.deck[slot])
	if err != nil {
		r.log.Error().Err(err).Int("slot", slot).Msg("board card decode")
		r.abortHand("board card failed to decode")
		return
	}
	r.board = append(r.board, value)
	r.streetRevealed = append(r.streetRevealed, value)
	delete(r.trackers, slot)
	r.broadcast(wire.TypeCardFullyUnmasked, wire.CardFullyUnmasked{
		CardIndex:   slot,
		Card:        wire.EncodeCard(r.deck[slot]),
		IsCommunity: true,
	})
	r.startNextCommunityCard()
}

// finishStreetReveal announces the street and resumes betting, or keeps
// running out the board when no betting is possible.
func (r *Room) finishStreetReveal() {
	r.cancelTimer()
	g := r.game
	r.broadcast(wire.TypeStreetAdvanced, wire.StreetAdvanced{
		Street:               uint8(g.Street),
		CommunityCardIndices: append([]int(nil), r.streetRevealed...),
	})
	if g.CountCanBet() >= 2 {
		r.phase = PhaseBetting
		r.announceTurn()
		return
	}
	// Runout: nobody can bet, reveal the rest of the board.
	if g.Street < holdem.StreetRiver {
		r.beginStreetReveal()
		return
	}
	r.beginShowdown()
}
