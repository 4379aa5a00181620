// Package edge models the interest relationship between two users as a single
// state machine instead of four independently mutated sets per user. The
// per-user interest sets stored on profile documents are projections of this
// state; the reducer here is pure and the interest service translates its
// decisions into store writes.
package edge

import (
	"github.com/osavenko/matcha/backend/internal/domain/enums"
	"github.com/osavenko/matcha/backend/internal/domain/model"
)

type Pair struct {
	Low  string
	High string
}

func NewPair(a, b string) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{Low: a, High: b}
}

func (p Pair) Key() string {
	return p.Low + "|" + p.High
}

// State describes the edge from the acting user's perspective toward the
// target. Matched states are terminal.
type State int

const (
	StateNone State = iota
	StateOutgoingLike
	StateOutgoingSuperLike
	StateIncomingLike
	StateIncomingSuperLike
	StateMatchedLike
	StateMatchedSuperLike
)

func (s State) Matched() bool {
	return s == StateMatchedLike || s == StateMatchedSuperLike
}

type Outcome int

const (
	OutcomeNoChange Outcome = iota
	OutcomeRecorded
	OutcomeMatched
)

type Decision struct {
	Next    State
	Outcome Outcome
	// Kind is set when Outcome is OutcomeMatched, and on OutcomeNoChange
	// against an already-matched edge (the existing match kind).
	Kind enums.MatchKind
}

// Derive computes the edge state from the two profile snapshots read at the
// start of an Apply call. Incoming interest is checked before outgoing so a
// racing counterpart's recorded interest is what the following transition
// promotes on, and super-like dominates like throughout.
func Derive(actor, target model.UserProfile) State {
	switch {
	case actor.InSuperLikeMatches(target.ID) || target.InSuperLikeMatches(actor.ID):
		return StateMatchedSuperLike
	case actor.InLikeMatches(target.ID) || target.InLikeMatches(actor.ID):
		return StateMatchedLike
	case target.InSuperLikedUsers(actor.ID):
		return StateIncomingSuperLike
	case target.InLikedUsers(actor.ID):
		return StateIncomingLike
	case actor.InSuperLikedUsers(target.ID):
		return StateOutgoingSuperLike
	case actor.InLikedUsers(target.ID):
		return StateOutgoingLike
	default:
		return StateNone
	}
}

func Transition(state State, intent enums.Intent) Decision {
	if state.Matched() {
		kind := enums.MatchKindLike
		if state == StateMatchedSuperLike {
			kind = enums.MatchKindSuperLike
		}
		return Decision{Next: state, Outcome: OutcomeNoChange, Kind: kind}
	}

	switch intent {
	case enums.IntentLike:
		switch state {
		case StateIncomingSuperLike:
			return Decision{Next: StateMatchedSuperLike, Outcome: OutcomeMatched, Kind: enums.MatchKindSuperLike}
		case StateIncomingLike:
			return Decision{Next: StateMatchedLike, Outcome: OutcomeMatched, Kind: enums.MatchKindLike}
		default:
			return Decision{Next: StateOutgoingLike, Outcome: OutcomeRecorded}
		}
	case enums.IntentSuperLike:
		switch state {
		case StateIncomingSuperLike, StateIncomingLike:
			return Decision{Next: StateMatchedSuperLike, Outcome: OutcomeMatched, Kind: enums.MatchKindSuperLike}
		default:
			return Decision{Next: StateOutgoingSuperLike, Outcome: OutcomeRecorded}
		}
	case enums.IntentDislike:
		// A dislike only severs interest directed at the actor; the actor's
		// own outgoing interest, if any, stays as recorded.
		switch state {
		case StateIncomingSuperLike, StateIncomingLike:
			return Decision{Next: StateNone, Outcome: OutcomeRecorded}
		default:
			return Decision{Next: state, Outcome: OutcomeRecorded}
		}
	default:
		return Decision{Next: state, Outcome: OutcomeNoChange}
	}
}
