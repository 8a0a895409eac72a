package broadcast

import (
	"context"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"
)

// State is a point in a submission's life.
type State string

const (
	StateBuilt            State = "built"
	StateValidated        State = "validated"
	StateAlreadyInChain   State = "already_in_chain"
	StateAlreadyInMempool State = "already_in_mempool"
	StateRejected         State = "rejected"
	StateAccepted         State = "accepted"
	StateRelayed          State = "relayed"
)

const (
	eventValidate       = "validate"
	eventReject         = "reject"
	eventFoundInChain   = "found_in_chain"
	eventFoundInMempool = "found_in_mempool"
	eventAccept         = "accept"
	eventRelay          = "relay"
)

// Terminal reports whether no further stage runs after s.
func (s State) Terminal() bool {
	switch s {
	case StateAlreadyInChain, StateAlreadyInMempool, StateRejected, StateRelayed:
		return true
	}
	return false
}

// newStateMachine returns the submission state machine:
//
//	built -> validated -> already_in_chain | already_in_mempool | rejected | accepted
//	accepted -> relayed
func newStateMachine(logger zerolog.Logger, txid string) *fsm.FSM {
	return fsm.NewFSM(
		string(StateBuilt),
		fsm.Events{
			{Name: eventValidate, Src: []string{string(StateBuilt)}, Dst: string(StateValidated)},
			{
				Name: eventReject,
				Src:  []string{string(StateBuilt), string(StateValidated)},
				Dst:  string(StateRejected),
			},
			{Name: eventFoundInChain, Src: []string{string(StateValidated)}, Dst: string(StateAlreadyInChain)},
			{Name: eventFoundInMempool, Src: []string{string(StateValidated)}, Dst: string(StateAlreadyInMempool)},
			{Name: eventAccept, Src: []string{string(StateValidated)}, Dst: string(StateAccepted)},
			{Name: eventRelay, Src: []string{string(StateAccepted)}, Dst: string(StateRelayed)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logger.Debug().Str("txid", txid).Str("from", e.Src).Str("to", e.Dst).Msg("broadcast state")
			},
		},
	)
}
