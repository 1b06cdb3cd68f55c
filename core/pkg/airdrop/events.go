package airdrop

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a distributor event for external observers.
type EventType string

const (
	EventProofSubmitted EventType = "proof_submitted"
	EventProofVerified  EventType = "proof_verified"
	EventPhase1Claimed  EventType = "phase1_claimed"
	EventPhase2Claimed  EventType = "phase2_claimed"
	EventPhaseToggled   EventType = "phase_toggled"
	EventPaused         EventType = "paused"
	EventUnpaused       EventType = "unpaused"
)

// Event is emitted after a state mutation has been durably committed. Fields
// beyond Type and Wallet are populated per event type.
type Event struct {
	ID     uuid.UUID `json:"id"`
	Type   EventType `json:"type"`
	Wallet string    `json:"wallet,omitempty"`

	// Claim events.
	Amount  uint64 `json:"amount,omitempty"`
	Tier    int    `json:"tier,omitempty"`
	Balance uint64 `json:"balance,omitempty"`
	Ordinal uint64 `json:"ordinal,omitempty"`

	// Verification events carry the resulting flags.
	XVerified       bool `json:"x_verified,omitempty"`
	DiscordVerified bool `json:"discord_verified,omitempty"`
	ShareVerified   bool `json:"share_verified,omitempty"`

	// Phase toggle events.
	Phase  int  `json:"phase,omitempty"`
	Active bool `json:"active,omitempty"`

	At time.Time `json:"at"`
}

// EventSink receives distributor events. Sinks are called synchronously after
// commit, in subscription order, and must not block.
type EventSink func(Event)

// Subscribe registers a sink for all future events. Not safe to call after
// the engine starts serving traffic.
func (e *Engine) Subscribe(sink EventSink) {
	e.sinks = append(e.sinks, sink)
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	ev.ID = uuid.New()
	ev.At = e.clock.Now().UTC()

	if err := e.store.RecordEvent(ctx, ev); err != nil {
		e.log.Warn("engine: failed to record event", "type", ev.Type, "error", err)
	}

	e.log.Debug("engine: event", "type", ev.Type, "wallet", ev.Wallet)
	for _, sink := range e.sinks {
		sink(ev)
	}
}
