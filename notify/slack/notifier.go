// Package slack posts distributor events to a Slack channel. The notifier
// consumes engine events through a buffered queue so a slow Slack API never
// blocks a claim.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/slack-go/slack"

	"github.com/malbeclabs/airdrop/core/pkg/airdrop"
	"github.com/malbeclabs/airdrop/utils/pkg/retry"
)

// PostMessageClient is the subset of the slack-go client the notifier uses.
type PostMessageClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Config configures the notifier.
type Config struct {
	Logger  *slog.Logger
	Client  PostMessageClient
	Channel string

	// QueueSize bounds the number of pending notifications. Events beyond
	// the bound are dropped with a warning rather than blocking the engine.
	QueueSize int

	// PostTimeout bounds a single PostMessage call. Defaults to 10s.
	PostTimeout time.Duration

	Retry retry.Config
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Client == nil {
		return errors.New("slack client is required")
	}
	if cfg.Channel == "" {
		return errors.New("slack channel is required")
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 256
	}
	if cfg.PostTimeout == 0 {
		cfg.PostTimeout = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return nil
}

// Notifier formats distributor events as Slack messages and posts them from
// a single worker goroutine.
type Notifier struct {
	log     *slog.Logger
	cfg     Config
	queue   chan airdrop.Event
	done    chan struct{}
	closeMu sync.Mutex
	closed  bool
}

func New(cfg Config) (*Notifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := &Notifier{
		log:   cfg.Logger,
		cfg:   cfg,
		queue: make(chan airdrop.Event, cfg.QueueSize),
		done:  make(chan struct{}),
	}
	go n.worker()
	return n, nil
}

// Sink returns the event sink to register with the engine. The sink never
// blocks; when the queue is full the event is dropped.
func (n *Notifier) Sink() airdrop.EventSink {
	return func(ev airdrop.Event) {
		select {
		case n.queue <- ev:
		default:
			n.log.Warn("slack notifier queue full, dropping event", "type", ev.Type)
		}
	}
}

// Close stops accepting events and waits for queued notifications to be
// posted. Safe to call more than once.
func (n *Notifier) Close() {
	n.closeMu.Lock()
	defer n.closeMu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	close(n.queue)
	<-n.done
}

func (n *Notifier) worker() {
	defer close(n.done)
	for ev := range n.queue {
		text := formatEvent(ev)
		if text == "" {
			continue
		}
		if err := n.post(text); err != nil {
			n.log.Warn("failed to post slack notification", "type", ev.Type, "error", err)
		}
	}
}

func (n *Notifier) post(text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), n.cfg.PostTimeout)
	defer cancel()

	return retry.Do(ctx, n.cfg.Retry, func() error {
		_, _, err := n.cfg.Client.PostMessageContext(ctx, n.cfg.Channel,
			slack.MsgOptionText(text, false),
			slack.MsgOptionDisableLinkUnfurl(),
		)
		return err
	})
}

// formatEvent renders an event as Slack mrkdwn. Unknown event types render
// as empty and are skipped.
func formatEvent(ev airdrop.Event) string {
	switch ev.Type {
	case airdrop.EventPhase1Claimed:
		return fmt.Sprintf(":moneybag: Phase 1 claim #%d: `%s` received %d tokens", ev.Ordinal, ev.Wallet, ev.Amount)
	case airdrop.EventPhase2Claimed:
		return fmt.Sprintf(":coin: Phase 2 claim: `%s` received %d tokens (tier %d, balance %d)", ev.Wallet, ev.Amount, ev.Tier, ev.Balance)
	case airdrop.EventProofVerified:
		return fmt.Sprintf(":white_check_mark: Social proof verified for `%s`", ev.Wallet)
	case airdrop.EventPhaseToggled:
		state := "deactivated"
		if ev.Active {
			state = "activated"
		}
		return fmt.Sprintf(":traffic_light: Phase %d %s", ev.Phase, state)
	case airdrop.EventPaused:
		return ":octagonal_sign: Distribution paused"
	case airdrop.EventUnpaused:
		return ":arrow_forward: Distribution resumed"
	default:
		return ""
	}
}
