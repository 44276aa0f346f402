// Package ingest moves sensor messages from the broker into storage.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"greenhouse/backend/libs/mqtt"
)

// ErrBrokerDisconnected is reported when an established session drops.
var ErrBrokerDisconnected = errors.New("ingest: broker disconnected")

// State of the broker connection.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Session is a connected broker client. Lost yields once when the
// connection drops; a lost session is closed and never reused.
type Session interface {
	Subscribe(ctx context.Context, filter string, qos byte, h mqtt.Handler) error
	Lost() <-chan error
	Close()
}

// Dialer opens a new session.
type Dialer func(ctx context.Context) (Session, error)

// MessageHandler processes one delivered message. It must not block for
// long: the next message is delivered only after it returns.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// SubscriberConfig configures the subscription.
type SubscriberConfig struct {
	Topic   string
	QoS     byte
	Backoff time.Duration
}

// Subscriber keeps one broker session alive and feeds its messages to a
// handler. It reconnects after a fixed backoff until its context ends.
type Subscriber struct {
	dial     Dialer
	handle   MessageHandler
	cfg      SubscriberConfig
	backoff  backoff.BackOff
	state    atomic.Int32
	attempts atomic.Int64
	logger   *zap.Logger
	onState  func(State)
	onRetry  func()
}

// SubscriberOption customises a Subscriber.
type SubscriberOption func(*Subscriber)

// WithStateHook calls fn on every state transition.
func WithStateHook(fn func(State)) SubscriberOption {
	return func(s *Subscriber) { s.onState = fn }
}

// WithRetryHook calls fn before each reconnect attempt.
func WithRetryHook(fn func()) SubscriberOption {
	return func(s *Subscriber) { s.onRetry = fn }
}

// NewSubscriber returns a subscriber in the Disconnected state.
func NewSubscriber(dial Dialer, handle MessageHandler, cfg SubscriberConfig, logger *zap.Logger, opts ...SubscriberOption) *Subscriber {
	if cfg.Backoff <= 0 {
		cfg.Backoff = 5 * time.Second
	}
	s := &Subscriber{
		dial:    dial,
		handle:  handle,
		cfg:     cfg,
		backoff: backoff.NewConstantBackOff(cfg.Backoff),
		logger:  logger.Named("subscriber"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current connection state.
func (s *Subscriber) State() State {
	return State(s.state.Load())
}

// Connected reports whether a session is up.
func (s *Subscriber) Connected() bool {
	return s.State() == StateConnected
}

func (s *Subscriber) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev == next {
		return
	}
	s.logger.Info("subscriber state changed",
		zap.Stringer("from", prev),
		zap.Stringer("to", next),
		zap.String("topic", s.cfg.Topic))
	if s.onState != nil {
		s.onState(next)
	}
}

// Run drives Disconnected -> Connecting -> Connected until ctx is done. A
// failed connect or a lost session returns to Disconnected and waits one
// backoff interval before the next attempt. Run returns nil on cancellation.
func (s *Subscriber) Run(ctx context.Context) error {
	s.backoff.Reset()
	first := true

	for {
		if !first {
			if !s.wait(ctx) {
				s.setState(StateDisconnected)
				return nil
			}
			if s.onRetry != nil {
				s.onRetry()
			}
		}
		first = false
		if ctx.Err() != nil {
			s.setState(StateDisconnected)
			return nil
		}

		s.setState(StateConnecting)
		s.attempts.Add(1)
		session, err := s.connect(ctx)
		if err != nil {
			s.setState(StateDisconnected)
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("broker connect failed",
				zap.Duration("retry_in", s.cfg.Backoff),
				zap.Error(err))
			continue
		}

		s.setState(StateConnected)
		s.backoff.Reset()

		err = s.serve(ctx, session)
		session.Close()
		s.setState(StateDisconnected)
		if err == nil {
			return nil
		}
		s.logger.Warn("broker session ended",
			zap.Duration("retry_in", s.cfg.Backoff),
			zap.Error(err))
	}
}

func (s *Subscriber) connect(ctx context.Context) (Session, error) {
	session, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}

	err = session.Subscribe(ctx, s.cfg.Topic, s.cfg.QoS, func(topic string, payload []byte) {
		s.handle(ctx, topic, payload)
	})
	if err != nil {
		session.Close()
		return nil, err
	}
	s.logger.Info("subscribed", zap.String("topic", s.cfg.Topic), zap.Uint8("qos", s.cfg.QoS))
	return session, nil
}

// serve blocks until the session is lost (error) or ctx ends (nil).
func (s *Subscriber) serve(ctx context.Context, session Session) error {
	select {
	case <-ctx.Done():
		return nil
	case err := <-session.Lost():
		return fmt.Errorf("%w: %v", ErrBrokerDisconnected, err)
	}
}

func (s *Subscriber) wait(ctx context.Context) bool {
	d := s.backoff.NextBackOff()
	if d == backoff.Stop {
		d = s.cfg.Backoff
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Attempts returns how many connects have been tried.
func (s *Subscriber) Attempts() int64 {
	return s.attempts.Load()
}
