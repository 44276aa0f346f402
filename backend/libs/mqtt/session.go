package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultKeepAlive      = 30 * time.Second
	defaultConnectTimeout = 10 * time.Second
	disconnectQuiesceMs   = 250
)

// ErrConnectionLost is delivered on Session.Lost when the broker link drops.
var ErrConnectionLost = errors.New("mqtt: connection lost")

// Options describes a single broker connection.
type Options struct {
	Host           string
	Port           int
	ClientID       string
	Username       string
	Password       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	UseTLS         bool
}

// BrokerURL renders the paho broker address for the options.
func (o Options) BrokerURL() string {
	scheme := "tcp"
	if o.UseTLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, o.Host, o.Port)
}

// Handler receives every message delivered on a subscription.
type Handler func(topic string, payload []byte)

// Session is one connected paho client. Paho's automatic reconnect is off;
// a lost connection is reported once on Lost and the session is then dead.
type Session struct {
	client paho.Client
	lost   chan error
}

func clientOptions(o Options, lost chan error) *paho.ClientOptions {
	if o.KeepAlive <= 0 {
		o.KeepAlive = defaultKeepAlive
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}

	opts := paho.NewClientOptions().
		AddBroker(o.BrokerURL()).
		SetClientID(o.ClientID).
		SetKeepAlive(o.KeepAlive).
		SetConnectTimeout(o.ConnectTimeout).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetOrderMatters(true)

	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}
	if o.UseTLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts.SetConnectionLostHandler(lostHandler(lost))
	return opts
}

func lostHandler(lost chan error) paho.ConnectionLostHandler {
	return func(_ paho.Client, err error) {
		if err == nil {
			err = ErrConnectionLost
		} else {
			err = fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}
		select {
		case lost <- err:
		default:
		}
	}
}

// Dial connects to the broker and blocks until the CONNACK arrives, the
// connect timeout passes or ctx is done.
func Dial(ctx context.Context, o Options) (*Session, error) {
	lost := make(chan error, 1)
	client := paho.NewClient(clientOptions(o, lost))

	if err := wait(ctx, client.Connect()); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt: connect %s: %w", o.BrokerURL(), err)
	}
	return &Session{client: client, lost: lost}, nil
}

// Subscribe registers h for topic filter and waits for the SUBACK.
func (s *Session) Subscribe(ctx context.Context, filter string, qos byte, h Handler) error {
	token := s.client.Subscribe(filter, qos, func(_ paho.Client, m paho.Message) {
		h(m.Topic(), m.Payload())
	})
	if err := wait(ctx, token); err != nil {
		return fmt.Errorf("mqtt: subscribe %s: %w", filter, err)
	}
	return nil
}

// Lost yields one error when the connection drops.
func (s *Session) Lost() <-chan error {
	return s.lost
}

// Close disconnects, giving in-flight work a short quiesce period.
func (s *Session) Close() {
	if s.client.IsConnected() {
		s.client.Disconnect(disconnectQuiesceMs)
	}
}

func wait(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
