package sender

import (
	"context"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// ConnState is the state of the client's socket.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnected
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("ConnState(%d)", int(s))
}

// Client writes plaintext protocol lines to a single carbon endpoint.
//
// A Client owns one socket and is not safe for concurrent use; callers sharing a client must
// serialize access themselves.
type Client struct {
	config    Config
	formatter formatter
	dialer    Dialer
	logger    logrus.FieldLogger
	now       func() time.Time

	conn  net.Conn
	state ConnState
	// tornDown is set by Disconnect and cleared by Connect. Sends never redial while it is set.
	tornDown bool
}

// NewClient validates the config, composes the metric prefix and connects.
// A failed connection is returned as a *ConnectionError.
func NewClient(ctx context.Context, config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	prefix, err := buildPrefix(config.Prefix, config.SystemName, config.Group, config.Hostname, config.FQDNSquash)
	if err != nil {
		return nil, err
	}

	c := &Client{
		config: config,
		formatter: formatter{
			prefix:    prefix,
			suffix:    config.Suffix,
			sanitizer: Sanitizer{Lowercase: config.LowercaseMetricNames},
		},
		dialer: config.Dialer,
		logger: config.Logger,
		now:    config.Clock,
	}
	if c.dialer == nil {
		c.dialer = &net.Dialer{Timeout: config.DialTimeout}
	}
	if c.logger == nil {
		c.logger = discardLogger()
	}
	if c.now == nil {
		c.now = time.Now
	}

	if config.DryRun {
		return c, nil
	}

	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) Prefix() string {
	return c.formatter.prefix
}

func (c *Client) Suffix() string {
	return c.formatter.suffix
}

// Addr returns the host:port the client sends to.
func (c *Client) Addr() string {
	return c.config.Address()
}

func (c *Client) State() ConnState {
	return c.state
}

// CleanMetricName applies the client's sanitization rules to name.
func (c *Client) CleanMetricName(name string) string {
	return c.formatter.sanitizer.Clean(name)
}

// Connect opens the socket. It does nothing when the client is already connected.
func (c *Client) Connect(ctx context.Context) error {
	if c.state == StateConnected && c.conn != nil {
		return nil
	}
	c.tornDown = false

	network := c.config.Protocol.network()
	address := c.config.Address()

	if c.config.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.DialTimeout)
		defer cancel()
	}

	conn, err := c.dialer.DialContext(ctx, network, address)
	if err != nil {
		c.conn = nil
		c.state = StateDisconnected
		return &ConnectionError{Network: network, Address: address, Err: err}
	}

	c.conn = conn
	c.state = StateConnected
	c.logger.WithFields(logrus.Fields{"network": network, "address": address}).Debug("connected to graphite")
	return nil
}

// Disconnect releases the socket. It is safe to call more than once. Sends fail with
// ErrDisconnected until Connect is called again.
func (c *Client) Disconnect() {
	c.closeConn()
	c.state = StateDisconnected
	c.tornDown = true
}

// Reconnect disconnects and connects again.
func (c *Client) Reconnect(ctx context.Context) error {
	c.Disconnect()
	return c.Connect(ctx)
}

func (c *Client) closeConn() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		c.logger.WithError(err).Debug("error closing graphite connection")
	}
	c.conn = nil
	c.logger.Debug("disconnected from graphite")
}

// Send sends a single metric stamped with the current time.
func (c *Client) Send(ctx context.Context, name string, value float64) (string, error) {
	return c.SendListAt(ctx, []Sample{NewSample(name, value)}, time.Time{})
}

// SendAt sends a single metric with an explicit timestamp.
func (c *Client) SendAt(ctx context.Context, name string, value float64, timestamp time.Time) (string, error) {
	return c.SendListAt(ctx, []Sample{NewSample(name, value)}, timestamp)
}

// SendList sends the samples as one message. Samples without a timestamp share the current time.
func (c *Client) SendList(ctx context.Context, samples []Sample) (string, error) {
	return c.SendListAt(ctx, samples, time.Time{})
}

// SendListAt sends the samples as one message. Samples without a timestamp use timestamp, or
// the current time when timestamp is zero.
//
// On success it returns a status line containing the byte length of the message.
func (c *Client) SendListAt(ctx context.Context, samples []Sample, timestamp time.Time) (string, error) {
	message, err := c.formatter.format(samples, timestamp, c.now())
	if err != nil {
		return "", err
	}

	status := fmt.Sprintf("sent %d long message: %s", len(message), message)
	if c.config.DryRun {
		return status, nil
	}

	if err := c.ensureConnected(ctx); err != nil {
		return "", err
	}

	if err := c.write(message); err != nil {
		c.closeConn()
		c.state = StateFailed
		return "", &SendError{Op: "write", Err: err}
	}

	c.logger.WithField("bytes", len(message)).Debug("sent metrics to graphite")
	return status, nil
}

// SendMap sends every entry of metrics, ordered by name.
func (c *Client) SendMap(ctx context.Context, metrics map[string]float64) (string, error) {
	return c.SendMapAt(ctx, metrics, time.Time{})
}

func (c *Client) SendMapAt(ctx context.Context, metrics map[string]float64, timestamp time.Time) (string, error) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	samples := make([]Sample, 0, len(names))
	for _, name := range names {
		samples = append(samples, NewSample(name, metrics[name]))
	}
	return c.SendListAt(ctx, samples, timestamp)
}

func (c *Client) ensureConnected(ctx context.Context) error {
	if c.state == StateConnected {
		if c.conn == nil {
			return &SendError{Op: "connect", Err: ErrNotConnected}
		}
		return nil
	}

	if c.tornDown {
		return &SendError{Op: "connect", Err: ErrDisconnected}
	}

	c.logger.WithField("state", c.state).Debug("reconnecting to graphite")
	c.closeConn()
	if err := c.Connect(ctx); err != nil {
		return &SendError{Op: "reconnect", Err: err}
	}
	return nil
}

func (c *Client) write(message string) error {
	if c.config.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
			return err
		}
	}
	_, err := c.conn.Write([]byte(message))
	return err
}
