package js8call

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/statwatch-io/statwatch/internal/adapter/metrics"
	"github.com/statwatch-io/statwatch/internal/domain"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second

	// A session that survived this long resets the reconnect backoff.
	healthySession = time.Minute
)

// Handler receives each directed frame as it arrives off the radio.
type Handler func(ctx context.Context, frame domain.RawFrame)

// Client maintains the TCP session with a JS8Call instance. It reconnects
// with exponential backoff and tears down sessions that go silent for
// longer than the inactivity budget, since JS8Call holds the socket open
// even when the rig has died.
type Client struct {
	addr       string
	inactivity time.Duration
	handler    Handler
	logger     *slog.Logger
	metrics    *metrics.ListenerMetrics

	mu   sync.Mutex
	conn net.Conn
}

// NewClient creates a new Client. The handler is invoked inline from the
// read loop; it must not block indefinitely.
func NewClient(addr string, inactivity time.Duration, handler Handler, logger *slog.Logger, m *metrics.ListenerMetrics) *Client {
	return &Client{
		addr:       addr,
		inactivity: inactivity,
		handler:    handler,
		logger:     logger,
		metrics:    m,
	}
}

// Run connects and keeps reconnecting until the context is canceled.
func (c *Client) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // retry for as long as the process lives

	for {
		start := time.Now()
		err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if time.Since(start) >= healthySession {
			bo.Reset()
		}
		delay := bo.NextBackOff()
		c.metrics.ReconnectsTotal.Inc()
		c.logger.Warn("radio session ended, reconnecting", "error", err, "delay", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// session runs one connection lifecycle: dial, handshake, read until the
// socket breaks, the inactivity budget expires or the context is canceled.
func (c *Client) session(ctx context.Context) error {
	conn, err := net.DialTimeout("tcp", c.addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.addr, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.metrics.JS8CallUp.Set(1)
	c.logger.Info("connected to radio", "addr", c.addr)

	defer func() {
		c.metrics.JS8CallUp.Set(0)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	// Unblock the read loop when the context dies.
	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-sessCtx.Done()
		conn.Close()
	}()

	// Asking for the station callsign doubles as a liveness probe and
	// confirms the peer actually speaks the API.
	if err := c.send(conn, Message{Type: TypeStationGetCallsign}); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if c.inactivity > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(c.inactivity)); err != nil {
				return err
			}
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read: %w", err)
			}
			return fmt.Errorf("connection closed by peer")
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			c.logger.Debug("discarding undecodable api event", "error", err)
			continue
		}
		c.dispatch(ctx, msg)
	}
}

func (c *Client) dispatch(ctx context.Context, msg Message) {
	switch msg.Type {
	case TypeRxDirected:
		c.handler(ctx, FrameFromMessage(msg))
	case TypeStationCallsign:
		c.logger.Info("radio reports station callsign", "callsign", msg.Value)
	case TypePing, TypeRxSpot:
		// Traffic we don't archive still proves the link is alive.
	default:
		c.logger.Debug("ignoring api event", "type", msg.Type)
	}
}

func (c *Client) send(conn net.Conn, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	_, err = conn.Write(append(payload, '\n'))
	return err
}
