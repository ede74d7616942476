// Package feed maintains the websocket subscription to the mempool projected-blocks feed.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"feewatch/internal/mempool"
	"feewatch/internal/metrics"
)

// State tracks the client lifecycle.
type State int32

const (
	StateConnecting State = iota
	StateHandshaking
	StateStreaming
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateStreaming:
		return "streaming"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Handler consumes text frames in arrival order.
type Handler interface {
	HandleMessage(ctx context.Context, data []byte)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, data []byte)

// HandleMessage calls f.
func (f HandlerFunc) HandleMessage(ctx context.Context, data []byte) {
	f(ctx, data)
}

// Options parameterise the feed connection.
type Options struct {
	URL           string
	DialTimeout   time.Duration
	ReadLimit     int64
	MaxReadErrors int
	UserAgent     string
}

type actionMessage struct {
	Action string   `json:"action"`
	Data   []string `json:"data,omitempty"`
}

var (
	initMessage = actionMessage{Action: "init"}
	wantMessage = actionMessage{Action: "want", Data: []string{mempool.BlocksKey}}
)

// Client runs a single feed session: dial, subscribe, stream until closed.
type Client struct {
	opts   Options
	logger zerolog.Logger
	state  atomic.Int32
}

// NewClient constructs a feed client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 15 * time.Second
	}
	if opts.MaxReadErrors <= 0 {
		opts.MaxReadErrors = 3
	}
	return &Client{opts: opts, logger: logger.With().Str("component", "feed").Logger()}
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
	c.logger.Debug().Str("state", s.String()).Msg("feed state changed")
}

// Run connects and feeds every text frame to h until the stream closes or ctx ends.
// Only dial and handshake failures are returned; a closed stream is a normal exit.
func (c *Client) Run(ctx context.Context, h Handler) error {
	c.setState(StateConnecting)

	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateTerminated)
		return err
	}
	defer conn.CloseNow()

	if c.opts.ReadLimit > 0 {
		conn.SetReadLimit(c.opts.ReadLimit)
	}
	c.logger.Info().Str("url", c.opts.URL).Msg("websocket connection established")

	c.setState(StateHandshaking)
	if err := c.subscribe(ctx, conn); err != nil {
		c.setState(StateTerminated)
		return fmt.Errorf("feed handshake: %w", err)
	}

	c.setState(StateStreaming)
	metrics.FeedConnected.Set(1)
	defer metrics.FeedConnected.Set(0)

	c.stream(ctx, conn, h)
	c.setState(StateTerminated)
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()

	var opts websocket.DialOptions
	if c.opts.UserAgent != "" {
		opts.HTTPHeader = http.Header{"User-Agent": []string{c.opts.UserAgent}}
	}

	conn, _, err := websocket.Dial(dialCtx, c.opts.URL, &opts)
	if err != nil {
		return nil, fmt.Errorf("dial feed %s: %w", c.opts.URL, err)
	}
	return conn, nil
}

// subscribe sends init then want; the feed does not acknowledge either.
func (c *Client) subscribe(ctx context.Context, conn *websocket.Conn) error {
	if err := wsjson.Write(ctx, conn, initMessage); err != nil {
		return fmt.Errorf("send init: %w", err)
	}
	if err := wsjson.Write(ctx, conn, wantMessage); err != nil {
		return fmt.Errorf("send want: %w", err)
	}
	c.logger.Info().Strs("data", wantMessage.Data).Msg("subscribed to feed")
	return nil
}

func (c *Client) stream(ctx context.Context, conn *websocket.Conn, h Handler) {
	failures := 0
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				c.logger.Info().Int("code", int(status)).Msg("feed connection closed")
				return
			}
			if ctx.Err() != nil {
				c.logger.Info().Msg("feed monitoring stopped")
				return
			}

			metrics.FeedReadErrorsTotal.Inc()
			failures++
			if failures >= c.opts.MaxReadErrors || isTerminal(err) {
				c.logger.Error().Err(err).Int("failures", failures).Msg("feed transport unrecoverable")
				return
			}
			c.logger.Error().Err(err).Int("failures", failures).Msg("feed read failed")
			continue
		}
		failures = 0

		switch typ {
		case websocket.MessageText:
			metrics.FeedMessagesTotal.WithLabelValues("text").Inc()
			h.HandleMessage(ctx, data)
		default:
			metrics.FeedMessagesTotal.WithLabelValues("binary").Inc()
			c.logger.Debug().Int("bytes", len(data)).Msg("ignoring binary frame")
		}
	}
}

func isTerminal(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed)
}
