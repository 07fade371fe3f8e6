package interaction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spvis/spvis-go/pkg/connection"
	"github.com/spvis/spvis-go/pkg/log"
	"github.com/spvis/spvis-go/pkg/transport"
	"github.com/spvis/spvis-go/pkg/wire"
)

// ErrConnectionLost fails requests that were in flight when the bridge
// connection dropped.
var ErrConnectionLost = errors.New("bridge connection lost")

// DialConfig configures Dial.
type DialConfig struct {
	// TLSConfig enables TLS 1.3. Nil dials plain TCP.
	TLSConfig *transport.TLSConfig

	// ClientName is sent in Hello.
	ClientName string

	// Timeout bounds requests without a context deadline (default: 30s).
	Timeout time.Duration

	// Retry controls dial attempts. Zero value dials once.
	Retry connection.DialConfig

	// Logger receives operational logs (optional).
	Logger *slog.Logger

	// ProtocolLogger receives frame and message events (optional).
	ProtocolLogger log.Logger
}

// Conn is a Client bound to its bridge connection.
type Conn struct {
	*Client
	conn   *transport.ClientConn
	logger *slog.Logger
	done   chan struct{}
}

// Dial connects to a bridge, starts the response reader and exchanges Hello.
func Dial(ctx context.Context, address string, cfg DialConfig) (*Conn, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	tc, err := transport.NewClient(transport.ClientConfig{
		TLSConfig: cfg.TLSConfig,
		Logger:    cfg.ProtocolLogger,
	})
	if err != nil {
		return nil, err
	}

	retry := cfg.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = func(attempt int, delay time.Duration, err error) {
			cfg.Logger.Warn("bridge dial failed", "address", address, "attempt", attempt, "retry_in", delay, "error", err)
		}
	}

	var conn *transport.ClientConn
	err = connection.Dial(ctx, func(ctx context.Context) error {
		c, err := tc.Connect(ctx, address)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}, retry)
	if err != nil {
		return nil, fmt.Errorf("dial bridge %s: %w", address, err)
	}

	client := NewClient(conn)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	if cfg.ProtocolLogger != nil {
		client.SetLogger(cfg.ProtocolLogger, conn.ConnID())
	}

	c := &Conn{
		Client: client,
		conn:   conn,
		logger: cfg.Logger,
		done:   make(chan struct{}),
	}
	go c.readLoop()

	hello, err := client.Hello(ctx, cfg.ClientName)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("hello: %w", err)
	}
	cfg.Logger.Info("connected to bridge",
		"address", address,
		"bridge", hello.Bridge,
		"version", hello.Version,
		"multiplexed", hello.Multiplexed,
		"tls", conn.TLSState() != nil)

	return c, nil
}

func (c *Conn) readLoop() {
	defer close(c.done)
	for {
		data, err := c.conn.Receive(0)
		if err != nil {
			select {
			case <-c.conn.Done():
				c.Client.fail(ErrClientClosed)
			default:
				if err != io.EOF {
					c.logger.Warn("bridge read failed", "error", err)
				}
				c.Client.fail(ErrConnectionLost)
			}
			return
		}

		resp, err := wire.DecodeResponse(data)
		if err != nil {
			c.logger.Warn("dropping undecodable response", "error", err)
			continue
		}
		if err := c.Client.HandleResponse(resp); err != nil {
			// Late answer to a request that timed out.
			c.logger.Debug("unmatched response", "message_id", resp.MessageID, "status", resp.Status)
		}
	}
}

// Close closes the bridge connection and fails pending requests.
func (c *Conn) Close() error {
	c.Client.fail(ErrClientClosed)
	err := c.conn.Close()
	<-c.done
	return err
}

// Done is closed once the connection has stopped reading.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}
