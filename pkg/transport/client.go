package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spvis/spvis-go/pkg/log"
)

// ClientConfig configures a bridge client.
type ClientConfig struct {
	// TLSConfig enables TLS 1.3. Nil dials plain TCP.
	TLSConfig *TLSConfig

	// MaxMessageSize is the maximum message size (default: 1 MiB).
	MaxMessageSize uint32

	// ConnectTimeout is the connection timeout (default: 10s).
	ConnectTimeout time.Duration

	// Logger for protocol logging (optional).
	Logger log.Logger
}

// Client dials bridges.
type Client struct {
	config  ClientConfig
	tlsConf *tls.Config
}

// NewClient creates a new bridge client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}

	c := &Client{config: config}
	if config.TLSConfig != nil {
		tlsConf, err := NewClientTLSConfig(config.TLSConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		c.tlsConf = tlsConf
	}

	return c, nil
}

// Connect establishes a connection to the specified address.
func (c *Client) Connect(ctx context.Context, address string) (*ClientConn, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{KeepAlive: 30 * time.Second}
	raw, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	conn := raw
	var state *tls.ConnectionState
	if c.tlsConf != nil {
		tlsConn := tls.Client(raw, c.tlsConf)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			raw.Close()
			return nil, fmt.Errorf("TLS handshake failed: %w", err)
		}
		st := tlsConn.ConnectionState()
		if err := VerifyConnection(st); err != nil {
			tlsConn.Close()
			return nil, fmt.Errorf("connection verification failed: %w", err)
		}
		conn = tlsConn
		state = &st
	}

	connID := uuid.New().String()
	framer := NewFramerWithMaxSize(conn, c.config.MaxMessageSize)
	if c.config.Logger != nil {
		framer.SetLogger(c.config.Logger, connID, log.RoleClient, raw.RemoteAddr().String())
	}

	return &ClientConn{
		conn:     conn,
		framer:   framer,
		tlsState: state,
		connID:   connID,
		closeCh:  make(chan struct{}),
	}, nil
}

// ClientConn represents a connection from client to bridge.
type ClientConn struct {
	conn     net.Conn
	framer   *Framer
	tlsState *tls.ConnectionState
	connID   string
	closeCh  chan struct{}

	closeOnce sync.Once
	readMu    sync.Mutex
}

// ConnID returns the unique connection identifier.
func (c *ClientConn) ConnID() string {
	return c.connID
}

// TLSState returns the TLS connection state, or nil for plain TCP.
func (c *ClientConn) TLSState() *tls.ConnectionState {
	return c.tlsState
}

// LocalAddr returns the local network address.
func (c *ClientConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *ClientConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Send sends a message to the bridge.
func (c *ClientConn) Send(data []byte) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	return c.framer.WriteFrame(data)
}

// Receive receives a message from the bridge. A zero timeout blocks until a
// frame arrives or the connection closes.
func (c *ClientConn) Receive(timeout time.Duration) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	select {
	case <-c.closeCh:
		return nil, ErrConnectionClosed
	default:
	}

	if timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(timeout))
		defer c.conn.SetReadDeadline(time.Time{})
	}

	return c.framer.ReadFrame()
}

// Done is closed when Close has been called.
func (c *ClientConn) Done() <-chan struct{} {
	return c.closeCh
}

// Close closes the connection.
func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}
