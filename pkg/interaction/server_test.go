package interaction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spvis/spvis-go/pkg/device"
	"github.com/spvis/spvis-go/pkg/log"
	"github.com/spvis/spvis-go/pkg/sim"
	"github.com/spvis/spvis-go/pkg/version"
	"github.com/spvis/spvis-go/pkg/wire"
)

func newSimServer(t *testing.T) (*Server, *sim.Transport) {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.SleepScale = 0
	tr := sim.New(cfg)
	return NewServer(tr, ServerConfig{Name: "unit"}), tr
}

func request(t *testing.T, id uint32, op wire.Operation, index int, params any) *wire.Request {
	t.Helper()
	data, err := wire.EncodeRequest(id, op, index, params)
	require.NoError(t, err)
	req, err := wire.DecodeRequest(data)
	require.NoError(t, err)
	return req
}

func TestServerHello(t *testing.T) {
	s, _ := newSimServer(t)
	ctx := context.Background()

	reply := s.HandleRequest(ctx, request(t, 1, wire.OpHello, 0, &wire.HelloParams{Version: version.Current}))
	require.Equal(t, wire.StatusSuccess, reply.Status)

	var res wire.HelloResult
	require.NoError(t, reply.Decode(&res))
	assert.Equal(t, version.Current, res.Version)
	assert.Equal(t, "unit", res.Bridge)
	assert.True(t, res.Multiplexed)

	reply = s.HandleRequest(ctx, request(t, 2, wire.OpHello, 0, &wire.HelloParams{Version: "2.0"}))
	assert.Equal(t, wire.StatusInvalidParameter, reply.Status)
	assert.Contains(t, reply.Message, "incompatible")
}

func TestServerStatusMapping(t *testing.T) {
	s, _ := newSimServer(t)
	ctx := context.Background()

	// Device 0 is not open yet.
	reply := s.HandleRequest(ctx, request(t, 1, wire.OpGetList, 0, nil))
	assert.Equal(t, wire.StatusIndexOutOfRange, reply.Status)
	assert.NotEmpty(t, reply.Message)

	reply = s.HandleRequest(ctx, request(t, 2, wire.OpInit, 0, nil))
	require.Equal(t, wire.StatusSuccess, reply.Status)
	var init wire.InitResult
	require.NoError(t, reply.Decode(&init))
	assert.Equal(t, 2, init.DeviceCount)

	// Not activated.
	reply = s.HandleRequest(ctx, request(t, 3, wire.OpGetParameter, 0, &wire.ParameterParams{Kind: wire.ParameterModel}))
	assert.Equal(t, wire.StatusInvalidActivation, reply.Status)

	reply = s.HandleRequest(ctx, request(t, 4, wire.OpActivate, 0, &wire.PathParams{Path: "/does/not/exist.lic"}))
	assert.Equal(t, wire.StatusFileNotFound, reply.Status)
}

func TestServerBadParams(t *testing.T) {
	s, _ := newSimServer(t)
	req := &wire.Request{MessageID: 9, Operation: wire.OpSetZoomFactor, Params: []byte{0xff}}

	reply := s.HandleRequest(context.Background(), req)
	assert.Equal(t, uint32(9), reply.MessageID)
	assert.Equal(t, wire.StatusInvalidParameter, reply.Status)
}

// pipeResponder hands responses straight to a client.
type pipeResponder struct {
	client *Client
	t      *testing.T
}

func (p *pipeResponder) Send(data []byte) error {
	resp, err := wire.DecodeResponse(data)
	require.NoError(p.t, err)
	return p.client.HandleResponse(resp)
}

func (p *pipeResponder) ConnID() string { return "pipe" }

// loopSender feeds client requests into a server.
type loopSender struct {
	server *Server
	back   Responder
}

func (l *loopSender) Send(data []byte) error {
	go l.server.HandleFrame(context.Background(), l.back, data)
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *recorder) Log(e log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) messages(role log.Role) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Message != nil && e.LocalRole == role {
			n++
		}
	}
	return n
}

func TestClientServerLoop(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.SleepScale = 0
	tr := sim.New(cfg)
	events := &recorder{}
	s := NewServer(tr, ServerConfig{ProtocolLogger: events})

	sender := &loopSender{server: s}
	c := NewClient(sender)
	c.SetLogger(events, "loop")
	sender.back = &pipeResponder{client: c, t: t}

	ctx := context.Background()
	_, err := c.Hello(ctx, "unit")
	require.NoError(t, err)
	assert.True(t, c.Multiplexed())

	n, err := c.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	err = c.SetIntegration(ctx, 0, 10, 1)
	st, ok := device.StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, wire.StatusInvalidActivation, st)

	// Hello, Init and SetIntegration: one request and one response each.
	assert.Equal(t, 6, events.messages(log.RoleClient))
	assert.Equal(t, 6, events.messages(log.RoleBridge))
}

// silentSender accepts requests and never answers.
type silentSender struct{}

func (silentSender) Send([]byte) error { return nil }

func TestClientTimeout(t *testing.T) {
	c := NewClient(silentSender{})
	c.SetTimeout(20 * time.Millisecond)

	start := time.Now()
	_, err := c.Init(context.Background())
	assert.ErrorIs(t, err, ErrRequestTimeout)
	assert.Less(t, time.Since(start), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = c.Done(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientCloseFailsPending(t *testing.T) {
	c := NewClient(silentSender{})
	c.SetTimeout(time.Minute)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Init(context.Background())
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		c.pendingMu.Lock()
		defer c.pendingMu.Unlock()
		return len(c.pending) == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, c.Close())
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClientClosed)
	case <-time.After(time.Second):
		t.Fatal("pending call not released by Close")
	}

	_, err := c.Init(context.Background())
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestClientRegisterAfterClose(t *testing.T) {
	c := NewClient(silentSender{})

	ch, err := c.register(1)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	_, ok := <-ch
	assert.False(t, ok, "pending request released by Close")

	// A call that passed its first closed check before Close must still
	// not be registered once the pending map has been swept.
	_, err = c.register(2)
	assert.ErrorIs(t, err, ErrClientClosed)
	c.pendingMu.Lock()
	assert.Empty(t, c.pending)
	c.pendingMu.Unlock()
}

func TestClientUnexpectedReply(t *testing.T) {
	c := NewClient(silentSender{})
	err := c.HandleResponse(&wire.Response{MessageID: 42})
	assert.ErrorIs(t, err, ErrUnexpectedReply)
}

func TestClientRejectsIncompatibleBridge(t *testing.T) {
	c := NewClient(nil)
	c.sender = &fixedReply{client: c, result: &wire.HelloResult{Version: "3.1"}}

	_, err := c.Hello(context.Background(), "unit")
	assert.ErrorContains(t, err, "incompatible")
}

// fixedReply answers every request with the same successful result.
type fixedReply struct {
	client *Client
	result any
}

func (f *fixedReply) Send(data []byte) error {
	req, err := wire.DecodeRequest(data)
	if err != nil {
		return err
	}
	raw, err := wire.Marshal(f.result)
	if err != nil {
		return err
	}
	go f.client.HandleResponse(&wire.Response{MessageID: req.MessageID, Result: raw})
	return nil
}
