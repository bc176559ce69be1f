// Package wsstore carries the Backend contract over a websocket.
//
// A [Client] is a Backend whose records live in a remote process; a handler
// from [NewHandler] serves any local Backend to such clients. Frames are JSON
// text messages correlated by a random request id, so many requests may be in
// flight on one connection.
package wsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ki1r0y/nouns/internal/rand"
	"github.com/ki1r0y/nouns/pkg/codec"
	"github.com/ki1r0y/nouns/pkg/constants"
	"github.com/ki1r0y/nouns/pkg/future"
	"github.com/ki1r0y/nouns/pkg/store"
)

// DefaultDialer is gorilla's default dialer with compression enabled.
var DefaultDialer = &gorilla.Dialer{
	Proxy:             gorilla.DefaultDialer.Proxy,
	HandshakeTimeout:  gorilla.DefaultDialer.HandshakeTimeout,
	EnableCompression: true,
}

type Option func(c *Client)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTimeout bounds how long a request waits for its response. Zero leaves
// only the caller's context in charge.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithDialer(d *gorilla.Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

type Client struct {
	url     string
	dialer  *gorilla.Dialer
	timeout time.Duration
	logger  zerolog.Logger
	codec   codec.JSON

	// connLock guards writes to conn and its replacement by Close.
	connLock sync.Mutex
	conn     *gorilla.Conn

	responseChannels     map[string]chan *rawResponse
	responseChannelsLock sync.RWMutex

	closeCh   chan struct{}
	closeOnce sync.Once
	closeErr  error
}

var _ store.Backend = (*Client)(nil)

// New returns a client for the websocket endpoint at url, e.g.
// "ws://localhost:8080/rpc". Call Connect before use.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:              url,
		dialer:           DefaultDialer,
		timeout:          constants.DefaultWSTimeout,
		logger:           zerolog.Nop(),
		responseChannels: make(map[string]chan *rawResponse),
		closeCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the endpoint and starts reading responses.
func (c *Client) Connect(ctx context.Context) error {
	conn, res, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer res.Body.Close()

	c.connLock.Lock()
	c.conn = conn
	c.connLock.Unlock()

	go c.readLoop(conn)
	c.logger.Debug().Str("url", c.url).Msg("connected")
	return nil
}

// Close sends a close frame, bounded by ctx, and releases the connection.
func (c *Client) Close(ctx context.Context) error {
	c.connLock.Lock()
	conn := c.conn
	c.conn = nil
	c.connLock.Unlock()
	if conn == nil {
		return nil
	}
	c.shutdown(net.ErrClosed)

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	msg := gorilla.FormatCloseMessage(constants.CloseMessageCode, "")
	if err := conn.WriteMessage(gorilla.CloseMessage, msg); err != nil {
		c.logger.Warn().Err(err).Msg("failed to write close message")
	}
	return conn.Close()
}

func (c *Client) Save(ctx context.Context, collection, id string, content []byte) *future.Future[string] {
	return future.Go(func() (string, error) {
		var out string
		err := c.send(ctx, &out, MethodSave, Params{Collection: collection, ID: id, Content: content})
		return out, err
	})
}

func (c *Client) Retrieve(ctx context.Context, collection, id string) *future.Future[[]byte] {
	return future.Go(func() ([]byte, error) {
		var out []byte
		err := c.send(ctx, &out, MethodRetrieve, Params{Collection: collection, ID: id})
		return out, err
	})
}

// send writes one request and decodes the result of its response into dst.
func (c *Client) send(ctx context.Context, dst any, method string, params Params) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	select {
	case <-c.closeCh:
		return store.Fault(method, c.closeErr)
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	id := rand.NewRequestID(constants.RequestIDLength)
	ch, err := c.createResponseChannel(id)
	if err != nil {
		return err
	}
	defer c.removeResponseChannel(id)

	if err := c.write(&RPCRequest{ID: id, Method: method, Params: params}); err != nil {
		return store.Fault(method, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closeCh:
		return store.Fault(method, c.closeErr)
	case res := <-ch:
		if rpcErr := res.rpcError(); rpcErr != nil {
			return rpcErr.asError()
		}
		data, err := res.result()
		if err != nil {
			return store.Fault(method, err)
		}
		if err := c.codec.Unmarshal(data, dst); err != nil {
			return store.Fault(method, err)
		}
		return nil
	}
}

func (c *Client) write(req *RPCRequest) error {
	data, err := c.codec.Marshal(req)
	if err != nil {
		return err
	}

	c.connLock.Lock()
	defer c.connLock.Unlock()
	if c.conn == nil {
		return constants.ErrNotConnected
	}
	err = c.conn.WriteMessage(gorilla.TextMessage, data)
	if errors.Is(err, gorilla.ErrCloseSent) {
		c.shutdown(err)
	}
	return err
}

func (c *Client) readLoop(conn *gorilla.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, net.ErrClosed):
				c.shutdown(net.ErrClosed)
			case gorilla.IsUnexpectedCloseError(err):
				c.logger.Warn().Err(err).Msg("connection lost")
				c.shutdown(io.ErrClosedPipe)
			default:
				c.shutdown(err)
			}
			return
		}
		c.handleResponse(data)
	}
}

func (c *Client) handleResponse(data []byte) {
	res := &rawResponse{data: data}
	id, err := res.resolveID()
	if err != nil || id == "" {
		if rpcErr := res.rpcError(); rpcErr != nil {
			c.logger.Error().Err(rpcErr).Msg("error response without id")
			return
		}
		c.logger.Error().Err(err).Msg("response without id")
		return
	}

	ch, ok := c.getResponseChannel(id)
	if !ok {
		c.logger.Warn().Str("id", id).Msg("no request waiting for response")
		return
	}
	ch <- res
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.closeErr = err
		close(c.closeCh)
	})
}

func (c *Client) createResponseChannel(id string) (chan *rawResponse, error) {
	c.responseChannelsLock.Lock()
	defer c.responseChannelsLock.Unlock()

	if _, ok := c.responseChannels[id]; ok {
		return nil, fmt.Errorf("%w: %v", constants.ErrIDInUse, id)
	}
	// Buffered so the read loop never blocks on a requester that gave up.
	ch := make(chan *rawResponse, 1)
	c.responseChannels[id] = ch
	return ch, nil
}

func (c *Client) getResponseChannel(id string) (chan *rawResponse, bool) {
	c.responseChannelsLock.RLock()
	defer c.responseChannelsLock.RUnlock()
	ch, ok := c.responseChannels[id]
	return ch, ok
}

func (c *Client) removeResponseChannel(id string) {
	c.responseChannelsLock.Lock()
	defer c.responseChannelsLock.Unlock()
	delete(c.responseChannels, id)
}
