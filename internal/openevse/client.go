package openevse

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jgulick48/evse-rapi/internal/models"
	"github.com/jgulick48/evse-rapi/internal/rapi"
)

// Client issues RAPI commands to one EVSE. The serial link behind the gateway cannot
// multiplex, so the client keeps at most one request outstanding at any time.
type Client struct {
	transport          Transport
	protocol           rapi.ProtocolVersion
	verify             bool
	legacyFlagCommands bool
	standardTimeout    time.Duration
	resetTimeout       time.Duration
	location           *time.Location

	endpointMux sync.RWMutex
	endpoint    string

	link     chan struct{}
	inFlight int32
	maxSeen  int32
}

func NewClient(config models.EVSEConfiguration, transport Transport) *Client {
	c := &Client{
		transport:          transport,
		protocol:           config.ProtocolVersion(),
		verify:             config.VerifyChecksum,
		legacyFlagCommands: config.LegacyFlagCommands,
		standardTimeout:    config.StandardTimeout.Duration,
		resetTimeout:       config.ResetTimeout.Duration,
		location:           time.Local,
		endpoint:           config.Address,
		link:               make(chan struct{}, 1),
	}
	if c.standardTimeout <= 0 {
		c.standardTimeout = models.DefaultStandardTimeout
	}
	if c.resetTimeout <= 0 {
		c.resetTimeout = models.DefaultResetTimeout
	}
	return c
}

// SetEndpoint changes the device endpoint for requests issued from now on.
func (c *Client) SetEndpoint(endpoint string) {
	c.endpointMux.Lock()
	c.endpoint = endpoint
	c.endpointMux.Unlock()
}

func (c *Client) Endpoint() string {
	c.endpointMux.RLock()
	defer c.endpointMux.RUnlock()
	return c.endpoint
}

// SetLocation sets the zone device clock readings are interpreted in.
func (c *Client) SetLocation(location *time.Location) {
	c.location = location
}

// MaxConcurrent reports the highest number of requests ever outstanding at once.
func (c *Client) MaxConcurrent() int {
	return int(atomic.LoadInt32(&c.maxSeen))
}

// Send waits for the link, then sends req. Waiting is bounded by ctx.
func (c *Client) Send(ctx context.Context, req *Request, timeout time.Duration) error {
	if req.State() != RequestPending {
		return ErrRequestReused
	}
	select {
	case c.link <- struct{}{}:
	case <-ctx.Done():
		req.state = RequestSent
		req.settle(rapi.RequestFailed(req.Command().String(), ctx.Err()), time.Now())
		return req.Err()
	}
	defer func() { <-c.link }()
	current := atomic.AddInt32(&c.inFlight, 1)
	defer atomic.AddInt32(&c.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&c.maxSeen)
		if current <= seen || atomic.CompareAndSwapInt32(&c.maxSeen, seen, current) {
			break
		}
	}
	err := req.Send(ctx, c.transport, SendOptions{
		Protocol: c.protocol,
		Verify:   c.verify,
		Timeout:  timeout,
	})
	if err != nil {
		log.WithField("command", req.Command().String()).Debugf("RAPI request failed: %s", err)
	}
	return err
}

func (c *Client) request(ctx context.Context, cmd rapi.Command, decode func(rapi.Reply) error) error {
	return c.Send(ctx, NewRequest(c.Endpoint(), cmd).Decode(decode), c.standardTimeout)
}
