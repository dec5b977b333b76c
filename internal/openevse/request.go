package openevse

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jgulick48/evse-rapi/internal/metrics"
	"github.com/jgulick48/evse-rapi/internal/rapi"
)

type RequestState int

const (
	RequestPending RequestState = iota
	RequestSent
	RequestSettled
)

var ErrRequestReused = errors.New("request already sent")

type SendOptions struct {
	Protocol rapi.ProtocolVersion
	Verify   bool
	Timeout  time.Duration
}

// Request is a single RAPI round trip. It settles exactly once and is never resent.
type Request struct {
	endpoint  string
	command   rapi.Command
	state     RequestState
	reply     rapi.Reply
	err       error
	decode    func(rapi.Reply) error
	onSuccess func(rapi.Reply)
	onError   func(error)
	always    func()
}

func NewRequest(endpoint string, command rapi.Command) *Request {
	return &Request{
		endpoint: endpoint,
		command:  command,
	}
}

// Decode sets the typed decoder run on an OK reply. A decoder error fails the request.
func (r *Request) Decode(fn func(rapi.Reply) error) *Request {
	r.decode = fn
	return r
}

func (r *Request) OnSuccess(fn func(rapi.Reply)) *Request {
	r.onSuccess = fn
	return r
}

func (r *Request) OnError(fn func(error)) *Request {
	r.onError = fn
	return r
}

func (r *Request) Always(fn func()) *Request {
	r.always = fn
	return r
}

func (r *Request) Command() rapi.Command {
	return r.command
}

func (r *Request) Endpoint() string {
	return r.endpoint
}

func (r *Request) State() RequestState {
	return r.state
}

func (r *Request) Reply() rapi.Reply {
	return r.reply
}

func (r *Request) Err() error {
	return r.err
}

func (r *Request) Send(ctx context.Context, transport Transport, opts SendOptions) error {
	if r.state != RequestPending {
		return ErrRequestReused
	}
	r.state = RequestSent
	started := time.Now()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	wire := r.command.Frame(opts.Protocol)
	result, err := transport.Do(ctx, r.endpoint, wire)
	if err != nil {
		r.settle(rapi.RequestFailed(r.command.String(), err), started)
		return r.err
	}
	var reply rapi.Reply
	if opts.Verify {
		reply, err = rapi.ParseVerified(result.RET, opts.Protocol)
	} else {
		reply, err = rapi.Parse(result.RET)
	}
	if err == nil && r.decode != nil {
		err = r.decode(reply)
	}
	r.reply = reply
	r.settle(rapi.WithCommand(err, r.command.String()), started)
	return r.err
}

func (r *Request) settle(err error, started time.Time) {
	r.state = RequestSettled
	r.err = err
	outcome := "ok"
	if err != nil {
		outcome = rapi.KindOf(err).String()
	}
	metrics.ObserveRequest(r.command.Verb(), outcome, time.Since(started))
	if r.always != nil {
		defer r.callback("always", r.always)
	}
	if err == nil && r.onSuccess != nil {
		r.callback("success", func() { r.onSuccess(r.reply) })
	}
	if err != nil && r.onError != nil {
		r.callback("error", func() { r.onError(err) })
	}
}

// callback runs fn, logging a panic instead of passing it to the caller.
func (r *Request) callback(name string, fn func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			log.WithField("command", r.command.String()).Printf("RAPI %s callback panicked: %v", name, recovered)
		}
	}()
	fn()
}
