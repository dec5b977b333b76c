package openevse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jgulick48/evse-rapi/internal/rapi"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Do(ctx context.Context, endpoint string, command string) (rapi.CommandResult, error) {
	args := m.Called(endpoint, command)
	return args.Get(0).(rapi.CommandResult), args.Error(1)
}

func sendOptions() SendOptions {
	return SendOptions{Protocol: rapi.ProtocolLegacy}
}

func Test_RequestSuccess(t *testing.T) {
	transport := &MockTransport{}
	transport.On("Do", "http://evse/r", "$GE").Return(rapi.CommandResult{CMD: "$GE", RET: "$OK 32 0229^2B"}, nil).Once()

	var events []string
	var pilot int
	req := NewRequest("http://evse/r", rapi.NewCommand("GE")).
		Decode(func(reply rapi.Reply) error {
			var err error
			pilot, err = reply.Int(0)
			return err
		}).
		OnSuccess(func(rapi.Reply) { events = append(events, "success") }).
		OnError(func(error) { events = append(events, "error") }).
		Always(func() { events = append(events, "always") })

	assert.Equal(t, RequestPending, req.State())
	require.NoError(t, req.Send(context.Background(), transport, sendOptions()))
	assert.Equal(t, RequestSettled, req.State())
	assert.Equal(t, 32, pilot)
	assert.Equal(t, []string{"32", "0229"}, req.Reply().Args)
	assert.Equal(t, []string{"success", "always"}, events)
	transport.AssertExpectations(t)
}

func Test_RequestIsNeverReused(t *testing.T) {
	transport := &MockTransport{}
	transport.On("Do", "http://evse/r", "$FE").Return(rapi.CommandResult{RET: "$OK"}, nil).Once()
	req := NewRequest("http://evse/r", rapi.NewCommand("FE"))
	require.NoError(t, req.Send(context.Background(), transport, sendOptions()))
	assert.ErrorIs(t, req.Send(context.Background(), transport, sendOptions()), ErrRequestReused)
	transport.AssertNumberOfCalls(t, "Do", 1)
}

func Test_RequestFailureKinds(t *testing.T) {
	tests := []struct {
		name   string
		result rapi.CommandResult
		err    error
		decode func(rapi.Reply) error
		kind   error
	}{
		{name: "transport", err: errors.New("connection refused"), kind: rapi.ErrRequestFailed},
		{name: "garbage", result: rapi.CommandResult{RET: "no frame here"}, kind: rapi.ErrUnexpectedResponse},
		{name: "rejected", result: rapi.CommandResult{RET: "$NK^21"}, kind: rapi.ErrOperationFailed},
		{
			name:   "decode",
			result: rapi.CommandResult{RET: "$OK abc"},
			decode: func(reply rapi.Reply) error { _, err := reply.Int(0); return err },
			kind:   rapi.ErrParseError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &MockTransport{}
			transport.On("Do", "http://evse/r", "$GS").Return(tt.result, tt.err).Once()
			var failed error
			always := 0
			req := NewRequest("http://evse/r", rapi.NewCommand("GS")).
				Decode(tt.decode).
				OnSuccess(func(rapi.Reply) { t.Fatal("success callback ran for a failed request") }).
				OnError(func(err error) { failed = err }).
				Always(func() { always++ })
			err := req.Send(context.Background(), transport, sendOptions())
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, err, failed)
			assert.Equal(t, 1, always)
			assert.Equal(t, "$GS", err.(*rapi.Error).Command)
		})
	}
}

func Test_RequestCallbackPanicsAreContained(t *testing.T) {
	tests := []struct {
		name   string
		result rapi.CommandResult
	}{
		{name: "success", result: rapi.CommandResult{RET: "$OK^20"}},
		{name: "error", result: rapi.CommandResult{RET: "$NK^21"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &MockTransport{}
			transport.On("Do", "http://evse/r", "$FE").Return(tt.result, nil).Once()
			always := 0
			req := NewRequest("http://evse/r", rapi.NewCommand("FE")).
				OnSuccess(func(rapi.Reply) { panic("boom") }).
				OnError(func(error) { panic("boom") }).
				Always(func() { always++ })

			var err error
			assert.NotPanics(t, func() { err = req.Send(context.Background(), transport, sendOptions()) })
			assert.Equal(t, 1, always)
			assert.Equal(t, RequestSettled, req.State())
			if tt.name == "success" {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, rapi.ErrOperationFailed)
			}
		})
	}
}

func Test_RequestAlwaysPanicIsContained(t *testing.T) {
	transport := &MockTransport{}
	transport.On("Do", "http://evse/r", "$FE").Return(rapi.CommandResult{RET: "$OK"}, nil).Once()
	req := NewRequest("http://evse/r", rapi.NewCommand("FE")).Always(func() { panic("boom") })
	assert.NotPanics(t, func() {
		assert.NoError(t, req.Send(context.Background(), transport, sendOptions()))
	})
}

func Test_RequestVerifiesChecksum(t *testing.T) {
	transport := &MockTransport{}
	transport.On("Do", "http://evse/r", "$GC^20").Return(rapi.CommandResult{RET: "$OK 10 80^00"}, nil).Once()
	req := NewRequest("http://evse/r", rapi.NewCommand("GC"))
	err := req.Send(context.Background(), transport, SendOptions{Protocol: rapi.ProtocolChecksummed, Verify: true})
	assert.ErrorIs(t, err, rapi.ErrUnexpectedResponse)
	assert.ErrorIs(t, err, rapi.ErrChecksumMismatch)
}
