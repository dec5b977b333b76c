package openevse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tarm/serial"

	"github.com/jgulick48/evse-rapi/internal/rapi"
)

// Transport delivers one framed RAPI command and returns the device's reply envelope.
type Transport interface {
	Do(ctx context.Context, endpoint string, command string) (rapi.CommandResult, error)
}

type HTTPTransport struct {
	httpClient *http.Client
}

func NewHTTPTransport(httpClient *http.Client) *HTTPTransport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPTransport{httpClient: httpClient}
}

func (t *HTTPTransport) Do(ctx context.Context, endpoint string, command string) (rapi.CommandResult, error) {
	var response rapi.CommandResult
	separator := "?"
	if strings.Contains(endpoint, "?") {
		separator = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s%sjson=1&rapi=%s", endpoint, separator, url.QueryEscape(command)), nil)
	if err != nil {
		return response, err
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return response, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return response, fmt.Errorf("invalid response from openEVSE. Got %v expecting 200", resp.StatusCode)
	}
	err = json.NewDecoder(resp.Body).Decode(&response)
	if err != nil {
		return response, fmt.Errorf("unable to decode message from openEVSE: %w", err)
	}
	return response, nil
}

var ErrTransportClosed = errors.New("serial transport closed")

// SerialTransport talks RAPI directly to the controller's UART. The endpoint is ignored.
type SerialTransport struct {
	port  io.ReadWriteCloser
	lines chan string
	done  chan struct{}
	once  sync.Once
	mux   sync.Mutex
}

func OpenSerialTransport(device string, baud int) (*SerialTransport, error) {
	sconf := &serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: time.Second,
	}
	port, err := serial.OpenPort(sconf)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", device, err)
	}
	return NewSerialTransport(port), nil
}

func NewSerialTransport(port io.ReadWriteCloser) *SerialTransport {
	t := &SerialTransport{
		port:  port,
		lines: make(chan string, 16),
		done:  make(chan struct{}),
	}
	go t.readLines()
	return t
}

func (t *SerialTransport) readLines() {
	defer t.Close()
	data := make([]byte, 256)
	var line strings.Builder
	for {
		n, err := t.port.Read(data)
		for _, b := range data[:n] {
			if b != '\r' && b != '\n' {
				line.WriteByte(b)
				continue
			}
			if line.Len() == 0 {
				continue
			}
			reply := line.String()
			line.Reset()
			// Async notifications ($AT, $ST, ...) interleave with replies.
			if !strings.HasPrefix(reply, "$OK") && !strings.HasPrefix(reply, "$NK") {
				log.Debugf("Ignoring unsolicited serial message %s", reply)
				continue
			}
			select {
			case t.lines <- reply:
			case <-t.done:
				return
			}
		}
		if err == io.EOF {
			// tarm reports a read timeout with no data as EOF
			select {
			case <-t.done:
				return
			default:
				continue
			}
		}
		if err != nil {
			log.Printf("Error reading from serial port: %s", err)
			return
		}
	}
}

func (t *SerialTransport) Do(ctx context.Context, _ string, command string) (rapi.CommandResult, error) {
	t.mux.Lock()
	defer t.mux.Unlock()
	response := rapi.CommandResult{CMD: command}
	// Drop replies that arrived after an earlier command timed out.
	for drained := false; !drained; {
		select {
		case stale := <-t.lines:
			log.Debugf("Dropping stale serial reply %s", stale)
		default:
			drained = true
		}
	}
	if _, err := t.port.Write([]byte(command + "\r")); err != nil {
		return response, err
	}
	select {
	case reply := <-t.lines:
		response.RET = reply
		return response, nil
	case <-t.done:
		return response, ErrTransportClosed
	case <-ctx.Done():
		return response, ctx.Err()
	}
}

func (t *SerialTransport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.done)
		err = t.port.Close()
	})
	return err
}
