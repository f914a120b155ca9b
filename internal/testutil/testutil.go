// Package testutil provides shared test utilities and mocks for rfidbridge tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/brianly1003/rfidbridge/internal/domain"
	"github.com/brianly1003/rfidbridge/internal/domain/events"
	"github.com/brianly1003/rfidbridge/internal/domain/ports"
)

// MockSubscriber implements ports.Subscriber for testing.
type MockSubscriber struct {
	id       string
	tokens   []events.Token
	mu       sync.Mutex
	closed   bool
	sendErr  error
	sendFunc func(context.Context, events.Token) error
	done     chan struct{}
}

// NewMockSubscriber creates a new mock subscriber.
func NewMockSubscriber(id string) *MockSubscriber {
	return &MockSubscriber{
		id:     id,
		tokens: make([]events.Token, 0),
		done:   make(chan struct{}),
	}
}

// ID returns the subscriber ID.
func (m *MockSubscriber) ID() string {
	return m.id
}

// Send records the token and returns any configured error.
// A custom send func runs without holding the mock's lock so it may block.
func (m *MockSubscriber) Send(ctx context.Context, token events.Token) error {
	m.mu.Lock()
	fn := m.sendFunc
	closed := m.closed
	sendErr := m.sendErr
	m.mu.Unlock()

	if closed {
		return domain.ErrSubscriberClosed
	}
	if fn != nil {
		if err := fn(ctx, token); err != nil {
			return err
		}
	} else if sendErr != nil {
		return sendErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, token)
	return nil
}

// Close marks the subscriber as closed.
func (m *MockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (m *MockSubscriber) Done() <-chan struct{} {
	return m.done
}

// Tokens returns all received tokens.
func (m *MockSubscriber) Tokens() []events.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]events.Token, len(m.tokens))
	copy(result, m.tokens)
	return result
}

// TokenCount returns the number of received tokens.
func (m *MockSubscriber) TokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

// IsClosed returns whether the subscriber was closed.
func (m *MockSubscriber) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SetSendError configures an error to return on Send.
func (m *MockSubscriber) SetSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// SetSendFunc sets a custom function for Send behavior.
func (m *MockSubscriber) SetSendFunc(fn func(context.Context, events.Token) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendFunc = fn
}

// Ensure MockSubscriber implements ports.Subscriber.
var _ ports.Subscriber = (*MockSubscriber)(nil)

// RecordingDispatcher implements ports.Dispatcher and records every token.
type RecordingDispatcher struct {
	mu     sync.Mutex
	tokens []events.Token
	err    error
	notify chan events.Token
}

// NewRecordingDispatcher creates a dispatcher whose Tokens channel buffers
// up to size tokens for tests that want to wait on arrivals.
func NewRecordingDispatcher(size int) *RecordingDispatcher {
	return &RecordingDispatcher{notify: make(chan events.Token, size)}
}

// Dispatch records the token.
func (d *RecordingDispatcher) Dispatch(ctx context.Context, token events.Token) error {
	d.mu.Lock()
	d.tokens = append(d.tokens, token)
	err := d.err
	d.mu.Unlock()

	select {
	case d.notify <- token:
	default:
	}
	return err
}

// SetError makes subsequent Dispatch calls return err.
func (d *RecordingDispatcher) SetError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// Arrivals returns a channel receiving each dispatched token.
func (d *RecordingDispatcher) Arrivals() <-chan events.Token {
	return d.notify
}

// Tokens returns all dispatched tokens.
func (d *RecordingDispatcher) Tokens() []events.Token {
	d.mu.Lock()
	defer d.mu.Unlock()
	result := make([]events.Token, len(d.tokens))
	copy(result, d.tokens)
	return result
}

var _ ports.Dispatcher = (*RecordingDispatcher)(nil)

// Step is one scripted ReadLine outcome of a FakePort.
type Step struct {
	Line string
	Raw  []byte // used instead of Line when set
	Err  error
}

// Line returns a step that yields s.
func Line(s string) Step { return Step{Line: s} }

// Fail returns a step that fails the port with err.
func Fail(err error) Step { return Step{Err: err} }

// FakePort implements ports.Port by replaying a script. Once the script is
// exhausted it behaves like an idle device.
type FakePort struct {
	mu     sync.Mutex
	steps  []Step
	closed bool
}

// NewFakePort creates a port that replays steps.
func NewFakePort(steps ...Step) *FakePort {
	return &FakePort{steps: steps}
}

// ReadLine implements ports.Port.
func (p *FakePort) ReadLine(timeout time.Duration) ([]byte, bool, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, false, domain.ErrPortClosed
	}
	if len(p.steps) == 0 {
		p.mu.Unlock()
		time.Sleep(min(timeout, 2*time.Millisecond))
		return nil, false, nil
	}
	step := p.steps[0]
	p.steps = p.steps[1:]
	p.mu.Unlock()

	if step.Err != nil {
		return nil, false, step.Err
	}
	if step.Raw != nil {
		return step.Raw, true, nil
	}
	return []byte(step.Line), true, nil
}

// Close implements ports.Port.
func (p *FakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// IsClosed returns whether Close was called.
func (p *FakePort) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

var _ ports.Port = (*FakePort)(nil)

// OpenResult is one scripted Open outcome of a ScriptedOpener.
type OpenResult struct {
	Port *FakePort
	Err  error
}

// ScriptedOpener implements ports.Opener by replaying open results.
// When the script is exhausted every Open fails with domain.ErrPortClosed.
type ScriptedOpener struct {
	device  string
	mu      sync.Mutex
	results []OpenResult
	opens   int
}

// NewScriptedOpener creates an opener for the given device path.
func NewScriptedOpener(device string, results ...OpenResult) *ScriptedOpener {
	return &ScriptedOpener{device: device, results: results}
}

// Open implements ports.Opener.
func (o *ScriptedOpener) Open(ctx context.Context) (ports.Port, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens++

	if len(o.results) == 0 {
		return nil, domain.NewDeviceError("open", o.device, domain.ErrPortClosed)
	}
	r := o.results[0]
	o.results = o.results[1:]
	if r.Err != nil {
		return nil, domain.NewDeviceError("open", o.device, r.Err)
	}
	return r.Port, nil
}

// Device implements ports.Opener.
func (o *ScriptedOpener) Device() string {
	return o.device
}

// Opens returns how many times Open was called.
func (o *ScriptedOpener) Opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

var _ ports.Opener = (*ScriptedOpener)(nil)
