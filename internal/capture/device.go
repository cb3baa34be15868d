package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/gokoki/internal/koki"
	"github.com/ayusman/gokoki/internal/libkoki"
)

var (
	// ErrDeviceNotOpen is returned when a device operation needs an open device.
	ErrDeviceNotOpen = errors.New("device is not open")

	// ErrInvalidTransition is returned when an operation is not allowed in the
	// device's current state.
	ErrInvalidTransition = errors.New("invalid device state transition")
)

// State is a capture device's lifecycle state.
type State int

const (
	StateClosed State = iota
	StateOpened
	StateConfigured
	StateCapturing
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpened:
		return "opened"
	case StateConfigured:
		return "configured"
	case StateCapturing:
		return "capturing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// V4L is the set of libkoki device calls a Device drives. *libkoki.Library
// implements it.
type V4L interface {
	OpenDevice(path string) (int32, error)
	CloseDevice(fd int32)
	GetFormat(fd int32) (koki.Format, error)
	SetFormat(fd int32, f koki.Format) (int32, error)
}

var _ V4L = (*libkoki.Library)(nil)

// Device tracks one V4L2 device through
// closed -> opened -> configured -> capturing -> closed.
// Every transition is made by an explicit call.
type Device struct {
	v4l  V4L
	path string

	mu     sync.Mutex
	fd     int32
	state  State
	format koki.Format
}

// NewDevice returns a closed device for path.
func NewDevice(v4l V4L, path string) *Device {
	return &Device{
		v4l:   v4l,
		path:  path,
		fd:    -1,
		state: StateClosed,
	}
}

// Path returns the device node path.
func (d *Device) Path() string {
	return d.path
}

// State returns the current lifecycle state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// FD returns the open descriptor, or -1 when closed.
func (d *Device) FD() int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fd
}

// Open opens the device node. On failure the device stays closed.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateClosed {
		return fmt.Errorf("%w: open while %s", ErrInvalidTransition, d.state)
	}

	fd, err := d.v4l.OpenDevice(d.path)
	if err != nil {
		return fmt.Errorf("open device %s: %w", d.path, err)
	}
	if fd < 0 {
		return fmt.Errorf("open device %s: %w", d.path, &libkoki.DeviceError{Op: "open", Device: d.path, Status: fd})
	}

	d.fd = fd
	d.setState(StateOpened)
	return nil
}

// Format reads the device's current capture format.
func (d *Device) Format() (koki.Format, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateClosed {
		return koki.Format{}, ErrDeviceNotOpen
	}
	return d.v4l.GetFormat(d.fd)
}

// Configure requests format f and returns the format the device settled on.
// If the device rejects or adjusts the request, the negotiated format is
// returned along with the error and the state is unchanged.
func (d *Device) Configure(f koki.Format) (koki.Format, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateClosed:
		return koki.Format{}, ErrDeviceNotOpen
	case StateCapturing:
		return koki.Format{}, fmt.Errorf("%w: configure while %s", ErrInvalidTransition, d.state)
	}

	_, setErr := d.v4l.SetFormat(d.fd, f)

	negotiated, err := d.v4l.GetFormat(d.fd)
	if err != nil {
		return koki.Format{}, errors.Join(setErr, fmt.Errorf("read back format: %w", err))
	}
	if setErr != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "Configure",
			"device":    d.path,
			"requested": f.Pix().String(),
			"actual":    negotiated.Pix().String(),
		}).Warn("Device did not accept requested format")
		return negotiated, setErr
	}

	d.format = negotiated
	d.setState(StateConfigured)
	return negotiated, nil
}

// Negotiated returns the format accepted by the last successful Configure.
func (d *Device) Negotiated() koki.Format {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.format
}

// StartCapture marks a configured device as capturing. Streaming itself is
// driven by libkoki's buffer calls.
func (d *Device) StartCapture() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateConfigured {
		return fmt.Errorf("%w: start capture while %s", ErrInvalidTransition, d.state)
	}
	d.setState(StateCapturing)
	return nil
}

// Close closes the device from any state. Closing a closed device is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateClosed {
		return nil
	}

	d.v4l.CloseDevice(d.fd)
	d.fd = -1
	d.format = koki.Format{}
	d.setState(StateClosed)
	return nil
}

func (d *Device) setState(s State) {
	logrus.WithFields(logrus.Fields{
		"function": "setState",
		"device":   d.path,
		"from":     d.state.String(),
		"to":       s.String(),
	}).Debug("Device state transition")
	d.state = s
}
