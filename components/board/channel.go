package board

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrChannelInUse is returned when a second owner tries to acquire a DigitalIO.
var ErrChannelInUse = errors.New("digital io channel already has an owner")

// owners maps each acquired DigitalIO to the Channel that owns it. DigitalIO implementations
// must therefore be comparable; every driver here is a pointer.
var owners = struct {
	mu       sync.Mutex
	byDevice map[DigitalIO]*Channel
}{byDevice: map[DigitalIO]*Channel{}}

// A Channel is a handle on a DigitalIO that can be owned by at most one consumer at a time. The
// underlying hardware is a process-wide resource: callback registration is global, so two owners
// would silently steal each other's interrupts. Ownership belongs to the DigitalIO, so two
// Channels over the same DigitalIO still admit only one owner.
type Channel struct {
	DigitalIO
}

// NewChannel wraps the DigitalIO in a Channel.
func NewChannel(dio DigitalIO) *Channel {
	return &Channel{DigitalIO: dio}
}

// Acquire takes ownership of the channel's DigitalIO. It fails with ErrChannelInUse if the
// DigitalIO is already owned, through this Channel or any other.
func (c *Channel) Acquire() error {
	owners.mu.Lock()
	defer owners.mu.Unlock()
	if _, ok := owners.byDevice[c.DigitalIO]; ok {
		return ErrChannelInUse
	}
	owners.byDevice[c.DigitalIO] = c
	return nil
}

// Release gives up ownership so another consumer may Acquire the DigitalIO. It does nothing if
// this Channel is not the owner.
func (c *Channel) Release() {
	owners.mu.Lock()
	defer owners.mu.Unlock()
	if owners.byDevice[c.DigitalIO] == c {
		delete(owners.byDevice, c.DigitalIO)
	}
}

// Owned reports whether this Channel currently owns its DigitalIO.
func (c *Channel) Owned() bool {
	owners.mu.Lock()
	defer owners.mu.Unlock()
	return owners.byDevice[c.DigitalIO] == c
}
