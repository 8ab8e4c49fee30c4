package transport

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of an endpoint.
type State int32

const (
	StateDisconnected State = iota
	StateBound
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateBound:
		return "bound"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Role names which side of the relay an endpoint plays.
type Role string

const (
	RoleClient Role = "client"
	RoleServer Role = "server"
)

// Endpoint tracks the identity and state of one relay process.
// States only move forward: Disconnected, Bound, Streaming.
type Endpoint struct {
	id        uuid.UUID
	role      Role
	startTime time.Time

	state     atomic.Int32
	localAddr atomic.Pointer[string]
	peerAddr  atomic.Pointer[string]
}

// EndpointInfo represents the endpoint for monitoring
type EndpointInfo struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	State     string    `json:"state"`
	LocalAddr string    `json:"local_addr,omitempty"`
	PeerAddr  string    `json:"peer_addr,omitempty"`
	StartTime time.Time `json:"start_time"`
}

// NewEndpoint creates a disconnected endpoint with a fresh instance ID.
func NewEndpoint(role Role) *Endpoint {
	return &Endpoint{
		id:        uuid.New(),
		role:      role,
		startTime: time.Now(),
	}
}

// ID returns the instance ID.
func (e *Endpoint) ID() string { return e.id.String() }

// Role returns the endpoint role.
func (e *Endpoint) Role() Role { return e.role }

// State returns the current state.
func (e *Endpoint) State() State { return State(e.state.Load()) }

// MarkBound records that the socket is bound (server) or connected (client).
// peer may be empty.
func (e *Endpoint) MarkBound(local, peer string) {
	e.localAddr.Store(&local)
	if peer != "" {
		e.peerAddr.Store(&peer)
	}
	e.advance(StateBound)
}

// MarkStreaming records that audio callbacks are running. It reports whether
// this call made the transition.
func (e *Endpoint) MarkStreaming() bool {
	return e.advance(StateStreaming)
}

func (e *Endpoint) advance(to State) bool {
	for {
		cur := e.state.Load()
		if State(cur) >= to {
			return false
		}
		if e.state.CompareAndSwap(cur, int32(to)) {
			return true
		}
	}
}

// Info returns a snapshot for monitoring.
func (e *Endpoint) Info() EndpointInfo {
	info := EndpointInfo{
		ID:        e.ID(),
		Role:      e.role,
		State:     e.State().String(),
		StartTime: e.startTime.UTC(),
	}
	if p := e.localAddr.Load(); p != nil {
		info.LocalAddr = *p
	}
	if p := e.peerAddr.Load(); p != nil {
		info.PeerAddr = *p
	}
	return info
}
