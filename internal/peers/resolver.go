package peers

import (
	"fmt"
	"strconv"
	"strings"
)

// ordinalPlaceholder is the literal replaced by a member's ordinal when
// expanding the address template.
const ordinalPlaceholder = "ORDINAL"

// defaultListenPort is assumed when the address template carries no port.
const defaultListenPort = 9000

// Peer identifies one member of the fleet.
type Peer struct {
	Ordinal int    `json:"ordinal"`
	Address string `json:"address"`
}

// Resolver derives the fleet topology from static configuration.
//
// Every member of a StatefulSet runs with the same fleet size and
// address template and learns its own identity from its pod name, so
// all members compute identical peer sets without any discovery
// protocol. Peer liveness is deliberately not tracked: a peer that is
// down fails its dispatches and catches up through sync once it is
// back, which avoids a stale "marked dead" state excluding a peer that
// recovered after a rolling restart.
type Resolver struct {
	ordinal   int
	fleetSize int
	template  string
}

// NewResolver validates the static topology inputs.
//
// Errors here are configuration errors: the node must not start with a
// pod name it cannot place inside the fleet.
func NewResolver(podName string, fleetSize int, template string) (*Resolver, error) {
	if fleetSize < 1 {
		return nil, fmt.Errorf("fleet size must be at least 1, got %d", fleetSize)
	}
	if !strings.Contains(template, ordinalPlaceholder) {
		return nil, fmt.Errorf("address template %q does not contain the %s placeholder", template, ordinalPlaceholder)
	}

	ordinal, err := ParseOrdinal(podName)
	if err != nil {
		return nil, err
	}
	if ordinal >= fleetSize {
		return nil, fmt.Errorf("pod ordinal %d is outside the fleet of size %d", ordinal, fleetSize)
	}

	return &Resolver{
		ordinal:   ordinal,
		fleetSize: fleetSize,
		template:  template,
	}, nil
}

// ParseOrdinal extracts the StatefulSet ordinal from a pod name:
// the decimal after the last '-', so "cache-7" yields 7.
func ParseOrdinal(podName string) (int, error) {
	idx := strings.LastIndex(podName, "-")
	if idx < 0 || idx == len(podName)-1 {
		return 0, fmt.Errorf("pod name %q carries no ordinal suffix", podName)
	}

	ordinal, err := strconv.Atoi(podName[idx+1:])
	if err != nil || ordinal < 0 {
		return 0, fmt.Errorf("pod name %q carries no numeric ordinal suffix", podName)
	}
	return ordinal, nil
}

// Ordinal returns this node's position in the fleet.
func (r *Resolver) Ordinal() int {
	return r.ordinal
}

// FleetSize returns the configured number of members.
func (r *Resolver) FleetSize() int {
	return r.fleetSize
}

// Address expands the template for the given ordinal.
func (r *Resolver) Address(ordinal int) string {
	return strings.Replace(r.template, ordinalPlaceholder, strconv.Itoa(ordinal), 1)
}

// Self returns this node's own descriptor.
func (r *Resolver) Self() Peer {
	return Peer{Ordinal: r.ordinal, Address: r.Address(r.ordinal)}
}

// Peers returns every other fleet member in ordinal order.
// The set is recomputed on each call; topology holds no mutable state.
func (r *Resolver) Peers() []Peer {
	out := make([]Peer, 0, r.fleetSize-1)
	for i := 0; i < r.fleetSize; i++ {
		if i == r.ordinal {
			continue
		}
		out = append(out, Peer{Ordinal: i, Address: r.Address(i)})
	}
	return out
}

// ListenPort returns the port every member serves replication on,
// parsed from the template's port component.
func (r *Resolver) ListenPort() int {
	idx := strings.LastIndex(r.template, ":")
	if idx < 0 {
		return defaultListenPort
	}

	port, err := strconv.Atoi(r.template[idx+1:])
	if err != nil || port < 1 || port > 65535 {
		return defaultListenPort
	}
	return port
}
