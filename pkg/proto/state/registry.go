package state

import (
	"fmt"
	"reflect"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/version"
)

// Registry stores server/client bound packets of a State.
type Registry struct {
	State
	ServerBound *PacketRegistry
	ClientBound *PacketRegistry
}

func NewRegistry(state State) *Registry {
	return &Registry{
		State:       state,
		ServerBound: NewPacketRegistry(proto.ServerBound),
		ClientBound: NewPacketRegistry(proto.ClientBound),
	}
}

// PacketRegistry stores the packets sent in one direction per protocol version.
type PacketRegistry struct {
	Direction proto.Direction
	Protocols map[proto.Protocol]*ProtocolRegistry
	// Whether to fall back to the minimum protocol version
	// in case a protocol could not be found.
	Fallback bool
}

func NewPacketRegistry(direction proto.Direction) *PacketRegistry {
	r := &PacketRegistry{
		Direction: direction,
		Protocols: map[proto.Protocol]*ProtocolRegistry{},
		Fallback:  true,
	}
	for _, ver := range version.SupportedVersions {
		r.Protocols[ver.Protocol] = &ProtocolRegistry{
			Protocol:    ver.Protocol,
			PacketIDs:   map[proto.PacketID]proto.PacketType{},
			PacketTypes: map[proto.PacketType]proto.PacketID{},
		}
	}
	return r
}

// ProtocolRegistry gets the ProtocolRegistry for a protocol.
// Returns nil if the protocol is unknown and Fallback is disabled.
func (p *PacketRegistry) ProtocolRegistry(protocol proto.Protocol) *ProtocolRegistry {
	r := p.Protocols[protocol]
	if r == nil && p.Fallback {
		return p.Protocols[version.MinimumVersion.Protocol]
	}
	return r
}

// ProtocolRegistry stores the packets of a protocol version.
type ProtocolRegistry struct {
	Protocol    proto.Protocol
	PacketIDs   map[proto.PacketID]proto.PacketType
	PacketTypes map[proto.PacketType]proto.PacketID
}

// PacketID gets the packet id of the registered packet type.
func (r *ProtocolRegistry) PacketID(of proto.Packet) (id proto.PacketID, found bool) {
	id, found = r.PacketTypes[proto.TypeOf(of)]
	return
}

// CreatePacket returns a new zero valued instance of the packet
// registered with id or nil if not found.
func (r *ProtocolRegistry) CreatePacket(id proto.PacketID) proto.Packet {
	packetType, ok := r.PacketIDs[id]
	if !ok {
		return nil
	}
	p, _ := reflect.New(packetType).Interface().(proto.Packet)
	return p
}

// Register registers a packet type. Each mapping is valid from its version
// until the version of the next mapping, the mapping's last valid
// version or the maximum version. Invalid mappings panic.
func (p *PacketRegistry) Register(packetOf proto.Packet, mappings ...*PacketMapping) {
	if len(mappings) == 0 {
		panic(fmt.Sprintf("no mappings for %T", packetOf))
	}
	packetType := proto.TypeOf(packetOf)
	for i, current := range mappings {
		from := current.Protocol
		to := version.MaximumVersion.Protocol + 1 // exclusive
		if current.LastValid != 0 {
			to = current.LastValid + 1
		}
		if i < len(mappings)-1 {
			next := mappings[i+1].Protocol
			if next <= from {
				panic(fmt.Sprintf("next mapping version (%s) of %T must be greater than current (%s)",
					next, packetOf, from))
			}
			if current.LastValid != 0 && current.LastValid >= next {
				panic(fmt.Sprintf("last valid version (%s) of %T overlaps next mapping (%s)",
					current.LastValid, packetOf, next))
			}
			if current.LastValid == 0 {
				to = next
			}
		}
		for _, ver := range version.SupportedVersions {
			if ver.Protocol < from || ver.Protocol >= to {
				continue
			}
			registry := p.Protocols[ver.Protocol]
			if t, ok := registry.PacketIDs[current.ID]; ok {
				panic(fmt.Sprintf("can not register %T with id %s for protocol %s: %s is already registered",
					packetOf, current.ID, ver, t))
			}
			if _, ok := registry.PacketTypes[packetType]; ok {
				panic(fmt.Sprintf("%T is already registered for protocol %s", packetOf, ver))
			}
			registry.PacketIDs[current.ID] = packetType
			registry.PacketTypes[packetType] = current.ID
		}
	}
}

// FromDirection returns the ProtocolRegistry of state for direction and protocol.
func FromDirection(direction proto.Direction, state *Registry, protocol proto.Protocol) *ProtocolRegistry {
	if direction == proto.ServerBound {
		return state.ServerBound.ProtocolRegistry(protocol)
	}
	return state.ClientBound.ProtocolRegistry(protocol)
}

// PacketMapping maps a packet id starting at a protocol version.
type PacketMapping struct {
	ID        proto.PacketID
	Protocol  proto.Protocol
	LastValid proto.Protocol // 0 if valid until the next mapping
}

func m(id proto.PacketID, ver *proto.Version) *PacketMapping {
	return &PacketMapping{ID: id, Protocol: ver.Protocol}
}

// ml is m with an inclusive upper version.
func ml(id proto.PacketID, ver, last *proto.Version) *PacketMapping {
	return &PacketMapping{ID: id, Protocol: ver.Protocol, LastValid: last.Protocol}
}
