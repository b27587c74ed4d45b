package queue

import (
	"sync"

	"github.com/gammazero/deque"

	"github.com/xenoncommunity/xenon/pkg/proto"
	"github.com/xenoncommunity/xenon/pkg/proto/state"
)

// PlayPacketQueue holds play packets a client cannot receive while it is in the CONFIG state
// and releases them in order once the client (re)entered the PLAY state.
//
// Packets that are registered in the CONFIG state are not queued and may be written directly.
// Raw frames relayed from a backend are always queued since their type is unknown.
type PlayPacketQueue struct {
	registry *state.ProtocolRegistry

	mu    sync.Mutex
	queue deque.Deque[entry]
}

type entry struct {
	packet  proto.Packet
	payload []byte
}

// NewPlayPacketQueue creates a new PlayPacketQueue with the given protocol version, and direction.
func NewPlayPacketQueue(version proto.Protocol, direction proto.Direction) *PlayPacketQueue {
	return &PlayPacketQueue{
		registry: state.FromDirection(direction, state.Config, version),
	}
}

// Queue returns true if the packet was queued.
// If the packet is not registered in the CONFIG state, it will be queued.
// Otherwise, it will not be queued and false will be returned.
func (q *PlayPacketQueue) Queue(packet proto.Packet) bool {
	if q == nil {
		return false
	}
	if q.registry != nil {
		if _, ok := q.registry.PacketID(packet); ok {
			return false
		}
	}
	q.mu.Lock()
	q.queue.PushBack(entry{packet: packet})
	q.mu.Unlock()
	return true
}

// QueuePayload queues a raw frame (packet id + data).
func (q *PlayPacketQueue) QueuePayload(payload []byte) {
	q.mu.Lock()
	q.queue.PushBack(entry{payload: payload})
	q.mu.Unlock()
}

// Len returns the number of queued packets.
func (q *PlayPacketQueue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queue.Len()
}

// PacketBuffer is a packet buffer that can flush packets to an underlying packet writer.
type PacketBuffer interface {
	BufferPacket(proto.Packet) error
	BufferPayload([]byte) error
	Flush() error
}

// ReleaseQueue releases all packets in the queue to the sink packet writer.
// It iterates over the queue, buffering each packet and flushing the sink.
func (q *PlayPacketQueue) ReleaseQueue(sink PacketBuffer) error {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	var ok bool
	for q.queue.Len() > 0 {
		e := q.queue.PopFront()
		var err error
		if e.packet != nil {
			err = sink.BufferPacket(e.packet)
		} else {
			err = sink.BufferPayload(e.payload)
		}
		if err != nil {
			return err
		}
		ok = true
	}
	if ok {
		return sink.Flush()
	}
	return nil
}
