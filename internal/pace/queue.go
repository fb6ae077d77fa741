package pace

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
)

// Packet is an outbound packet handle on the pacer's work queue.
type Packet struct {
	// Seq is the packet's embedded sequence identifier.
	Seq uint64

	// Data is the wire payload.
	Data []byte
}

// Queue is the bounded work queue between packet producers and the pacer
// worker, the software stand-in for a NIC descriptor ring.
type Queue struct {
	ch chan Packet
}

// NewQueue creates a bounded queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Queue{ch: make(chan Packet, capacity)}
}

// Enqueue adds a packet, blocking while the queue is full. It returns the
// context error if cancelled while blocked.
func (q *Queue) Enqueue(ctx context.Context, pkt Packet) error {
	select {
	case q.ch <- pkt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryDequeue moves up to max packets into buf without blocking and returns
// the filled prefix. An empty result means the queue was empty at the time
// of the call.
func (q *Queue) TryDequeue(buf []Packet, max int) []Packet {
	if max > len(buf) {
		max = len(buf)
	}
	n := 0
	for n < max {
		select {
		case pkt := <-q.ch:
			buf[n] = pkt
			n++
		default:
			return buf[:n]
		}
	}
	return buf[:n]
}

// Len returns the number of packets currently queued.
func (q *Queue) Len() int {
	return len(q.ch)
}

// TxQueue is the egress transmit queue. Burst attempts to transmit the
// given packets and returns how many were actually sent; partial sends are
// the caller's problem to retry.
type TxQueue interface {
	Burst(pkts []Packet) int
}

// UDPQueue transmits packets over a connected UDP socket.
type UDPQueue struct {
	conn *net.UDPConn
}

// DialUDP connects an egress queue to the given host:port target.
func DialUDP(target string) (*UDPQueue, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target %s: %w", target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	return &UDPQueue{conn: conn}, nil
}

// Burst writes packets until one fails, returning the number sent.
func (q *UDPQueue) Burst(pkts []Packet) int {
	for i, pkt := range pkts {
		if _, err := q.conn.Write(pkt.Data); err != nil {
			return i
		}
	}
	return len(pkts)
}

// Close closes the socket.
func (q *UDPQueue) Close() error {
	return q.conn.Close()
}

// FillSequence enqueues count stimulus packets of the given size starting
// at the given sequence number, each carrying its sequence number as an
// embedded little-endian identifier in the first 4 payload bytes. It stops
// early if the context is cancelled.
func FillSequence(ctx context.Context, q *Queue, start uint64, count int, size int) error {
	if size < 4 {
		size = 4
	}
	for i := 0; i < count; i++ {
		seq := start + uint64(i)
		data := make([]byte, size)
		binary.LittleEndian.PutUint32(data[0:4], uint32(seq))
		if err := q.Enqueue(ctx, Packet{Seq: seq, Data: data}); err != nil {
			return err
		}
	}
	return nil
}
