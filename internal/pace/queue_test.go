package pace

import (
	"context"
	"encoding/binary"
	"testing"
	"time"
)

func TestQueue_TryDequeueBatches(t *testing.T) {
	q := NewQueue(16)
	enqueueSeq(t, q, 0, 5)

	buf := make([]Packet, 8)

	batch := q.TryDequeue(buf, 3)
	if len(batch) != 3 {
		t.Fatalf("TryDequeue() = %d packets, want 3", len(batch))
	}
	for i, pkt := range batch {
		if pkt.Seq != uint64(i) {
			t.Errorf("packet %d has Seq %d, want %d: queue must preserve order", i, pkt.Seq, i)
		}
	}

	batch = q.TryDequeue(buf, 8)
	if len(batch) != 2 {
		t.Errorf("TryDequeue() = %d packets, want the remaining 2", len(batch))
	}

	batch = q.TryDequeue(buf, 8)
	if len(batch) != 0 {
		t.Errorf("TryDequeue() on an empty queue = %d packets, want 0", len(batch))
	}
}

func TestQueue_EnqueueRespectsContext(t *testing.T) {
	q := NewQueue(1)
	require := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	require(q.Enqueue(context.Background(), Packet{Seq: 1}))

	// Queue full: a cancelled context unblocks the producer.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(ctx, Packet{Seq: 2}); err != context.DeadlineExceeded {
		t.Errorf("Enqueue() on full queue = %v, want context.DeadlineExceeded", err)
	}
}

func TestFillSequence(t *testing.T) {
	q := NewQueue(64)
	if err := FillSequence(context.Background(), q, 40, 3, 16); err != nil {
		t.Fatal(err)
	}
	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}

	buf := make([]Packet, 3)
	for i, pkt := range q.TryDequeue(buf, 3) {
		want := uint64(40 + i)
		if pkt.Seq != want {
			t.Errorf("packet %d Seq = %d, want %d", i, pkt.Seq, want)
		}
		if got := uint64(binary.LittleEndian.Uint32(pkt.Data[0:4])); got != want {
			t.Errorf("packet %d embedded identifier = %d, want %d", i, got, want)
		}
		if len(pkt.Data) != 16 {
			t.Errorf("packet %d size = %d, want 16", i, len(pkt.Data))
		}
	}
}
