package messagelog

import (
	"sync"
	"time"

	"github.com/orchestra-mcp/presence/src/types"
	"github.com/samber/lo"
)

// Entry is a received message as stored in the log.
type Entry struct {
	Seq        uint64        `json:"seq"`
	Message    types.Message `json:"message"`
	Receiver   string        `json:"receiver"`
	ReceivedAt time.Time     `json:"received_at"`
}

// Log is an append-only sequence of received messages in arrival order.
// Entries are never mutated or removed.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	nextSeq uint64
	now     func() time.Time
}

// New returns an empty log.
func New() *Log {
	return &Log{nextSeq: 1, now: time.Now}
}

// Append stores msg as received by the session of receiver.
func (l *Log) Append(receiver string, msg types.Message) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{
		Seq:        l.nextSeq,
		Message:    msg,
		Receiver:   receiver,
		ReceivedAt: l.now(),
	}
	l.nextSeq++
	l.entries = append(l.entries, e)
	return e
}

// Entries returns a copy of the whole log.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Since returns entries with a sequence number greater than seq.
func (l *Log) Since(seq uint64) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	// Seq starts at 1 and increments by one per entry.
	if seq >= uint64(len(l.entries)) {
		return []Entry{}
	}
	out := make([]Entry, len(l.entries)-int(seq))
	copy(out, l.entries[seq:])
	return out
}

// For returns the entries after seq that were received while receiver was
// the active identity. An empty receiver matches nothing.
func (l *Log) For(receiver string, after uint64) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if receiver == "" {
		return []Entry{}
	}
	return lo.Filter(l.entries, func(e Entry, _ int) bool {
		return e.Seq > after && e.Receiver == receiver
	})
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
