package events

import (
	"sync"
)

// Table names used as event topics. They match the SQLite table names.
const (
	TableSubscriptions = "subscriptions"
	TableMovements     = "movements"
	TableGoals         = "goals"
	TableCards         = "cards"
	TableUsers         = "users"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes a committed write against one table.
type Change struct {
	Table string
	Op    Op
	ID    int64
}

// Bus is a small in-process publish/subscribe hub for table changes.
// It replaces the reactive live-query mechanism of the storage layer with an
// explicit observer contract: writers publish after commit, observers receive
// the change on a buffered channel. Delivery is best-effort; a subscriber
// that stops draining its channel loses events rather than blocking writers.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan Change
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]chan Change)}
}

// Subscribe registers an observer for one table. The returned cancel func
// must be called when the observer is done; it closes the channel.
func (b *Bus) Subscribe(table string) (<-chan Change, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Change, 16)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	if b.subs[table] == nil {
		b.subs[table] = make(map[int]chan Change)
	}
	id := b.nextID
	b.nextID++
	b.subs[table][id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[table][id]; ok {
			delete(b.subs[table], id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish notifies all observers of table about a committed change.
// Observers with a full buffer are skipped.
func (b *Bus) Publish(table string, op Op, id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs[table] {
		select {
		case ch <- Change{Table: table, Op: op, ID: id}:
		default:
		}
	}
}

// Close shuts the bus down and closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for table, subs := range b.subs {
		for id, ch := range subs {
			delete(subs, id)
			close(ch)
		}
		delete(b.subs, table)
	}
}
