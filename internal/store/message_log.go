package store

import (
	"slices"
	"sort"
	"strings"
	"sync"

	"popclient/internal/domain"
	"popclient/internal/domain/types"
	"popclient/internal/message"
)

// MessageLog is the append-only log of accepted messages, one list per
// channel.
type MessageLog struct {
	kv       domain.KV
	appendMu sync.Mutex

	mu        sync.Mutex
	observers map[int]func(domain.LogEntry)
	nextObs   int
}

// NewMessageLog returns a log on kv.
func NewMessageLog(kv domain.KV) *MessageLog {
	return &MessageLog{kv: kv, observers: make(map[int]func(domain.LogEntry))}
}

var _ domain.MessageLog = (*MessageLog)(nil)

func logKey(ch types.Channel) string { return "log" + ch.String() }

// channelIndexKey lists every channel with at least one entry, in the order
// the channels were first appended to.
const channelIndexKey = "log-channels"

// Append records msg unless a message with the same id is already on ch.
// Observers run after the write, on the caller's goroutine, in append
// order; they must not append themselves.
func (l *MessageLog) Append(ch types.Channel, msg message.Message) (bool, error) {
	l.appendMu.Lock()
	defer l.appendMu.Unlock()
	var msgs []message.Message
	added := false
	first := false
	err := l.kv.Update(logKey(ch), &msgs, func(exists bool) (bool, error) {
		for _, m := range msgs {
			if m.MessageID.Equal(msg.MessageID) {
				return false, nil
			}
		}
		msgs = append(msgs, msg)
		added = true
		first = !exists
		return true, nil
	})
	if err != nil || !added {
		return false, err
	}
	if first {
		if err := l.index(ch); err != nil {
			return false, err
		}
	}
	entry := domain.LogEntry{Channel: ch, Message: msg}
	for _, fn := range l.snapshot() {
		fn(entry)
	}
	return true, nil
}

func (l *MessageLog) snapshot() []func(domain.LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fns := make([]func(domain.LogEntry), 0, len(l.observers))
	for i := 0; i < l.nextObs; i++ {
		if fn, ok := l.observers[i]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

func (l *MessageLog) index(ch types.Channel) error {
	var chs []types.Channel
	return l.kv.Update(channelIndexKey, &chs, func(bool) (bool, error) {
		if slices.Contains(chs, ch) {
			return false, nil
		}
		chs = append(chs, ch)
		return true, nil
	})
}

// Channels returns under and every logged channel below it, parents before
// children. Channels of the same depth keep the order they were first
// appended to.
func (l *MessageLog) Channels(under types.Channel) ([]types.Channel, error) {
	var chs []types.Channel
	if _, err := l.kv.Get(channelIndexKey, &chs); err != nil {
		return nil, err
	}
	prefix := under.String() + "/"
	out := chs[:0]
	for _, ch := range chs {
		if ch == under || strings.HasPrefix(ch.String(), prefix) {
			out = append(out, ch)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Segments()) < len(out[j].Segments())
	})
	return out, nil
}

// Messages returns the messages of ch in append order.
func (l *MessageLog) Messages(ch types.Channel) ([]message.Message, error) {
	var msgs []message.Message
	if _, err := l.kv.Get(logKey(ch), &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// OnAppend registers fn; the returned function removes it.
func (l *MessageLog) OnAppend(fn func(domain.LogEntry)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextObs
	l.nextObs++
	l.observers[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.observers, id)
		l.mu.Unlock()
	}
}
