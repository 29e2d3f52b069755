package synccache

import "sync"

// Key identifies one logical, independently-synchronized list of records.
// Keys for different owners are independent synchronization domains.
type Key string

// Observer is the view side of the core. It receives a change signal only;
// content is pulled back through the snapshot accessor.
type Observer interface {
	CollectionChanged(key Key)
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	key Key
	id  int64
}

func (s Subscription) Key() Key {
	return s.key
}

type subscriber struct {
	id  int64
	obs Observer
}

// fanout maps collection keys to their live observers and delivers change
// notifications in subscription order.
type fanout struct {
	mu   sync.Mutex
	seq  int64
	subs map[Key][]subscriber
}

func newFanout() *fanout {
	return &fanout{subs: make(map[Key][]subscriber)}
}

func (f *fanout) add(key Key, obs Observer) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	f.subs[key] = append(f.subs[key], subscriber{id: f.seq, obs: obs})
	return Subscription{key: key, id: f.seq}
}

// remove drops the subscription and reports whether the key has no
// observers left.
func (f *fanout) remove(sub Subscription) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := f.subs[sub.key]
	for i, s := range list {
		if s.id == sub.id {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(f.subs, sub.key)
		return true
	}
	f.subs[sub.key] = list
	return false
}

func (f *fanout) count(key Key) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[key])
}

func (f *fanout) active(key Key, id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.subs[key] {
		if s.id == id {
			return true
		}
	}
	return false
}

// notify delivers the change signal to every observer subscribed to key.
// Callbacks run outside the registry lock so an observer may unsubscribe
// itself or a sibling mid-delivery; an observer that unsubscribed is never
// notified after the fact.
func (f *fanout) notify(key Key) {
	f.mu.Lock()
	snapshot := make([]subscriber, len(f.subs[key]))
	copy(snapshot, f.subs[key])
	f.mu.Unlock()

	for _, s := range snapshot {
		if f.active(key, s.id) {
			s.obs.CollectionChanged(key)
		}
	}
}
