package feed

import (
	"sort"
	"sync"
)

// DefaultChannels is the channel set subscribed automatically on every
// successful connection.
var DefaultChannels = []string{"prices", "opportunities", "mev", "depth", "alpha"}

// Subscription is one channel subscription, optionally filtered to a set of
// pairs. An empty pair set means the whole channel.
type Subscription struct {
	Channel string
	Pairs   []string
}

// Registry tracks the set of channel subscriptions that must be replayed
// verbatim after every reconnect. It holds no connection state itself; the
// client decides when registry changes also go out on the wire.
type Registry struct {
	mu   sync.Mutex
	subs map[string]map[string]struct{} // channel -> pair set (empty = all pairs)
}

// NewRegistry creates a registry pre-populated with the given default
// channels.
func NewRegistry(defaultChannels []string) *Registry {
	r := &Registry{subs: make(map[string]map[string]struct{})}
	for _, ch := range defaultChannels {
		r.subs[ch] = make(map[string]struct{})
	}
	return r
}

// Add registers the channels (optionally scoped to pairs) and returns the
// channels whose registration actually changed. Re-adding an identical
// subscription is a no-op, so callers can keep wire sends down to one per
// real change.
func (r *Registry) Add(channels []string, pairs []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changed []string
	for _, ch := range channels {
		set, ok := r.subs[ch]
		if !ok {
			set = make(map[string]struct{})
			r.subs[ch] = set
			changed = append(changed, ch)
		}
		for _, p := range pairs {
			if _, ok := set[p]; !ok {
				set[p] = struct{}{}
				if !contains(changed, ch) {
					changed = append(changed, ch)
				}
			}
		}
	}
	return changed
}

// Remove drops the channels entirely and returns those that were present.
func (r *Registry) Remove(channels []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changed []string
	for _, ch := range channels {
		if _, ok := r.subs[ch]; ok {
			delete(r.subs, ch)
			changed = append(changed, ch)
		}
	}
	return changed
}

// List returns the current subscriptions sorted by channel name, with pairs
// sorted as well, so replay order is deterministic.
func (r *Registry) List() []Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Subscription, 0, len(r.subs))
	for ch, set := range r.subs {
		var pairs []string
		for p := range set {
			pairs = append(pairs, p)
		}
		sort.Strings(pairs)
		out = append(out, Subscription{Channel: ch, Pairs: pairs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
