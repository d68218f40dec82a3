// Package reconcile rebuilds complete receiver lists from a partial,
// append-only set-event log.
//
// Individual indexer events may each report only a subset of the receiver
// list they describe. The receivers hash on every event is a content address
// of the full canonical list, so every event carrying the same hash describes
// the identical underlying list. The union of seen entries across the WHOLE
// log for one hash is therefore the complete list, regardless of where in
// the timeline each event falls. Reconciliation must aggregate globally, not
// incrementally: a position-aware walk would under-report receivers for
// partially-logged events.
package reconcile

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/dripforge/dripforge/internal/streamcfg"
)

// SeenEntry is one receiver reported by a set event. A single event's
// entries may be an incomplete view of the underlying list.
type SeenEntry struct {
	ReceiverUserID *big.Int
	Config         *big.Int
	EntryID        string
}

// SetEvent is an immutable historical fact from the indexer: at
// BlockTimestamp, the (UserID, AssetID) stream configuration was committed
// under ReceiversHash.
type SetEvent struct {
	UserID              *big.Int
	AssetID             *big.Int
	ReceiversHash       [32]byte
	BlockTimestamp      uint64
	ReceiverSeenEntries []SeenEntry
}

// ReconciledEvent is a SetEvent augmented with the complete receiver list
// active at that event, reconstructed from the whole log.
type ReconciledEvent struct {
	SetEvent
	CurrentReceivers []streamcfg.Receiver
}

// MalformedEventError reports a set event that is missing required fields.
// Reconciliation fails whole on the first malformed record: a silently
// incomplete receiver list is a funds-accounting hazard, so no partial
// output is ever returned.
type MalformedEventError struct {
	Index int
	Field string
}

// Error implements the error interface.
func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed set event at index %d: missing %s", e.Index, e.Field)
}

// Reconcile produces one ReconciledEvent per input SetEvent, ordered by
// BlockTimestamp ascending with input-order tie-break (stable sort).
//
// The attached CurrentReceivers is the de-duplicated union, keyed by config,
// of every seen entry across all events sharing the event's receivers hash.
// Duplicate configs are field-identical by the content-address invariant, so
// the first occurrence is kept. The union is attached in canonical ascending
// (userId, config) order, which makes the result independent of input
// permutation. A hash with no seen entries at all yields an empty list
// rather than an error; well-formed logs never produce one, but a truncated
// log must not crash.
//
// Pure data transform: no I/O, no shared state, fresh slices per call.
func Reconcile(events []SetEvent) ([]ReconciledEvent, error) {
	for i, ev := range events {
		if err := checkEvent(i, ev); err != nil {
			return nil, err
		}
	}

	sorted := make([]SetEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BlockTimestamp < sorted[j].BlockTimestamp
	})

	// Phase 2+3: global union per distinct hash, de-duplicated by config.
	unions := make(map[[32]byte][]streamcfg.Receiver)
	seen := make(map[[32]byte]map[string]bool)
	for _, ev := range sorted {
		if seen[ev.ReceiversHash] == nil {
			seen[ev.ReceiversHash] = make(map[string]bool)
			unions[ev.ReceiversHash] = []streamcfg.Receiver{}
		}
		for _, entry := range ev.ReceiverSeenEntries {
			key := entry.Config.String()
			if seen[ev.ReceiversHash][key] {
				continue
			}
			seen[ev.ReceiversHash][key] = true
			unions[ev.ReceiversHash] = append(unions[ev.ReceiversHash], streamcfg.Receiver{
				UserID: new(big.Int).Set(entry.ReceiverUserID),
				Config: new(big.Int).Set(entry.Config),
			})
		}
	}
	for hash := range unions {
		sortReceivers(unions[hash])
	}

	out := make([]ReconciledEvent, len(sorted))
	for i, ev := range sorted {
		out[i] = ReconciledEvent{
			SetEvent:         ev,
			CurrentReceivers: cloneReceivers(unions[ev.ReceiversHash]),
		}
	}
	return out, nil
}

func checkEvent(index int, ev SetEvent) error {
	if ev.UserID == nil {
		return &MalformedEventError{Index: index, Field: "userId"}
	}
	if ev.AssetID == nil {
		return &MalformedEventError{Index: index, Field: "assetId"}
	}
	for _, entry := range ev.ReceiverSeenEntries {
		if entry.ReceiverUserID == nil {
			return &MalformedEventError{Index: index, Field: "receiverUserId"}
		}
		if entry.Config == nil {
			return &MalformedEventError{Index: index, Field: "config"}
		}
	}
	return nil
}

func sortReceivers(rs []streamcfg.Receiver) {
	sort.Slice(rs, func(i, j int) bool {
		if cmp := rs[i].UserID.Cmp(rs[j].UserID); cmp != 0 {
			return cmp < 0
		}
		return rs[i].Config.Cmp(rs[j].Config) < 0
	})
}

// cloneReceivers deep-copies a union so the ReconciledEvents sharing a hash
// stay independent value objects: mutating one event's receivers must not
// reach through shared big.Int pointers into another's.
func cloneReceivers(rs []streamcfg.Receiver) []streamcfg.Receiver {
	out := make([]streamcfg.Receiver, len(rs))
	for i, r := range rs {
		out[i] = streamcfg.Receiver{
			UserID: new(big.Int).Set(r.UserID),
			Config: new(big.Int).Set(r.Config),
		}
	}
	return out
}
