package broker

import (
	"sync"

	"github.com/kestrel-trading/kestrel/models"
)

// pendingKeyKind discriminates how a caller wants to query the pending
// index: by order id, by security, or all of it.
type pendingKeyKind int

const (
	byOrderID pendingKeyKind = iota
	bySecurity
	all
)

// pendingKey selects a slice of the pending index. Construct one with
// PendingKeyByOrderID, PendingKeyBySecurity, or PendingKeyAll.
type pendingKey struct {
	kind     pendingKeyKind
	orderID  models.OrderID
	security models.Security
}

func PendingKeyByOrderID(id models.OrderID) pendingKey {
	return pendingKey{kind: byOrderID, orderID: id}
}

func PendingKeyBySecurity(sec models.Security) pendingKey {
	return pendingKey{kind: bySecurity, security: sec}
}

func PendingKeyAll() pendingKey { return pendingKey{kind: all} }

// pendingIndex is two maps behind one logical index, kept coherent under a
// single write lock so byOrderID and bySecurity never disagree: the
// single-lock discipline is what makes "remove by orderId removes from both
// atomically" true without a second round of bookkeeping.
type pendingIndex struct {
	mu          sync.RWMutex
	byOrderID   map[models.OrderID]models.PendingOrder
	bySecurity  map[models.Security]map[models.OrderID]struct{}
}

func newPendingIndex() *pendingIndex {
	return &pendingIndex{
		byOrderID:  make(map[models.OrderID]models.PendingOrder),
		bySecurity: make(map[models.Security]map[models.OrderID]struct{}),
	}
}

// update upserts p into both maps, keyed by p.OrderID and the security of
// p.Order.
func (idx *pendingIndex) update(p models.PendingOrder) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	sec := p.Order.Security()
	idx.byOrderID[p.OrderID] = p
	if idx.bySecurity[sec] == nil {
		idx.bySecurity[sec] = make(map[models.OrderID]struct{})
	}
	idx.bySecurity[sec][p.OrderID] = struct{}{}
}

// remove deletes orderID from byOrderID and from the bySecurity slot it was
// indexed under, cleaning up an empty slot.
func (idx *pendingIndex) remove(orderID models.OrderID) (models.PendingOrder, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	p, ok := idx.byOrderID[orderID]
	if !ok {
		return models.PendingOrder{}, false
	}
	delete(idx.byOrderID, orderID)

	sec := p.Order.Security()
	if set, ok := idx.bySecurity[sec]; ok {
		delete(set, orderID)
		if len(set) == 0 {
			delete(idx.bySecurity, sec)
		}
	}
	return p, true
}

// get returns a snapshot list for the given key.
func (idx *pendingIndex) get(key pendingKey) []models.PendingOrder {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	switch key.kind {
	case byOrderID:
		if p, ok := idx.byOrderID[key.orderID]; ok {
			return []models.PendingOrder{p}
		}
		return nil
	case bySecurity:
		set := idx.bySecurity[key.security]
		out := make([]models.PendingOrder, 0, len(set))
		for id := range set {
			out = append(out, idx.byOrderID[id])
		}
		return out
	default: // all
		out := make([]models.PendingOrder, 0, len(idx.byOrderID))
		for _, p := range idx.byOrderID {
			out = append(out, p)
		}
		return out
	}
}
