package orders

import "time"

const day = 24 * time.Hour

// DeriveStatus maps the whole days elapsed since orderDate to a status.
// Orders dated in the future are PENDING.
func DeriveStatus(now, orderDate time.Time) Status {
	days := int(now.Sub(orderDate) / day)
	switch {
	case days >= 4:
		return StatusDelivered
	case days >= 3:
		return StatusShipped
	case days >= 1:
		return StatusProcessing
	default:
		return StatusPending
	}
}

// Refresh recomputes the status of every order that has no manual override.
// The input is left untouched; changed reports whether any status moved.
func Refresh(list []Order, now time.Time) (out []Order, changed bool) {
	out = make([]Order, len(list))
	for i, o := range list {
		if !o.StatusOverride {
			s := DeriveStatus(now, o.OrderDate)
			if s != o.Status {
				o.Status = s
				changed = true
			}
		}
		out[i] = o
	}
	return out, changed
}

// Merge concatenates lists and dedupes by id. An id keeps the position of
// its first occurrence and the value of its last.
func Merge(lists ...[]Order) []Order {
	index := map[int64]int{}
	var out []Order
	for _, l := range lists {
		for _, o := range l {
			if i, ok := index[o.ID]; ok {
				out[i] = o
				continue
			}
			index[o.ID] = len(out)
			out = append(out, o)
		}
	}
	return out
}
