package kanban

import "github.com/erp/servicedesk/internal/domain/shared"

// OpenEnded marks a Shift with no upper bound
const OpenEnded = -1

// Shift adds Delta to every position p in a scope with From <= p <= To.
// To == OpenEnded means no upper bound.
type Shift struct {
	From  int
	To    int
	Delta int
}

// Covers reports whether pos falls inside the shift range
func (s Shift) Covers(pos int) bool {
	return pos >= s.From && (s.To == OpenEnded || pos <= s.To)
}

// Apply returns pos after the shift
func (s Shift) Apply(pos int) int {
	if s.Covers(pos) {
		return pos + s.Delta
	}
	return pos
}

// ReorderShift plans the shift for moving an item from oldPos to newPos inside
// one scope. Moving down closes (old, new]; moving up opens [new, old).
// ok is false when nothing moves.
func ReorderShift(oldPos, newPos int) (shift Shift, ok bool) {
	switch {
	case newPos > oldPos:
		return Shift{From: oldPos + 1, To: newPos, Delta: -1}, true
	case newPos < oldPos:
		return Shift{From: newPos, To: oldPos - 1, Delta: 1}, true
	default:
		return Shift{}, false
	}
}

// CloseGapShift plans the shift after removing the item at pos
func CloseGapShift(pos int) Shift {
	return Shift{From: pos + 1, To: OpenEnded, Delta: -1}
}

// OpenSlotShift plans the shift before inserting an item at pos
func OpenSlotShift(pos int) Shift {
	return Shift{From: pos, To: OpenEnded, Delta: 1}
}

// ClampPosition validates a requested position against a scope that allows
// positions 0..maxPos. Negative positions are rejected; positions past the end
// land at the end.
func ClampPosition(requested, maxPos int) (int, error) {
	if requested < 0 {
		return 0, shared.NewDomainError(shared.CodeInvalidInput, "Position cannot be negative")
	}
	if maxPos < 0 {
		maxPos = 0
	}
	if requested > maxPos {
		return maxPos, nil
	}
	return requested, nil
}

// IsDense reports whether positions are exactly 0..len-1 in any order
func IsDense(positions []int) bool {
	seen := make([]bool, len(positions))
	for _, p := range positions {
		if p < 0 || p >= len(positions) || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}
