package binding

// ArrayEqual reports whether a and b hold the same elements in the same
// order.
func ArrayEqual[E comparable](a, b []E) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// StableArray returns prev when next has the same elements, and next
// otherwise. Hooks use it to keep a key list from the previous render so
// an equal list built anew does not look like a change.
func StableArray[E comparable](prev, next []E) []E {
	if prev != nil && ArrayEqual(prev, next) {
		return prev
	}
	return next
}
