package protocol

// SequenceID is a 16-bit wrapping counter. Never compare two SequenceIDs
// with < or >; use IsMoreRecent.
type SequenceID uint16

// IsMoreRecent reports whether candidate lies in the forward half of the
// ring relative to reference. Equal ids and the antipodal id (exactly half
// the ring away) are not more recent, so for any a != b at most one of
// IsMoreRecent(a, b) and IsMoreRecent(b, a) holds.
func IsMoreRecent(candidate, reference SequenceID) bool {
	return int16(candidate-reference) > 0
}

// IsMoreRecentOrEqual reports candidate == reference || IsMoreRecent(candidate, reference).
func IsMoreRecentOrEqual(candidate, reference SequenceID) bool {
	return candidate == reference || IsMoreRecent(candidate, reference)
}

// Difference returns the signed forward distance from reference to candidate.
func Difference(candidate, reference SequenceID) int {
	return int(int16(candidate - reference))
}

// Next returns the id following id, wrapping at 2^16.
func (id SequenceID) Next() SequenceID { return id + 1 }

// Prev returns the id preceding id, wrapping at 0.
func (id SequenceID) Prev() SequenceID { return id - 1 }
