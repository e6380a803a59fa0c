package workflow

// CompareOrder compares two events by the canonical ordering key
// (blockNumber, txIndex, logIndex). Returns -1, 0 or 1.
func CompareOrder(a, b Event) int {
	switch {
	case a.BlockNumber != b.BlockNumber:
		if a.BlockNumber < b.BlockNumber {
			return -1
		}
		return 1
	case a.TxIndex != b.TxIndex:
		if a.TxIndex < b.TxIndex {
			return -1
		}
		return 1
	case a.LogIndex != b.LogIndex:
		if a.LogIndex < b.LogIndex {
			return -1
		}
		return 1
	}
	return 0
}

// IsOrdered reports whether the sequence is strictly increasing in the
// canonical order. Equal keys count as a violation: two events sharing
// (blockNumber, txIndex, logIndex) indicate a corrupt event log, not a
// harmless duplicate. Replay must not run a reducer over input that fails
// this check.
func IsOrdered(events []Event) bool {
	for i := 1; i < len(events); i++ {
		if CompareOrder(events[i-1], events[i]) >= 0 {
			return false
		}
	}
	return true
}
