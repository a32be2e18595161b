package cardano

import "time"

// Shelley-era mainnet constants: slot 4924800 began at unix 1596491091 and
// slots tick once per second.
const (
	shelleyStartUnix = 1596491091
	shelleyStartSlot = 4924800

	// SlotsPerDay is one day expressed in slots.
	SlotsPerDay = 86400
)

// SlotTimestamp converts a slot number to unix seconds.
func SlotTimestamp(slot uint64) int64 {
	return shelleyStartUnix + (int64(slot) - shelleyStartSlot)
}

// TimestampSlot converts unix seconds to a slot number.
func TimestampSlot(ts int64) uint64 {
	return uint64(ts-shelleyStartUnix) + shelleyStartSlot
}

// SlotTime converts a slot number to wall-clock time.
func SlotTime(slot uint64) time.Time {
	return time.Unix(SlotTimestamp(slot), 0).UTC()
}
