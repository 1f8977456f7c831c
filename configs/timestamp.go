package configs

import "sync/atomic"

const MaxBroadcastID uint64 = 2000000

var broadcastID = uint64(0)

// NextBroadcastID tags one Broadcast call in logs and the journal.
func NextBroadcastID() uint64 {
	return atomic.AddUint64(&broadcastID, 1) % MaxBroadcastID
}
