package assetops

import (
	"hash/fnv"
	"sync"
)

const lockShards = 64

// Locks serializes writes to the same logical asset within this process.
// Without it, concurrent update/update or update/delete on one logical name
// can interleave their metadata and object writes and lose updates. Striped
// mutexes keep the table fixed-size; a hash collision only means two
// unrelated assets briefly share a lock.
type Locks struct {
	shards [lockShards]sync.Mutex
}

func NewLocks() *Locks {
	return &Locks{}
}

// Lock acquires the write lock for one logical asset and returns the
// matching unlock.
func (l *Locks) Lock(owner string, logicalPath string) func() {
	h := fnv.New32a()
	h.Write([]byte(owner))
	h.Write([]byte{0})
	h.Write([]byte(logicalPath))
	mu := &l.shards[h.Sum32()%lockShards]
	mu.Lock()
	return mu.Unlock
}
