package autobot

// HeldLocks returns how many directories currently have a lock entry.
func (n *Namer) HeldLocks() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.locks)
}
