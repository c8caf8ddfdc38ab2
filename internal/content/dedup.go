package content

// DedupTable maps a content hash to the index of the first item that produced
// it. It lives for one job and is owned by a single recorder goroutine.
type DedupTable struct {
	seen map[string]int
}

// NewDedupTable returns an empty table.
func NewDedupTable() *DedupTable {
	return &DedupTable{seen: make(map[string]int)}
}

// Lookup returns the first index registered for hash.
func (d *DedupTable) Lookup(hash string) (int, bool) {
	idx, ok := d.seen[hash]
	return idx, ok
}

// Register records index as the owner of hash unless the hash is already known.
func (d *DedupTable) Register(hash string, index int) {
	if _, ok := d.seen[hash]; ok {
		return
	}
	d.seen[hash] = index
}

// Len returns the number of distinct hashes seen.
func (d *DedupTable) Len() int {
	return len(d.seen)
}
