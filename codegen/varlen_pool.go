package codegen

// VarlenPool is an arena holding the bytes of variable length values packed into records; a
// packed record holds the offset of the bytes in the pool. A pool lives for one query
// execution.
type VarlenPool struct {
	buf []byte
}

func NewVarlenPool() *VarlenPool {
	return &VarlenPool{}
}

// Add copies b into the pool and returns its offset.
func (vp *VarlenPool) Add(b []byte) uint64 {
	off := uint64(len(vp.buf))
	vp.buf = append(vp.buf, b...)
	return off
}

// Get returns the length bytes at off; the bytes must not be modified.
func (vp *VarlenPool) Get(off uint64, length uint32) []byte {
	return vp.buf[off : off+uint64(length)]
}

func (vp *VarlenPool) Size() int {
	return len(vp.buf)
}

func (vp *VarlenPool) Reset() {
	vp.buf = vp.buf[:0]
}
