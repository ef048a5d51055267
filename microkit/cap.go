package microkit

// Rights define which operations a region capability allows.
type Rights uint8

const (
	// RightProduce allows writing entry slots and the write counter.
	RightProduce Rights = 1 << iota
	// RightConsume allows reading entry slots and writing the read counter.
	RightConsume
	// RightInit allows the one-time header initialization.
	RightInit
)

// RegionCap grants access to a shared-memory region.
//
// It is opaque by construction (no exported fields). The trusted system
// wiring mints one full capability per region and hands each domain a
// restricted copy; a domain can narrow a capability further but never
// widen it.
type RegionCap struct {
	r      *Region
	rights Rights
}

// GrantRegion mints a capability over a region. Called only by the trusted
// wiring layer, before any domain runs.
func GrantRegion(r *Region, rights Rights) RegionCap {
	if r == nil || rights == 0 {
		return RegionCap{}
	}
	return RegionCap{r: r, rights: rights}
}

// Valid reports whether the capability grants anything at all.
func (c RegionCap) Valid() bool { return c.r != nil && c.rights != 0 }

// Has reports whether all of the given rights are held.
func (c RegionCap) Has(rights Rights) bool {
	return c.Valid() && c.rights&rights == rights
}

// Restrict returns a capability with a reduced set of rights.
func (c RegionCap) Restrict(rights Rights) RegionCap {
	if !c.Valid() {
		return RegionCap{}
	}
	r := c.rights & rights
	if r == 0 {
		return RegionCap{}
	}
	return RegionCap{r: c.r, rights: r}
}

// View unlocks the underlying region if the required rights are held.
func (c RegionCap) View(need Rights) (*Region, bool) {
	if !c.Has(need) {
		return nil, false
	}
	return c.r, true
}
