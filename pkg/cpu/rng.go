package cpu

// Linear congruential generator constants from Numerical Recipes,
// named explicitly by spec section 4.5 so guest programs can rely on
// a reproducible sequence across hosts and Go versions — a property
// math/rand does not promise.
const (
	lcgMultiplier uint32 = 1664525
	lcgIncrement  uint32 = 1013904223
)

// seedRNG sets the generator's internal state directly to seed.
func (c *CPU) seedRNG(seed uint32) {
	c.rngState = seed
}

// nextRNG advances the generator and returns the new value.
func (c *CPU) nextRNG() uint32 {
	c.rngState = lcgMultiplier*c.rngState + lcgIncrement
	return c.rngState
}
