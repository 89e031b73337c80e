package mics6814

// BaselineSet holds the clean-air resistance of every channel in sampler
// codes.
type BaselineSet struct {
	Reducing  uint16 `yaml:"reducing"`
	Oxidizing uint16 `yaml:"oxidizing"`
	Ammonia   uint16 `yaml:"ammonia"`
}

// Get returns the baseline of ch, or 0 for an unknown channel.
func (b BaselineSet) Get(ch Channel) uint16 {
	switch ch {
	case Reducing:
		return b.Reducing
	case Oxidizing:
		return b.Oxidizing
	case Ammonia:
		return b.Ammonia
	}
	return 0
}

// Valid reports whether every value lies strictly between 0 and maxCode.
// Zero and full scale are disconnected or saturated readings.
func (b BaselineSet) Valid(maxCode uint16) bool {
	for _, ch := range Channels {
		v := b.Get(ch)
		if v == 0 || v >= maxCode {
			return false
		}
	}
	return true
}

// Readings is one code per channel, indexed by Channel.
type Readings [NumChannels]uint16
