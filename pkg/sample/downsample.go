package sample

import "github.com/itohio/gomics/pkg/mics6814"

// DownsampleSamples reduces samples to at most maxPoints for display.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
//
// Samples are split into maxPoints consecutive buckets. Each point is the
// first sample of its bucket carrying the bucket's peak valid concentration
// per gas, so a short spike survives decimation. A gas with no valid value
// in the bucket stays Invalid.
func DownsampleSamples(dst []Sample, samples []Sample, maxPoints int) []Sample {
	if len(samples) <= maxPoints {
		if cap(dst) >= len(samples) {
			dst = dst[:len(samples)]
			copy(dst, samples)
			return dst
		}
		result := make([]Sample, len(samples))
		copy(result, samples)
		return result
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]Sample, 0, maxPoints)
	}

	n := len(samples)
	for i := range maxPoints {
		bucket := samples[i*n/maxPoints : (i+1)*n/maxPoints]
		dst = append(dst, peak(bucket))
	}
	return dst
}

// peak folds a non-empty bucket into one point.
func peak(bucket []Sample) Sample {
	p := bucket[0]
	for _, s := range bucket[1:] {
		for g, ppm := range s.Concentration {
			if ppm == mics6814.Invalid {
				continue
			}
			if p.Concentration[g] == mics6814.Invalid || ppm > p.Concentration[g] {
				p.Concentration[g] = ppm
			}
		}
	}
	return p
}
