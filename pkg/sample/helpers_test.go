package sample

import (
	"time"

	"github.com/itohio/gomics/pkg/mics6814"
)

func makeSample(ts time.Time, co, no2, nh3 float32) Sample {
	s := Sample{Timestamp: ts}
	s.Concentration = [mics6814.NumGases]float32{co, no2, nh3}
	return s
}
