// Package mics6814 drives an SGX MiCS-6814 three channel metal-oxide gas sensor
// through a caller supplied analog sampler.
//
// The sensor exposes three sensing elements behind voltage dividers:
//
//   - RED (reducing) responds to CO,
//   - OX (oxidising) responds to NO2,
//   - NH3 responds to ammonia.
//
// The driver first acquires a clean-air baseline for every channel, either by
// running Calibrate, which waits until all three channels stop drifting, or by
// restoring previously stored values with LoadCalibration. Afterwards Measure
// converts the resistance ratio of a channel into a concentration in ppm using
// the empirical power curves from the datasheet.
//
// The driver is synchronous and holds no locks: every call blocks for the
// duration of its sampling bursts, and a Driver must not be used from more
// than one goroutine at a time.
//
// # Datasheet
//
// https://www.sgxsensortech.com/content/uploads/2015/02/1143_Datasheet-MiCS-6814-rev-8.pdf
package mics6814
