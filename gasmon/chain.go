package main

import (
	"context"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"github.com/itohio/gomics/pkg/meter"
	"github.com/itohio/gomics/pkg/mics6814"
	"github.com/itohio/gomics/pkg/sample"
)

// measurementChain tracks the poller and meter goroutines for graceful
// shutdown. While it runs the poller owns the driver.
type measurementChain struct {
	cancel         context.CancelFunc
	meterGoroutine chan struct{} // Closed when meter goroutine exits
}

// registerMeterUpdates forwards meter updates to the scope widget,
// throttled to ~60 FPS.
func registerMeterUpdates(state *appState) {
	const updateInterval = 16 * time.Millisecond

	state.gasMeter.OnUpdate(func(samples []sample.Sample, alarms []meter.Alarm) {
		state.updateMu.Lock()
		now := time.Now()
		if now.Sub(state.lastUpdate) < updateInterval {
			state.updateMu.Unlock()
			return
		}
		state.lastUpdate = now
		state.updateMu.Unlock()

		heater := state.heaterOn.Load()
		fyne.Do(func() {
			state.scopeWidget.UpdateData(samples, alarms, heater)
		})
	})
}

// startMeasurementChain starts polling the driver and feeding the meter.
func startMeasurementChain(state *appState) {
	if state.chain != nil || state.driver == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	period := state.cfg.Measurement.Period

	gauge := sample.NewCheckedGauge(state.driver, state.board, state.log)
	samples := sample.NewPoller(gauge, period, 500)(ctx)
	if state.cfg.Measurement.AverageSamples > 0 {
		samples = sample.NewAveragingFilter(state.cfg.Measurement.AverageSamples, 500)(samples)
	}

	state.gasMeter.ResetShutdown()

	meterDone := make(chan struct{})
	go func() {
		defer close(meterDone)
		state.gasMeter.ProcessSamples(samples)
	}()

	state.chain = &measurementChain{
		cancel:         cancel,
		meterGoroutine: meterDone,
	}
	state.log.Debug().Dur("period", period).Msg("measurement started")
}

// stopMeasurementChain stops polling and waits until the chain has drained.
// Afterwards the driver is free for calibration.
func stopMeasurementChain(state *appState) {
	chain := state.chain
	if chain == nil {
		return
	}
	state.chain = nil

	chain.cancel()
	<-chain.meterGoroutine
	state.log.Debug().Msg("measurement stopped")
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.board != nil && state.board.IsConnected() {
		disconnect(state)
		return
	}

	b := newBoard(state)
	if err := b.Connect(); err != nil {
		dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", boardName(state), err), state.window)
		return
	}

	opts := state.cfg.DriverOptions()
	opts.Logger = &state.log
	drv, err := mics6814.New(b, state.cfg.DriverPins(), opts)
	if err != nil {
		b.Close()
		dialog.ShowError(fmt.Errorf("invalid sensor settings: %w", err), state.window)
		return
	}

	if baseline, ok := state.cfg.StoredBaseline(); ok {
		drv.LoadCalibration(baseline.Reducing, baseline.Oxidizing, baseline.Ammonia)
		state.log.Info().
			Uint16("red", baseline.Reducing).
			Uint16("ox", baseline.Oxidizing).
			Uint16("nh3", baseline.Ammonia).
			Msg("loaded stored baseline")
	}

	if err := b.SetHeater(true); err != nil {
		state.log.Warn().Err(err).Msg("failed to switch heater on")
	} else {
		state.heaterOn.Store(true)
	}

	state.board = b
	state.driver = drv
	state.log.Info().Str("board", boardName(state)).Msg("connected")

	state.calibrateBtn.Enable()
	state.heaterBtn.Enable()
	updateHeaterButton(state)
	updateStatus(state)

	startMeasurementChain(state)
}

// disconnect stops the chain and closes the board.
func disconnect(state *appState) {
	stopMeasurementChain(state)

	if state.board == nil {
		return
	}
	if err := state.board.Close(); err != nil {
		state.log.Error().Err(err).Msg("failed to close board")
	}
	state.board = nil
	state.driver = nil
	state.heaterOn.Store(false)
	state.log.Info().Str("board", boardName(state)).Msg("disconnected")

	if state.calibrateBtn != nil {
		state.calibrateBtn.Disable()
		state.heaterBtn.Disable()
		updateHeaterButton(state)
		updateStatus(state)
	}
}

// updateStatus shows the connection and baseline state.
func updateStatus(state *appState) {
	switch {
	case state.driver == nil:
		state.status.SetText("Disconnected")
	case state.calibrating:
		state.status.SetText(fmt.Sprintf("%s: calibrating", boardName(state)))
	case !state.driver.Calibrated():
		state.status.SetText(fmt.Sprintf("%s: not calibrated, readings are invalid", boardName(state)))
	default:
		b := state.driver.Baseline()
		state.status.SetText(fmt.Sprintf("%s: baseline RED %d OX %d NH3 %d",
			boardName(state), b.Reducing, b.Oxidizing, b.Ammonia))
	}
}
