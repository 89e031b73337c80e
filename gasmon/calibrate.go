package main

import (
	"context"
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gomics/pkg/mics6814"
)

// handleCalibrate stops polling, runs a bounded calibration on a background
// goroutine and persists the new baseline.
func handleCalibrate(state *appState) {
	if state.driver == nil || state.calibrating {
		return
	}

	stopMeasurementChain(state)

	// Drop errors left over from polling
	_ = state.board.Err()

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout := state.cfg.Calibration.Timeout; timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	progress := dialog.NewCustom("Calibrating", "Cancel",
		container.NewVBox(
			widget.NewLabel("Keep the sensor in clean air until all channels settle."),
			widget.NewProgressBarInfinite(),
		),
		state.window,
	)
	progress.SetOnClosed(cancel)

	state.calibrating = true
	state.calibrateBtn.Disable()
	state.connectBtn.Disable()
	updateStatus(state)
	progress.Show()

	drv := state.driver
	previous := drv.Baseline()
	go func() {
		err := drv.CalibrateContext(ctx)
		cancel()
		fyne.Do(func() {
			finishCalibration(state, progress, previous, err)
		})
	}()
}

// finishCalibration runs on the fyne thread once CalibrateContext returned.
func finishCalibration(state *appState, progress dialog.Dialog, previous mics6814.BaselineSet, err error) {
	state.calibrating = false
	progress.Hide()
	state.calibrateBtn.Enable()
	state.connectBtn.Enable()

	if state.driver == nil {
		// Disconnected while calibrating
		return
	}

	switch {
	case errors.Is(err, context.Canceled):
		state.log.Info().Msg("calibration cancelled")
	case errors.Is(err, mics6814.ErrCalibrationTimeout):
		dialog.ShowError(fmt.Errorf("sensor did not settle within %s: %w", state.cfg.Calibration.Timeout, err), state.window)
	case err != nil:
		dialog.ShowError(err, state.window)
	default:
		if berr := state.board.Err(); berr != nil {
			// The baseline was built from failed reads
			state.driver.LoadCalibration(previous.Reducing, previous.Oxidizing, previous.Ammonia)
			dialog.ShowError(fmt.Errorf("calibration used failed readings: %w", berr), state.window)
			break
		}
		state.cfg.StoreBaseline(state.driver.Baseline())
		if serr := state.cfg.Save(state.configPath); serr != nil {
			dialog.ShowError(fmt.Errorf("failed to save baseline: %w", serr), state.window)
		}
	}

	updateStatus(state)
	startMeasurementChain(state)
}
