package main

import (
	"fmt"

	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// handleHeaterToggle switches the sensor heater. Readings taken with the
// heater off are meaningless until it has warmed up again.
func handleHeaterToggle(state *appState) {
	if state.board == nil || !state.board.IsConnected() {
		return
	}

	on := !state.heaterOn.Load()
	if err := state.board.SetHeater(on); err != nil {
		dialog.ShowError(fmt.Errorf("failed to set heater: %w", err), state.window)
		return
	}
	state.heaterOn.Store(on)
	state.log.Info().Bool("on", on).Msg("heater switched")

	updateHeaterButton(state)
}

// updateHeaterButton updates the visual state of the heater button.
func updateHeaterButton(state *appState) {
	btn := state.heaterBtn
	if state.heaterOn.Load() {
		btn.Importance = widget.HighImportance
	} else {
		btn.Importance = widget.MediumImportance
	}
	btn.Refresh()
}
