package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gomics/pkg/board"
	"github.com/itohio/gomics/pkg/meter"
	"github.com/itohio/gomics/pkg/mics6814"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createSensorTab(state),
		createCalibrationTab(state),
		createMeasurementTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// saveConfig writes the configuration and reports failures.
func saveConfig(state *appState) {
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
	}
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	ports, err := board.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	} else {
		state.log.Warn().Err(err).Msg("failed to list serial ports")
	}

	// Add current port if not in list
	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(state.cfg.Serial.Timeout.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
			{Text: "Reply Timeout", Widget: timeoutEntry},
		},
		OnSubmit: func() {
			selectedPort := state.cfg.Serial.Port
			if portSelect.Selected != "" {
				selectedPort = portMap[portSelect.Selected]
				if selectedPort == "" {
					selectedPort = portSelect.Selected // Fallback to selected text
				}
			}
			changed := selectedPort != state.cfg.Serial.Port
			state.cfg.Serial.Port = selectedPort

			if baud, err := strconv.Atoi(baudEntry.Text); err == nil && baud > 0 {
				changed = changed || baud != state.cfg.Serial.BaudRate
				state.cfg.Serial.BaudRate = baud
			}
			if timeout, err := time.ParseDuration(timeoutEntry.Text); err == nil && timeout > 0 {
				state.cfg.Serial.Timeout = timeout
			}
			saveConfig(state)

			// Reconnect a serial board with the new port
			serialConnected := !state.useMock && !state.useEnviro && state.board != nil && state.board.IsConnected()
			if changed && serialConnected && !state.calibrating {
				disconnect(state)
				handleConnect(state)
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createSensorTab creates the wiring and converter tab. Changes apply on
// the next connect.
func createSensorTab(state *appState) *container.TabItem {
	pinEntries := [mics6814.NumChannels]*widget.Entry{}
	pins := [mics6814.NumChannels]*uint8{
		mics6814.Reducing:  &state.cfg.Pins.Reducing,
		mics6814.Oxidizing: &state.cfg.Pins.Oxidizing,
		mics6814.Ammonia:   &state.cfg.Pins.Ammonia,
	}
	items := make([]*widget.FormItem, 0, mics6814.NumChannels+1)
	for _, ch := range mics6814.Channels {
		pinEntries[ch] = widget.NewEntry()
		pinEntries[ch].SetText(strconv.Itoa(int(*pins[ch])))
		items = append(items, &widget.FormItem{Text: ch.String() + " Pin", Widget: pinEntries[ch]})
	}

	maxCodeEntry := widget.NewEntry()
	maxCodeEntry.SetText(strconv.Itoa(int(state.cfg.ADC.MaxCode)))
	items = append(items, &widget.FormItem{Text: "ADC Max Code", Widget: maxCodeEntry})

	form := &widget.Form{
		Items: items,
		OnSubmit: func() {
			for _, ch := range mics6814.Channels {
				if v, err := strconv.ParseUint(pinEntries[ch].Text, 10, 8); err == nil {
					*pins[ch] = uint8(v)
				}
			}
			if v, err := strconv.ParseUint(maxCodeEntry.Text, 10, 16); err == nil {
				if mics6814.MaxWindow(uint16(v)) < state.cfg.Calibration.Window {
					dialog.ShowError(fmt.Errorf("max code %d is too large for a calibration window of %d: %w",
						v, state.cfg.Calibration.Window, mics6814.ErrWindowOverflow), state.window)
					return
				}
				state.cfg.ADC.MaxCode = uint16(v)
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Sensor", container.NewVBox(
		widget.NewLabel("Changes apply on the next connect."),
		form,
	))
}

// createCalibrationTab creates the Calibration configuration tab.
func createCalibrationTab(state *appState) *container.TabItem {
	windowEntry := widget.NewEntry()
	windowEntry.SetText(strconv.Itoa(state.cfg.Calibration.Window))

	toleranceEntry := widget.NewEntry()
	toleranceEntry.SetText(strconv.Itoa(int(state.cfg.Calibration.Tolerance)))

	intervalEntry := widget.NewEntry()
	intervalEntry.SetText(state.cfg.Calibration.Interval.String())

	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(state.cfg.Calibration.Timeout.String())

	baselineLabel := widget.NewLabel(baselineText(state))

	clearBtn := widget.NewButton("Forget Stored Baseline", func() {
		state.cfg.Calibration.Baseline = nil
		saveConfig(state)
		baselineLabel.SetText(baselineText(state))
	})

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window (rounds)", Widget: windowEntry},
			{Text: "Tolerance (codes)", Widget: toleranceEntry},
			{Text: "Round Interval", Widget: intervalEntry},
			{Text: "Timeout (0 = none)", Widget: timeoutEntry},
		},
		OnSubmit: func() {
			if w, err := strconv.Atoi(windowEntry.Text); err == nil && w > 0 {
				if w > mics6814.MaxWindow(state.cfg.ADC.MaxCode) {
					dialog.ShowError(fmt.Errorf("window %d overflows the accumulator: %w", w, mics6814.ErrWindowOverflow), state.window)
					return
				}
				state.cfg.Calibration.Window = w
			}
			if tol, err := strconv.ParseUint(toleranceEntry.Text, 10, 16); err == nil {
				state.cfg.Calibration.Tolerance = uint16(tol)
			}
			if interval, err := time.ParseDuration(intervalEntry.Text); err == nil {
				state.cfg.Calibration.Interval = interval
			}
			if timeout, err := time.ParseDuration(timeoutEntry.Text); err == nil && timeout >= 0 {
				state.cfg.Calibration.Timeout = timeout
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Calibration", container.NewVBox(
		form,
		widget.NewSeparator(),
		baselineLabel,
		clearBtn,
	))
}

func baselineText(state *appState) string {
	b, ok := state.cfg.StoredBaseline()
	if !ok {
		return "Stored baseline: none"
	}
	return fmt.Sprintf("Stored baseline: RED %d OX %d NH3 %d", b.Reducing, b.Oxidizing, b.Ammonia)
}

// createMeasurementTab creates the Measurement configuration tab.
func createMeasurementTab(state *appState) *container.TabItem {
	periodEntry := widget.NewEntry()
	periodEntry.SetText(state.cfg.Measurement.Period.String())

	windowSecondsEntry := widget.NewEntry()
	windowSecondsEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Measurement.WindowSeconds))

	averageSamplesEntry := widget.NewEntry()
	averageSamplesEntry.SetText(strconv.Itoa(state.cfg.Measurement.AverageSamples))

	minAlarmEntry := widget.NewEntry()
	minAlarmEntry.SetText(state.cfg.Measurement.MinAlarmDuration.String())

	thresholds := [mics6814.NumGases]*float32{
		mics6814.CO:  &state.cfg.Measurement.Thresholds.CO,
		mics6814.NO2: &state.cfg.Measurement.Thresholds.NO2,
		mics6814.NH3: &state.cfg.Measurement.Thresholds.NH3,
	}
	thresholdEntries := [mics6814.NumGases]*widget.Entry{}

	items := []*widget.FormItem{
		{Text: "Period", Widget: periodEntry},
		{Text: "Window (seconds)", Widget: windowSecondsEntry},
		{Text: "Average Samples (0=disabled)", Widget: averageSamplesEntry},
		{Text: "Min Alarm Duration", Widget: minAlarmEntry},
	}
	for _, g := range mics6814.Gases {
		thresholdEntries[g] = widget.NewEntry()
		thresholdEntries[g].SetText(strconv.FormatFloat(float64(*thresholds[g]), 'g', -1, 32))
		items = append(items, &widget.FormItem{Text: g.String() + " Alarm (ppm, 0=off)", Widget: thresholdEntries[g]})
	}

	form := &widget.Form{
		Items: items,
		OnSubmit: func() {
			if p, err := time.ParseDuration(periodEntry.Text); err == nil && p > 0 {
				state.cfg.Measurement.Period = p
			}
			if ws, err := strconv.ParseFloat(windowSecondsEntry.Text, 64); err == nil && ws > 0 {
				state.cfg.Measurement.WindowSeconds = ws
			}
			if avg, err := strconv.Atoi(averageSamplesEntry.Text); err == nil && avg >= 0 {
				state.cfg.Measurement.AverageSamples = avg
			}
			if d, err := time.ParseDuration(minAlarmEntry.Text); err == nil && d >= 0 {
				state.cfg.Measurement.MinAlarmDuration = d
			}
			for _, g := range mics6814.Gases {
				if v, err := strconv.ParseFloat(thresholdEntries[g].Text, 32); err == nil && v >= 0 {
					*thresholds[g] = float32(v)
				}
			}
			saveConfig(state)
			applyMeasurementSettings(state)
		},
	}

	return container.NewTabItem("Measurement", form)
}

// applyMeasurementSettings replaces the meter and restarts a running chain.
func applyMeasurementSettings(state *appState) {
	running := state.chain != nil
	stopMeasurementChain(state)

	state.gasMeter = meter.New(state.cfg, state.log)
	registerMeterUpdates(state)

	if running {
		startMeasurementChain(state)
	}
}

// createMockTab creates the simulated sensor tab. Parameters apply on the
// next connect; gas exposure applies immediately.
func createMockTab(state *appState) *container.TabItem {
	noiseLevelEntry := widget.NewEntry()
	noiseLevelEntry.SetText(strconv.FormatFloat(state.cfg.Mock.NoiseLevel, 'g', -1, 64))

	warmupEntry := widget.NewEntry()
	warmupEntry.SetText(state.cfg.Mock.WarmupTau.String())

	realTimeCheck := widget.NewCheck("", nil)
	realTimeCheck.SetChecked(state.cfg.Mock.RealTime)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Noise Level (codes)", Widget: noiseLevelEntry},
			{Text: "Warm-up Time Constant", Widget: warmupEntry},
			{Text: "Real Time", Widget: realTimeCheck},
		},
		OnSubmit: func() {
			if nl, err := strconv.ParseFloat(noiseLevelEntry.Text, 64); err == nil && nl >= 0 {
				state.cfg.Mock.NoiseLevel = nl
			}
			if tau, err := time.ParseDuration(warmupEntry.Text); err == nil && tau >= 0 {
				state.cfg.Mock.WarmupTau = tau
			}
			state.cfg.Mock.RealTime = realTimeCheck.Checked
			saveConfig(state)
		},
	}

	gasNames := make([]string, 0, mics6814.NumGases)
	for _, g := range mics6814.Gases {
		gasNames = append(gasNames, g.String())
	}
	gasSelect := widget.NewSelect(gasNames, nil)
	gasSelect.SetSelectedIndex(int(mics6814.CO))

	ppmEntry := widget.NewEntry()
	ppmEntry.SetText("0")

	exposeBtn := widget.NewButton("Expose", func() {
		mock, ok := state.board.(*board.Mock)
		if !ok {
			dialog.ShowInformation("Mock", "Connect with -mock to expose the simulated sensor.", state.window)
			return
		}
		ppm, err := strconv.ParseFloat(ppmEntry.Text, 32)
		if err != nil || ppm < 0 {
			dialog.ShowError(fmt.Errorf("invalid concentration %q", ppmEntry.Text), state.window)
			return
		}
		g := mics6814.Gas(gasSelect.SelectedIndex())
		mock.SetConcentration(g, float32(ppm))
		state.log.Info().Stringer("gas", g).Float64("ppm", ppm).Msg("simulated exposure")
	})

	exposure := container.NewGridWithColumns(3, gasSelect, ppmEntry, exposeBtn)

	return container.NewTabItem("Mock", container.NewVBox(
		form,
		widget.NewSeparator(),
		widget.NewLabel("Gas exposure (ppm, 0 = clean air)"),
		exposure,
	))
}
