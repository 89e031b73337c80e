package main

import (
	"flag"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/gomics/pkg/board"
	"github.com/itohio/gomics/pkg/config"
	"github.com/itohio/gomics/pkg/meter"
	"github.com/itohio/gomics/pkg/mics6814"
	"github.com/itohio/gomics/pkg/scope"
	"github.com/rs/zerolog"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use simulated sensor instead of serial port")
		enviroFlag = flag.Bool("enviro", false, "Use ADS1015 on I2C (Enviro+ wiring) instead of serial port")
		debugFlag  = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *debugFlag {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *configFlag).Msg("failed to load configuration")
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	application := app.NewWithID("com.itohio.gomics")

	window := application.NewWindow("MICS6814 Gas Monitor")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		log:        logger,
		gasMeter:   meter.New(cfg, logger),
		window:     window,
		useMock:    *mockFlag,
		useEnviro:  *enviroFlag,
	}

	toolbar := createToolbar(state)
	state.scopeWidget = scope.New(cfg)
	state.status = widget.NewLabel("Disconnected")

	registerMeterUpdates(state)

	window.SetContent(container.NewBorder(
		toolbar,
		state.status,
		nil,
		nil,
		state.scopeWidget,
	))
	window.SetOnClosed(func() {
		disconnect(state)
	})
	window.ShowAndRun()
}

// appState holds the application state. Fields are touched from the fyne
// thread only unless noted.
type appState struct {
	cfg        *config.Config
	configPath string
	log        zerolog.Logger

	board    board.Board
	driver   *mics6814.Driver
	gasMeter *meter.Meter
	chain    *measurementChain // Current measurement chain (nil while stopped)

	window       fyne.Window
	scopeWidget  *scope.ScopeWidget
	status       *widget.Label
	connectBtn   *widget.Button
	calibrateBtn *widget.Button
	heaterBtn    *widget.Button
	useMock      bool
	useEnviro    bool
	calibrating  bool

	// Read by the meter callback
	heaterOn   atomic.Bool
	lastUpdate time.Time
	updateMu   sync.Mutex
}

// createToolbar creates the application toolbar.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	calibrateBtn := widget.NewButtonWithIcon("Calibrate", theme.MediaRecordIcon(), func() {
		handleCalibrate(state)
	})
	calibrateBtn.Disable()
	state.calibrateBtn = calibrateBtn

	heaterBtn := widget.NewButtonWithIcon("Heater", theme.VisibilityIcon(), func() {
		handleHeaterToggle(state)
	})
	heaterBtn.Disable()
	state.heaterBtn = heaterBtn

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(connectBtn, settingsBtn, calibrateBtn),
		container.NewHBox(heaterBtn),
		nil,
	)
}

// newBoard creates the board selected by the command line flags.
func newBoard(state *appState) board.Board {
	switch {
	case state.useMock:
		return board.NewMock(&state.cfg.Mock, state.cfg.DriverPins(), state.cfg.ADC.MaxCode)
	case state.useEnviro:
		return board.NewEnviro(state.cfg.Enviro, state.cfg.ADC.MaxCode, state.log)
	default:
		return board.NewSerial(state.cfg.Serial.Port, state.cfg.Serial.BaudRate, state.cfg.Serial.Timeout, state.log)
	}
}

// boardName describes the selected board for messages.
func boardName(state *appState) string {
	switch {
	case state.useMock:
		return "simulated sensor"
	case state.useEnviro:
		return "Enviro+ ADC"
	default:
		return state.cfg.Serial.Port
	}
}
