package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gostrovib/pkg/accel"
	"github.com/itohio/gostrovib/pkg/vibro"
)

// showSettingsDialog displays a settings dialog with tabs for all
// configuration options.
func showSettingsDialog(p *panel) {
	tabs := container.NewAppTabs(
		createSerialTab(p),
		createVibrationTab(p),
		createMockTab(p),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, p.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// createSerialTab creates the Serial configuration tab. The sensor pod is
// opened once at startup, so a port change applies on the next start.
func createSerialTab(p *panel) *container.TabItem {
	ports, err := accel.Ports()
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
	}

	// Add current port if not in list
	currentPort := p.cfg.Serial.Port
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
		currentDisplay = currentPort
	}

	portSelect := widget.NewSelect(portOptions, func(selected string) {
		// Selection handler - will be called on submit
	})
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	averageSamplesEntry := widget.NewEntry()
	averageSamplesEntry.SetText(fmt.Sprintf("%d", p.cfg.Serial.AverageSamples))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port (next start)", Widget: portSelect},
			{Text: "Average Samples (0=disabled)", Widget: averageSamplesEntry},
		},
		OnSubmit: func() {
			if portSelect.Selected != "" {
				selectedPort := portMap[portSelect.Selected]
				if selectedPort == "" {
					selectedPort = portSelect.Selected // Fallback to selected text
				}
				p.cfg.Serial.Port = selectedPort
			}
			if avg, err := strconv.Atoi(averageSamplesEntry.Text); err == nil && avg >= 0 {
				p.cfg.Serial.AverageSamples = avg
			}
			if err := p.cfg.Save(p.cfgPath); err != nil {
				dialog.ShowError(fmt.Errorf("failed to save config: %w", err), p.window)
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createVibrationTab creates the Vibration configuration tab. Changes apply
// to the next measurement run; a run in progress keeps its timing.
func createVibrationTab(p *panel) *container.TabItem {
	calibrationEntry := widget.NewEntry()
	calibrationEntry.SetText(p.cfg.Vibration.CalibrationDuration.String())

	measurementEntry := widget.NewEntry()
	measurementEntry.SetText(p.cfg.Vibration.MeasurementDuration.String())

	samplePeriodEntry := widget.NewEntry()
	samplePeriodEntry.SetText(p.cfg.Vibration.SamplePeriod.String())

	estimatorSelect := widget.NewSelect([]string{vibro.EstimatorSpectral, vibro.EstimatorZeroCross}, func(selected string) {
		// Selection handler - will be called on submit
	})
	estimatorSelect.SetSelected(p.cfg.Vibration.Estimator)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Calibration Duration", Widget: calibrationEntry},
			{Text: "Measurement Duration", Widget: measurementEntry},
			{Text: "Sample Period", Widget: samplePeriodEntry},
			{Text: "Frequency Estimator", Widget: estimatorSelect},
		},
		OnSubmit: func() {
			if cd, err := time.ParseDuration(calibrationEntry.Text); err == nil && cd > 0 {
				p.cfg.Vibration.CalibrationDuration = cd
			}
			if md, err := time.ParseDuration(measurementEntry.Text); err == nil && md > 0 {
				p.cfg.Vibration.MeasurementDuration = md
			}
			if sp, err := time.ParseDuration(samplePeriodEntry.Text); err == nil && sp > 0 {
				p.cfg.Vibration.SamplePeriod = sp
			}
			if estimatorSelect.Selected != "" {
				p.cfg.Vibration.Estimator = estimatorSelect.Selected
			}
			if err := p.cfg.Save(p.cfgPath); err != nil {
				dialog.ShowError(fmt.Errorf("failed to save config: %w", err), p.window)
			}
		},
	}

	return container.NewTabItem("Vibration", form)
}

// createMockTab creates the Mock sensors configuration tab.
func createMockTab(p *panel) *container.TabItem {
	noiseLevelEntry := widget.NewEntry()
	noiseLevelEntry.SetText(fmt.Sprintf("%.3f", p.cfg.Mock.NoiseLevel))

	vibrationHzEntry := widget.NewEntry()
	vibrationHzEntry.SetText(fmt.Sprintf("%.1f", p.cfg.Mock.VibrationHz))

	vibrationAmpEntry := widget.NewEntry()
	vibrationAmpEntry.SetText(fmt.Sprintf("%.2f", p.cfg.Mock.VibrationAmp))

	sampleRateEntry := widget.NewEntry()
	sampleRateEntry.SetText(p.cfg.Mock.SampleRate.String())

	rpmEntry := widget.NewEntry()
	rpmEntry.SetText(fmt.Sprintf("%d", p.cfg.Mock.RPM))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Noise Level (m/s²)", Widget: noiseLevelEntry},
			{Text: "Vibration (Hz)", Widget: vibrationHzEntry},
			{Text: "Vibration Amplitude (m/s²)", Widget: vibrationAmpEntry},
			{Text: "Sample Rate", Widget: sampleRateEntry},
			{Text: "Shaft Speed (RPM)", Widget: rpmEntry},
		},
		OnSubmit: func() {
			if nl, err := strconv.ParseFloat(noiseLevelEntry.Text, 64); err == nil {
				p.cfg.Mock.NoiseLevel = nl
			}
			if hz, err := strconv.ParseFloat(vibrationHzEntry.Text, 64); err == nil {
				p.cfg.Mock.VibrationHz = hz
			}
			if amp, err := strconv.ParseFloat(vibrationAmpEntry.Text, 64); err == nil {
				p.cfg.Mock.VibrationAmp = amp
			}
			if sr, err := time.ParseDuration(sampleRateEntry.Text); err == nil && sr > 0 {
				p.cfg.Mock.SampleRate = sr
			}
			if rpm, err := strconv.Atoi(rpmEntry.Text); err == nil && rpm >= 0 {
				p.cfg.Mock.RPM = rpm
				if p.tachSim != nil {
					p.tachSim.SetRPM(rpm)
				}
			}
			if err := p.cfg.Save(p.cfgPath); err != nil {
				dialog.ShowError(fmt.Errorf("failed to save config: %w", err), p.window)
			}
		},
	}

	return container.NewTabItem("Mock", form)
}
