package main

import "machine"

const (
	// Loop timing
	LOOP_SLEEP_US    = 100 // Main loop granularity in microseconds
	STEP_INTERVAL_MS = 2   // Control loop step interval in milliseconds
	STATUS_PERIOD_MS = 500 // Interval between status lines on the serial console
	DEBOUNCE_MS      = 30  // Button debounce window

	// Flash lamp gate (drives the LED array MOSFET)
	PIN_LAMP = machine.D0

	// Optical tachometer pickup, one falling edge per revolution
	PIN_TACH = machine.D1

	// Front panel buttons, active low
	PIN_BTN_MODE = machine.D2
	PIN_BTN_SEL  = machine.D3
	PIN_BTN_X2   = machine.D6
	PIN_BTN_DIV2 = machine.D7

	// Rotary encoder quadrature pair
	PIN_ENC_A = machine.D8
	PIN_ENC_B = machine.D9

	// I2C bus frequency for the LIS3DH accelerometer
	I2C_FREQUENCY = 400 * machine.KHz
)
