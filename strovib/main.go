package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/itohio/gostrovib/pkg/accel"
	"github.com/itohio/gostrovib/pkg/config"
)

var (
	flagPort   string
	flagConfig string
	flagMock   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "strovib",
		Short: "StroVib - stroboscope, tachometer and vibration meter",
		Long: `StroVib drives the multi-mode instrument from a desktop: a stroboscope
with rate and phase control, a lantern, an optical tachometer and a
vibration measurement session with spectral analysis.

The accelerometer pod connects over a serial port. Use --mock to run
against simulated sensors without any hardware attached.`,
		RunE: run,
	}

	rootCmd.Flags().StringVarP(&flagPort, "port", "p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
	rootCmd.Flags().StringVar(&flagConfig, "config", "config.yaml", "Configuration file path")
	rootCmd.Flags().BoolVar(&flagMock, "mock", false, "Use mocked sensors instead of hardware")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "ports",
		Short: "List available serial ports",
		RunE:  listPorts,
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override serial port if provided via command line
	if flagPort != "" {
		cfg.Serial.Port = flagPort
	}

	p := newPanel(cfg, flagConfig, flagMock)
	p.show()
	return nil
}

func listPorts(cmd *cobra.Command, args []string) error {
	ports, err := accel.Ports()
	if err != nil {
		return fmt.Errorf("failed to enumerate ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, port := range ports {
		if port.Description != "" && port.Description != port.Name {
			fmt.Printf("%s  %s\n", port.Name, port.Description)
		} else {
			fmt.Println(port.Name)
		}
	}
	return nil
}
