package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pixinvert/pixinvert/filters"
	"github.com/pixinvert/pixinvert/inverter"
	"github.com/spf13/cobra"
)

// logoName is the source logo inside the project root, the working directory.
const logoName = "K.png"

var rootCmd = &cobra.Command{
	Use:          "invertlogo",
	Short:        "Invert the colors of " + logoName + " keeping its transparency",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runInvert,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already printed the error.
		os.Exit(1)
	}
}

func runInvert(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("locating project root: %w", err)
	}
	opts := inverter.Options{Out: cmd.OutOrStdout()}
	if gpu := openGPU(); gpu != nil {
		defer gpu.Cleanup()
		opts.GPU = gpu
	}
	src := filepath.Join(root, logoName)
	_, err = inverter.Run(src, inverter.DestPath(src), opts)
	return err
}

// openGPU returns a GPU inverter or nil when the host has no usable adapter.
// Both paths produce identical output.
func openGPU() *filters.InvertFilterGPU {
	device, queue, err := filters.OpenDevice()
	if err != nil {
		return nil
	}
	gpu, err := filters.NewInvertGPU(device, queue, filters.InvertRGB)
	if err != nil {
		return nil
	}
	return gpu
}
