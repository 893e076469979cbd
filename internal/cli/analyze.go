package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"go-smear-analyzer/internal/analyzer"
	"go-smear-analyzer/pkg/models"
)

func analyzeCmd() *cobra.Command {
	var seed int64
	var boxesPath string
	var pixelSize, dilution, depth float64

	c := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Run the full analysis pipeline on a local smear image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			opts := analyzer.DefaultOptions().
				WithSeed(seed).
				WithCalibration(models.Calibration{
					PixelSizeUm:    pixelSize,
					DilutionFactor: dilution,
					DepthCor:       depth,
				})

			if boxesPath != "" {
				boxes, err := loadBoxes(boxesPath)
				if err != nil {
					return err
				}
				opts = opts.WithBoxes(boxes)
			}

			a := analyzer.NewSmearAnalyzer()
			defer a.Close()

			report, err := a.AnalyzeComplete(data, filepath.Base(args[0]), opts)
			if err != nil {
				// Print the verdict before failing so the reason is visible.
				if report != nil {
					printJSON(cmd, report.Validation)
				}
				return err
			}

			return printJSON(cmd, report)
		},
	}

	defaults := models.DefaultCalibration()
	c.Flags().Int64Var(&seed, "seed", 1, "Sampling seed (same image and seed reproduce the same report)")
	c.Flags().StringVarP(&boxesPath, "boxes", "b", "", "JSON file with detection boxes from an external detector")
	c.Flags().Float64Var(&pixelSize, "pixel-size", defaults.PixelSizeUm, "Pixel size in micrometers")
	c.Flags().Float64Var(&dilution, "dilution", defaults.DilutionFactor, "Sample dilution factor")
	c.Flags().Float64Var(&depth, "depth", defaults.DepthCor, "Depth correction factor")
	return c
}

func loadBoxes(path string) ([]models.DetectionBox, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boxes: %w", err)
	}
	var boxes []models.DetectionBox
	if err := json.Unmarshal(data, &boxes); err != nil {
		return nil, fmt.Errorf("parse boxes: %w", err)
	}
	return boxes, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
