package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"go-smear-analyzer/pkg/validation"
)

func validateCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "validate <image>",
		Short: "Check whether an image is an analyzable blood smear",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			verdict := validation.NewSmearValidator().Validate(data, filepath.Base(args[0]))
			if err := printJSON(cmd, verdict); err != nil {
				return err
			}
			if !verdict.Valid {
				return fmt.Errorf("validation failed: %s", verdict.Reason)
			}
			return nil
		},
	}
	return c
}
