package cli

import (
	"fmt"
	"os"

	"culturax-service/internal/app"
	"github.com/spf13/cobra"
)

// NewTemplateCmd writes the sample question set an admin can start from.
func NewTemplateCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the sample question template",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := app.SampleTemplate()
			if err != nil {
				return err
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write template: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", app.TemplateFileName, `output file, "-" for stdout`)
	return cmd
}
