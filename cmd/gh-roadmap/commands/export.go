package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goblinsan/gh-roadmap/pkg/catalog"
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("out", "o", "", "Write to file instead of stdout")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the built-in roadmap catalog as YAML",
	Long: `Write the built-in roadmap catalog as YAML, so it can be edited and
applied with 'apply --file'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			_, err := os.Stdout.Write(catalog.Raw())
			return err
		}
		if err := os.WriteFile(out, catalog.Raw(), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Printf("Wrote catalog to %s\n", out)
		return nil
	},
}
