package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/goblinsan/gh-roadmap/pkg/engine"
	"github.com/goblinsan/gh-roadmap/pkg/github"
	"github.com/goblinsan/gh-roadmap/pkg/types"
)

func init() {
	rootCmd.AddCommand(linkCmd)
	linkCmd.Flags().StringP("file", "f", "", "Link map YAML file (repository + epic/children issue numbers)")
	linkCmd.MarkFlagRequired("file")
	linkCmd.Flags().Bool("dry-run", false, "Preview what would be linked without making changes")
	linkCmd.Flags().Bool("fail-on-error", false, "Exit non-zero when any item failed")
}

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link already-created issues under their epics",
	Long: `Link existing issues into a parent/child hierarchy from a YAML id map.
Each child is attached with GitHub's sub-issue relation (replacing any
previous parent, so re-runs are safe) and its body is annotated with the
parent epic reference when missing.

Use this for hierarchies created by other tools; apply links its own
issues in the same pass.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath, _ := cmd.Flags().GetString("file")

		yamlFile, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		var linkMap types.LinkMap
		if err := yaml.Unmarshal(yamlFile, &linkMap); err != nil {
			return fmt.Errorf("failed to unmarshal YAML: %w", err)
		}

		client := github.NewClient(viper.GetString("token"))
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		report, err := engine.Link(context.Background(), client, linkMap, engine.Options{
			DryRun: dryRun,
		})
		if err != nil {
			return err
		}
		return printReport(cmd, report)
	},
}
