package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goblinsan/gh-roadmap/pkg/types"
)

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringP("file", "f", "", "The roadmap file to validate")
	validateCmd.MarkFlagRequired("file")
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a roadmap file without making any changes",
	Long:  `Validate a roadmap YAML file for correctness. Checks structure, required fields, and duplicate titles. No network calls are made.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath, _ := cmd.Flags().GetString("file")

		yamlFile, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		var roadmap types.Roadmap
		if err := yaml.Unmarshal(yamlFile, &roadmap); err != nil {
			return fmt.Errorf("invalid YAML: %w", err)
		}

		errs := validateRoadmap(roadmap)
		if len(errs) > 0 {
			fmt.Fprintf(os.Stderr, "Validation failed with %d error(s):\n", len(errs))
			for i, e := range errs {
				fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, e)
			}
			os.Exit(1)
		}

		fmt.Println("Roadmap is valid.")
		return nil
	},
}

func validateRoadmap(roadmap types.Roadmap) []string {
	var errs []string

	if roadmap.Repository == "" {
		errs = append(errs, "repository is required")
	} else {
		parts := splitRepo(roadmap.Repository)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			errs = append(errs, fmt.Sprintf("repository %q must be in owner/repo format", roadmap.Repository))
		}
	}

	if len(roadmap.Phases) == 0 {
		errs = append(errs, "at least one phase is required")
	}

	phaseNames := make(map[string]bool)
	epicTitles := make(map[string]bool)
	for i, phase := range roadmap.Phases {
		if phase.Name == "" {
			errs = append(errs, fmt.Sprintf("phases[%d]: name is required", i))
			continue
		}
		if phaseNames[phase.Name] {
			errs = append(errs, fmt.Sprintf("phases[%d]: duplicate name %q", i, phase.Name))
		}
		phaseNames[phase.Name] = true

		// Epic title defaults to the phase name, so only an explicit
		// title can collide.
		if phase.Epic.Title != "" {
			if epicTitles[phase.Epic.Title] {
				errs = append(errs, fmt.Sprintf("phases[%d] %q: duplicate epic title %q", i, phase.Name, phase.Epic.Title))
			}
			epicTitles[phase.Epic.Title] = true
		}

		childTitles := make(map[string]bool)
		for j, child := range phase.Epic.Children {
			if child.Title == "" {
				errs = append(errs, fmt.Sprintf("phases[%d].epic.children[%d]: title is required", i, j))
				continue
			}
			if childTitles[child.Title] {
				errs = append(errs, fmt.Sprintf("phases[%d].epic.children[%d]: duplicate title %q", i, j, child.Title))
			}
			childTitles[child.Title] = true
		}
	}

	return errs
}

func splitRepo(repo string) []string {
	for i, c := range repo {
		if c == '/' {
			return []string{repo[:i], repo[i+1:]}
		}
	}
	return []string{repo}
}
