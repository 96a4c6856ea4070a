package cmd

import (
	"github.com/spf13/cobra"

	"github.com/docufill/intake/pkg/fields"
)

// fieldRow is the fields command's per-field output shape.
type fieldRow struct {
	ID             fields.ID `yaml:"id"`
	Display        string    `yaml:"display"`
	Kind           string    `yaml:"kind"`
	SafetyCritical bool      `yaml:"safetyCritical,omitempty"`
	Aliases        []string  `yaml:"aliases,omitempty"`
}

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the canonical field vocabulary",
	Long: `Fields prints every canonical field the engine knows: its identifier,
display name, semantic kind, whether disagreements on it always require
human resolution, and the form-label aliases used for auto-mapping.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rows := make([]fieldRow, 0, len(fields.All()))
		for _, spec := range fields.All() {
			rows = append(rows, fieldRow{
				ID:             spec.ID,
				Display:        spec.Display,
				Kind:           spec.Kind.String(),
				SafetyCritical: spec.SafetyCritical,
				Aliases:        spec.Aliases,
			})
		}
		return writeYAML(cmd.OutOrStdout(), rows)
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}
