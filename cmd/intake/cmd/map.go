package cmd

import (
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/docufill/intake/internal/config"
	"github.com/docufill/intake/pkg/errors"
	"github.com/docufill/intake/pkg/fields"
	"github.com/docufill/intake/pkg/mapper"
	"github.com/docufill/intake/pkg/reconcile"
)

var mapProfileFile string

// profileFile is the YAML shape of a reconciled profile on disk.
type profileFile struct {
	ClusterID string                        `yaml:"personClusterId"`
	Fields    map[fields.ID]reconcile.Field `yaml:"fields"`
}

// mapResult is the map command's output shape.
type mapResult struct {
	FormID   string                `yaml:"formId"`
	Mappings []mapper.Mapping      `yaml:"mappings"`
	Values   map[string]string     `yaml:"values,omitempty"`
	Missing  []mapper.MissingField `yaml:"missingRequired,omitempty"`
}

var mapCmd = &cobra.Command{
	Use:   "map [form.yaml]",
	Short: "Auto-map a target form's fields to the canonical vocabulary",
	Long: `Map reads a target form schema and computes, for every form field, the
canonical profile field that should fill it. With --profile the command also
fills the form from a reconciled profile and reports any required fields
that remain unfillable. With no file argument the schema is read from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, name, err := readInput(args)
		if err != nil {
			return err
		}

		var form mapper.TargetForm
		if err := yaml.Unmarshal(data, &form); err != nil {
			return errors.WrapParse("yaml", name, err)
		}

		tunables, err := config.Load()
		if err != nil {
			return err
		}
		engine, err := mapper.New(mapper.WithTunables(tunables.Mapper))
		if err != nil {
			return err
		}

		set, err := engine.Map(form)
		if err != nil {
			return err
		}

		out := mapResult{FormID: form.ID, Mappings: set.Mappings()}
		if mapProfileFile != "" {
			profile, err := readProfile(mapProfileFile)
			if err != nil {
				return err
			}
			out.Values = set.Fill(profile)
			out.Missing = set.FillReport(profile)
		}
		return writeYAML(cmd.OutOrStdout(), out)
	},
}

func init() {
	mapCmd.Flags().StringVar(&mapProfileFile, "profile", "", "reconciled profile YAML to fill the form from")
	rootCmd.AddCommand(mapCmd)
}

func readProfile(path string) (*reconcile.Profile, error) {
	data, _, err := readInput([]string{path})
	if err != nil {
		return nil, err
	}

	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	if pf.Fields == nil {
		pf.Fields = make(map[fields.ID]reconcile.Field)
	}
	return &reconcile.Profile{ClusterID: pf.ClusterID, Fields: pf.Fields}, nil
}
