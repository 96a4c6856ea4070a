package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/docufill/intake"
	"github.com/docufill/intake/internal/config"
	"github.com/docufill/intake/pkg/errors"
	"github.com/docufill/intake/pkg/observation"
	"github.com/docufill/intake/pkg/reconcile"
)

var reconcileMode string

// batchFile is the YAML shape the reconcile command reads.
type batchFile struct {
	Observations []observation.Observation `yaml:"observations"`
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [batch.yaml]",
	Short: "Cluster and reconcile a batch of extracted observations",
	Long: `Reconcile reads a YAML batch of field observations, partitions the
documents into person clusters, reconciles each cluster into a canonical
profile, and writes the resulting profiles, conflicts, and review flags as
YAML. With no file argument the batch is read from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, err := readBatch(args)
		if err != nil {
			return err
		}

		tunables, err := config.Load()
		if err != nil {
			return err
		}

		session, err := intake.NewSession(
			intake.WithMode(reconcile.Mode(reconcileMode)),
			intake.WithTunables(tunables),
		)
		if err != nil {
			return err
		}

		result, err := session.Ingest(batch.Observations)
		if err != nil {
			return err
		}
		return writeYAML(cmd.OutOrStdout(), result)
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileMode, "mode", string(reconcile.ModeAssisted),
		"review mode: assisted or express")
	rootCmd.AddCommand(reconcileCmd)
}

func readBatch(args []string) (*batchFile, error) {
	data, name, err := readInput(args)
	if err != nil {
		return nil, err
	}

	var batch batchFile
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, errors.WrapParse("yaml", name, err)
	}
	if len(batch.Observations) == 0 {
		return nil, errors.NewValidationError("observations", nil, "batch has no observations")
	}
	return &batch, nil
}

// readInput reads the single optional file argument, or stdin.
func readInput(args []string) ([]byte, string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		return data, "stdin", errors.WrapIO("read", "stdin", err)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, args[0], errors.WrapIO("read", args[0], err)
	}
	return data, args[0], nil
}

func writeYAML(w io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.WrapParse("yaml", "", err)
	}
	_, err = fmt.Fprint(w, string(data))
	return err
}
