package main

import (
	"fmt"

	"catalog-import-service/internal/importer"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newValidateCmd(newLogger func() *logrus.Logger) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a batch without touching the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readBatch(file)
			if err != nil {
				return err
			}

			resp := importer.New(newLogger(), 1).Validate(records)
			if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
			if resp.Summary.Invalid > 0 {
				return fmt.Errorf("%d of %d categories are invalid", resp.Summary.Invalid, len(records))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON batch file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
