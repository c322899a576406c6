package main

import (
	"errors"
	"fmt"

	"catalog-import-service/internal/config"
	"catalog-import-service/internal/importer"
	"catalog-import-service/internal/models"
	"catalog-import-service/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type executeFlags struct {
	file            string
	tenantID        string
	userID          string
	existing        string
	updateExisting  bool
	noProducts      bool
	requireAllValid bool
}

func (f executeFlags) options() models.ImportOptions {
	importProducts := !f.noProducts
	return models.ImportOptions{
		ExistingCategories: models.ExistingPolicy(f.existing),
		UpdateExisting:     f.updateExisting,
		ImportProducts:     &importProducts,
		RequireAllValid:    f.requireAllValid,
	}
}

func newExecuteCmd(newLogger func() *logrus.Logger) *cobra.Command {
	var flags executeFlags

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Import a batch into the tenant's catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readBatch(flags.file)
			if err != nil {
				return err
			}
			opts := flags.options()
			if err := opts.Validate(); err != nil {
				return err
			}

			cfg := config.Load()
			logger := newLogger()
			db, err := config.InitDB(cfg)
			if err != nil {
				return err
			}

			gw := repository.NewCatalogGateway(repository.NewCategoryRepository(db, nil), flags.tenantID, flags.userID)
			resp, err := importer.New(logger, cfg.ProductConcurrency).Execute(cmd.Context(), gw, records, opts)
			if err != nil && !errors.Is(err, importer.ErrBatchInvalid) {
				return err
			}
			if werr := writeJSON(cmd.OutOrStdout(), resp); werr != nil {
				return werr
			}
			if err != nil {
				return err
			}
			if resp.Summary.Status == models.BatchAborted {
				return fmt.Errorf("import aborted: %d conflicting categories", len(resp.Conflicts))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "JSON batch file (required)")
	cmd.Flags().StringVar(&flags.tenantID, "tenant", "", "Tenant ID (required)")
	cmd.Flags().StringVar(&flags.userID, "user", "importctl", "User ID stamped on created rows")
	cmd.Flags().StringVar(&flags.existing, "existing", string(models.ExistingError), "Existing categories policy: error, skip or replace")
	cmd.Flags().BoolVar(&flags.updateExisting, "update-existing", false, "Update matched categories (requires --existing skip)")
	cmd.Flags().BoolVar(&flags.noProducts, "no-products", false, "Import categories only")
	cmd.Flags().BoolVar(&flags.requireAllValid, "require-all-valid", false, "Reject the whole batch if any record is invalid")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
