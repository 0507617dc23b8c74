package main

import (
	"path/filepath"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/askhub/askhub-server/internal/backup"
	"github.com/askhub/askhub-server/internal/config"
	"github.com/askhub/askhub-server/internal/di/providers"
	"github.com/askhub/askhub-server/internal/logger"
)

// version is stamped into backup manifests.
var version = "dev"

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or restore the document store",
}

var backupOut string

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Write every collection to a zip archive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withBackup(func(i do.Injector, svc *backup.Service) error {
			path := backupOut
			if path == "" {
				cfg := do.MustInvoke[*config.Config](i)
				path = backup.DefaultPath(filepath.Join(cfg.App.Home, "backups"), time.Now())
			}
			result, err := svc.Create(cmd.Context(), path)
			if err != nil {
				return err
			}
			return printJSON(result)
		})
	},
}

var backupValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Check an archive without restoring it",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withBackup(func(_ do.Injector, svc *backup.Service) error {
			result, err := svc.Validate(args[0])
			if err != nil {
				return err
			}
			return printJSON(result)
		})
	},
}

var restoreOpts backup.RestoreOptions

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <path>",
	Short: "Import an archive into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackup(func(_ do.Injector, svc *backup.Service) error {
			result, err := svc.Restore(cmd.Context(), args[0], restoreOpts)
			if err != nil {
				return err
			}
			return printJSON(result)
		})
	},
}

func withBackup(fn func(do.Injector, *backup.Service) error) error {
	return withContainer(func(i do.Injector) error {
		st := do.MustInvoke[*providers.StoreHandle](i)
		log := do.MustInvoke[*logger.Logger](i)
		return fn(i, backup.NewService(st.DB(), version, log.Component("backup")))
	})
}

func init() {
	backupCreateCmd.Flags().StringVarP(&backupOut, "out", "o", "", "Archive path (default: <home>/backups/backup-<time>.askhub.zip)")
	backupRestoreCmd.Flags().BoolVar(&restoreOpts.Overwrite, "overwrite", false, "Replace documents that already exist")
	backupRestoreCmd.Flags().BoolVar(&restoreOpts.DryRun, "dry-run", false, "Read every record without writing")

	backupCmd.AddCommand(backupCreateCmd, backupValidateCmd, backupRestoreCmd)
}
