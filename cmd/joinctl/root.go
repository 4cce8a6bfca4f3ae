package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"join/internal/config"
	"join/internal/ops"
	"join/internal/store"
)

type rootOptions struct {
	ConfigPath string
	Driver     string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "joinctl",
		Short:         "Operator tools for the Join server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "join_config.yml", "config file")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "override store.driver from the config")

	cmd.AddCommand(newBackupCommand(opts))
	cmd.AddCommand(newRestoreCommand(opts))
	cmd.AddCommand(newDrillCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(o.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.Driver != "" {
		cfg.Store.Driver = o.Driver
	}
	return cfg, nil
}

func (o *rootOptions) openStore() (*config.Config, *store.Client, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	b, err := store.Open(cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store.NewClient(b, log.New(os.Stderr, "", log.LstdFlags)), nil
}

func timestamp() string {
	return time.Now().UTC().Format("20060102T150405Z")
}

func newBackupCommand(root *rootOptions) *cobra.Command {
	var dataDir, out string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive the data directory into a .tar.gz",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataDir == "" {
				cfg, err := root.load()
				if err != nil {
					return err
				}
				dataDir = cfg.Store.DataDir
			}
			if out == "" {
				out = filepath.Join("backups", "join-"+timestamp()+".tar.gz")
			}
			n, err := ops.BackupDataDir(dataDir, out)
			if err != nil {
				return fmt.Errorf("backup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d files)\n", out, n)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "data directory (default store.data_dir)")
	cmd.Flags().StringVar(&out, "out", "", "output archive path")
	return cmd
}

func newRestoreCommand(_ *rootOptions) *cobra.Command {
	var target string
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "restore <archive>",
		Short: "Unpack a backup archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := ops.RestoreDataDir(args[0], target, overwrite)
			if err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d files into %s\n", n, target)
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target-dir", "data-restored", "restore target directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "restore into a non-empty directory")
	return cmd
}

func newDrillCommand(root *rootOptions) *cobra.Command {
	var dataDir, workDir string
	cmd := &cobra.Command{
		Use:   "drill",
		Short: "Back up, restore into a scratch dir and compare digests",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataDir == "" {
				cfg, err := root.load()
				if err != nil {
					return err
				}
				dataDir = cfg.Store.DataDir
			}
			if err := os.MkdirAll(workDir, 0o755); err != nil {
				return err
			}
			ts := timestamp()
			archive := filepath.Join(workDir, "join-drill-"+ts+".tar.gz")
			restoreDir := filepath.Join(workDir, "join-drill-restore-"+ts)

			if _, err := ops.BackupDataDir(dataDir, archive); err != nil {
				return fmt.Errorf("drill backup: %w", err)
			}
			if _, err := ops.RestoreDataDir(archive, restoreDir, false); err != nil {
				return fmt.Errorf("drill restore: %w", err)
			}
			src, err := ops.DirDigest(dataDir)
			if err != nil {
				return err
			}
			restored, err := ops.DirDigest(restoreDir)
			if err != nil {
				return err
			}
			if src != restored {
				return fmt.Errorf("digest mismatch after restore: src=%s restored=%s", src, restored)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "backup:", archive)
			fmt.Fprintln(out, "restored:", restoreDir)
			fmt.Fprintln(out, "digest:", src)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "data directory (default store.data_dir)")
	cmd.Flags().StringVar(&workDir, "work-dir", os.TempDir(), "scratch directory for drill artifacts")
	return cmd
}
