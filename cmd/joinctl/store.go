package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"join/internal/contact"
	"join/internal/ops"
	"join/internal/palette"
	"join/internal/task"
)

func newExportCommand(root *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the store document tree as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := root.openStore()
			if err != nil {
				return err
			}
			defer client.Close()

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return ops.Export(cmd.Context(), client, w)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file (- for stdout)")
	return cmd
}

func newImportCommand(root *rootOptions) *cobra.Command {
	var replaceAll bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a JSON export into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := root.openStore()
			if err != nil {
				return err
			}
			defer client.Close()

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			names, err := ops.Import(cmd.Context(), client, r, replaceAll)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s\n", strings.Join(names, ", "))
			return nil
		},
	}
	cmd.Flags().BoolVar(&replaceAll, "replace-all", false, "replace the whole tree, dropping collections missing from the file")
	return cmd
}

func newSeedCommand(root *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty store with demo contacts and tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := root.openStore()
			if err != nil {
				return err
			}
			defer client.Close()

			logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
			contacts, err := contact.NewService(client, palette.New(cfg.Palette.Colors), logger)
			if err != nil {
				return err
			}
			tasks := task.NewService(client, logger)

			res, err := ops.Seed(cmd.Context(), contacts, tasks, time.Now(), force)
			if err != nil {
				return err
			}
			if res.Skipped {
				fmt.Fprintln(cmd.OutOrStdout(), "store already has tasks; use --force to seed anyway")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d contacts and %d tasks\n", res.Contacts, res.Tasks)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "seed even when tasks exist")
	return cmd
}
