package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/youvisa/internal/cli"
	"github.com/aretw0/youvisa/pkg/domain"
)

var countryCmd = &cobra.Command{
	Use:   "country",
	Short: "Manage the destination catalogue",
}

var countryAddCmd = &cobra.Command{
	Use:   "add <name> [document...]",
	Short: "Register a destination and its required documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		store, closeStore, err := cli.OpenStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		name := strings.TrimSpace(args[0])
		id, err := store.AddCountry(cmd.Context(), name, domain.NewLabels(args[1:]...))
		if errors.Is(err, domain.ErrAlreadyExists) {
			return fmt.Errorf("country %q already exists", name)
		}
		if err != nil {
			return err
		}
		cli.PrintSystemMessage(cmd.OutOrStdout(), "Country %q added with id %d.", name, id)
		return nil
	},
}

var countryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered destinations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		store, closeStore, err := cli.OpenStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		countries, err := store.GetCountries(cmd.Context())
		if err != nil {
			return err
		}
		return cli.WriteCountries(cmd.OutOrStdout(), countries)
	},
}

var countryImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import destinations from a YAML catalogue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := cli.LoadCatalogue(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		store, closeStore, err := cli.OpenStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		res, err := cli.ImportCountries(cmd.Context(), store, entries)
		out := cmd.OutOrStdout()
		for _, name := range res.Added {
			cli.PrintSystemMessage(out, "Added %s", name)
		}
		for _, name := range res.Skipped {
			cli.PrintSystemMessage(out, "Skipped %s (already registered)", name)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(countryCmd)
	countryCmd.AddCommand(countryAddCmd, countryListCmd, countryImportCmd)
}
