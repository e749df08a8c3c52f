package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the search index",
}

var schemaEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the search index if it does not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), "schema")
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.docs.EnsureSchema(a.withLogger(cmd.Context())); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "index %s ready\n", a.docs.Index())
		return nil
	},
}

var schemaDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Remove the search index",
	Long: "Remove the search index. With the redis backend the document hashes are kept\n" +
		"and re-indexed by the next \"schema ensure\"; the bleve backend deletes its files.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), "schema")
		if err != nil {
			return err
		}
		defer a.close()

		dropped, err := a.docs.DropSchema(a.withLogger(cmd.Context()))
		if err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
		if !dropped {
			fmt.Fprintf(cmd.OutOrStdout(), "index %s does not exist\n", a.docs.Index())
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "index %s dropped\n", a.docs.Index())
		return nil
	},
}

var schemaRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Drop and recreate the search index from the current field definition",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), "schema")
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.docs.RebuildSchema(a.withLogger(cmd.Context())); err != nil {
			return fmt.Errorf("rebuild schema: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "index %s rebuilt\n", a.docs.Index())
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaEnsureCmd)
	schemaCmd.AddCommand(schemaDropCmd)
	schemaCmd.AddCommand(schemaRebuildCmd)
	rootCmd.AddCommand(schemaCmd)
}
