package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index repository objects",
}

var indexCollectionCmd = &cobra.Command{
	Use:   "collection [pid]",
	Short: "Index every object below a collection (default: the configured root)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndexCollection,
}

var indexObjectCmd = &cobra.Command{
	Use:   "object <pid>",
	Short: "Index a single object",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexObject,
}

var indexRemoveCmd = &cobra.Command{
	Use:   "remove <pid>",
	Short: "Remove an object's record from the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexRemove,
}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Index recently created objects that are not yet in the index",
	Args:  cobra.NoArgs,
	RunE:  runPoll,
}

var pollLimit int

func init() {
	pollCmd.Flags().IntVar(&pollLimit, "limit", 0, "number of newest objects to check (default harvest.poll_limit)")

	indexCmd.AddCommand(indexCollectionCmd)
	indexCmd.AddCommand(indexObjectCmd)
	indexCmd.AddCommand(indexRemoveCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(pollCmd)
}

func runIndexCollection(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, "harvest")
	if err != nil {
		return err
	}
	defer a.close()

	ctx = a.withLogger(ctx)
	if err := a.docs.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	root := ""
	if len(args) == 1 {
		root = args[0]
	}
	rep, err := a.harvestService().IndexCollection(ctx, root)
	printJSON(cmd, rep)
	return err
}

func runIndexObject(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), "harvest")
	if err != nil {
		return err
	}
	defer a.close()

	ctx := a.withLogger(cmd.Context())
	if err := a.docs.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	outcome, err := a.harvestService().IndexObject(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", args[0], outcome)
	return nil
}

func runIndexRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), "harvest")
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.harvestService().Remove(a.withLogger(cmd.Context()), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\tremoved\n", args[0])
	return nil
}

func runPoll(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, "harvest")
	if err != nil {
		return err
	}
	defer a.close()

	ctx = a.withLogger(ctx)
	if err := a.docs.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	rep, err := a.harvestService().Poll(ctx, pollLimit)
	printJSON(cmd, rep)
	return err
}

func printJSON(cmd *cobra.Command, v any) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
