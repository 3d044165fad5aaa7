package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/argmap/pkg/store"

	"github.com/spf13/cobra"
)

var savedJSON bool

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "List and show saved queries",
}

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved queries, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSavedList,
}

var savedShowCmd = &cobra.Command{
	Use:   "show [hash]",
	Short: "Show a saved query",
	Args:  cobra.ExactArgs(1),
	RunE:  runSavedShow,
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show saved extraction results",
}

var resultsShowCmd = &cobra.Command{
	Use:   "show [hash]",
	Short: "Show the saved result of a query",
	Args:  cobra.ExactArgs(1),
	RunE:  runResultsShow,
}

func init() {
	savedListCmd.Flags().BoolVar(&savedJSON, "json", false, "output the list as JSON")
	savedCmd.AddCommand(savedListCmd, savedShowCmd)
	resultsCmd.AddCommand(resultsShowCmd)
	rootCmd.AddCommand(savedCmd, resultsCmd)
}

func runSavedList(cmd *cobra.Command, args []string) error {
	s, closeStore, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	previews, err := s.ListQueries(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list saved queries: %w", err)
	}

	if savedJSON {
		return printJSON(cmd, previews)
	}

	out := cmd.OutOrStdout()
	if len(previews) == 0 {
		fmt.Fprintln(out, "No saved queries.")
		return nil
	}
	for _, p := range previews {
		model := "default"
		if p.Model != nil {
			model = *p.Model
		}
		fmt.Fprintf(out, "%s  %s  t=%.1f  %s\n", p.Hash, p.Timestamp.Format("2006-01-02 15:04"), p.Temperature, model)
		fmt.Fprintf(out, "    %s\n", strings.ReplaceAll(p.Text, "\n", " "))
	}
	return nil
}

func runSavedShow(cmd *cobra.Command, args []string) error {
	s, closeStore, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	q, err := s.GetQuery(cmd.Context(), args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no saved query %s", args[0])
	}
	if err != nil {
		return err
	}
	return printJSON(cmd, q)
}

func runResultsShow(cmd *cobra.Command, args []string) error {
	s, closeStore, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	r, err := s.GetResult(cmd.Context(), args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no saved result %s", args[0])
	}
	if err != nil {
		return err
	}
	return printJSON(cmd, r)
}
