package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search [keywords...]",
		Short: "Search the archive by keywords.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("at least one keyword is required")
			}
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			results, scanned, err := a.Search.Search(args, topK)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d documents\n", scanned)
			for i, res := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %.4f  %s by %s (%s)\n",
					i+1, res.Score, res.Title, res.Author, res.File)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&topK, "top", 10, "number of results to return")
	return cmd
}
