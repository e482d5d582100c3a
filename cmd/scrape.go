package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/stackdown/stackdown/internal/config"
)

func newScrapeCmd() *cobra.Command {
	var (
		author       string
		category     int
		all          bool
		maxCount     int
		skipExisting bool
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Download articles into the archive.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			switch {
			case author != "":
				return a.Pipeline.DownloadAuthor(ctx, author, maxCount, skipExisting)
			case category > 0:
				return a.Pipeline.DownloadCategory(ctx, category, maxCount)
			case all:
				categories, err := config.LoadCategories(a.Config.Scrape.CategoriesFile)
				if err != nil {
					return err
				}
				return a.Pipeline.DownloadAll(ctx, categories, maxCount)
			default:
				return errors.New("one of --author, --category, or --all is required")
			}
		},
	}

	cmd.Flags().StringVar(&author, "author", "", "author subdomain to download")
	cmd.Flags().IntVar(&category, "category", 0, "category id to download")
	cmd.Flags().BoolVar(&all, "all", false, "download every configured category")
	cmd.Flags().IntVar(&maxCount, "max", 50, "maximum articles per author")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", true, "skip articles already stored")
	return cmd
}
