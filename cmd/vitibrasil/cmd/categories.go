package cmd

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aluiziolira/go-vitibrasil/dataset"
	"github.com/aluiziolira/go-vitibrasil/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(categoriesCmd)
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Prints the datasets and their sub-categories.",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := dataset.NewCatalog(cfg.SiteURL, cfg.DownloadURL)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Category", "Tag", "Years", "Sub-categories", "CSV files"})

		for _, c := range models.Categories {
			desc, err := catalog.Descriptor(c)
			if err != nil {
				return err
			}
			options := make([]string, 0, len(desc.Buttons))
			for _, b := range desc.Buttons {
				options = append(options, b.Option)
			}
			files := make([]string, 0, len(desc.CSVURLs))
			for _, u := range desc.CSVURLs {
				files = append(files, path.Base(u))
			}
			t.AppendRow(table.Row{
				c.String(),
				c.Tag(),
				fmt.Sprintf("%d-%d", desc.FirstYear, desc.LastYear),
				strings.Join(options, "\n"),
				strings.Join(files, "\n"),
			})
			t.AppendSeparator()
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
