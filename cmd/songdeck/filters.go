package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "List the albums, artists and genres available as filters",
	Args:  cobra.NoArgs,
	RunE:  runFilters,
}

func init() {
	rootCmd.AddCommand(filtersCmd)
}

func runFilters(cmd *cobra.Command, args []string) error {
	st, err := fetchSongs()
	if err != nil {
		return err
	}

	views := apiClient.Views
	facets := map[string][]string{
		"albums":  views.UniqueAlbums(st),
		"artists": views.UniqueArtists(st),
		"genres":  views.UniqueGenres(st),
	}

	if jsonOutput {
		printJSON(facets)
		return nil
	}

	title := cases.Title(language.English)
	for _, name := range []string{"albums", "artists", "genres"} {
		printInfo("%s (%d)", title.String(name), len(facets[name]))
		for _, v := range facets[name] {
			fmt.Printf("  %s\n", v)
		}
	}
	return nil
}
