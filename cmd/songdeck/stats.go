package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/songdeck/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show library statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	st := apiClient.Do(stats.FetchStatisticsRequest()).Stats
	if st.Error != "" || st.Stats == nil {
		return fail("Could not load statistics: " + st.Error)
	}
	s := st.Stats

	if jsonOutput {
		printJSON(s)
		return nil
	}

	printInfo("Songs: %d  Artists: %d  Albums: %d  Genres: %d",
		s.TotalSongs, s.TotalArtists, s.TotalAlbums, s.TotalGenres)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "\nGENRE\tSONGS")
	for _, g := range s.SongsPerGenre {
		fmt.Fprintf(w, "%s\t%d\n", g.Genre, g.Count)
	}

	fmt.Fprintln(w, "\nARTIST\tSONGS\tALBUMS")
	for _, a := range s.SongsAndAlbumsPerArtist {
		fmt.Fprintf(w, "%s\t%d\t%d\n", a.Artist, a.Songs, a.AlbumsCount)
	}

	fmt.Fprintln(w, "\nALBUM\tARTIST\tSONGS")
	for _, a := range s.SongsPerAlbum {
		fmt.Fprintf(w, "%s\t%s\t%d\n", a.Album, a.Artist, a.Songs)
	}

	return w.Flush()
}
