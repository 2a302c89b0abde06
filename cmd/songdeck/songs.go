package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/songdeck/internal/library"
	"github.com/TheMichaelB/songdeck/internal/models"
	"github.com/TheMichaelB/songdeck/internal/selectors"
)

var songsCmd = &cobra.Command{
	Use:   "songs",
	Short: "Browse and edit the song collection",
}

var songsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List songs, optionally filtered",
	Example: `  songdeck songs list
  songdeck songs list --genre rock --artist sabbath`,
	Args: cobra.NoArgs,
	RunE: runSongsList,
}

var songsAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Add a song",
	Example: `  songdeck songs add --title Tizita --artist "Mulatu Astatke" --genre Ethio-jazz`,
	Args:    cobra.NoArgs,
	RunE:    runSongsAdd,
}

var songsEditCmd = &cobra.Command{
	Use:     "edit <song-id>",
	Short:   "Edit a song",
	Long:    `Edit replaces the fields given as flags and keeps the others.`,
	Example: `  songdeck songs edit 64b7f0 --title "Tizita (live)"`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSongsEdit,
}

var songsDeleteCmd = &cobra.Command{
	Use:   "delete <song-id>",
	Short: "Delete a song",
	Args:  cobra.ExactArgs(1),
	RunE:  runSongsDelete,
}

var (
	listFilters models.Filters
	songInput   models.SongPayload
)

func init() {
	rootCmd.AddCommand(songsCmd)
	songsCmd.AddCommand(songsListCmd, songsAddCmd, songsEditCmd, songsDeleteCmd)

	lf := songsListCmd.Flags()
	lf.StringVar(&listFilters.Album, "album", "", "Only songs whose album contains this text")
	lf.StringVar(&listFilters.Artist, "artist", "", "Only songs whose artist contains this text")
	lf.StringVar(&listFilters.Genre, "genre", "", "Only songs whose genre contains this text")

	for _, c := range []*cobra.Command{songsAddCmd, songsEditCmd} {
		f := c.Flags()
		f.StringVar(&songInput.Title, "title", "", "Song title")
		f.StringVar(&songInput.Artist, "artist", "", "Artist")
		f.StringVar(&songInput.Album, "album", "", "Album")
		f.StringVar(&songInput.Genre, "genre", "", "Genre")
		f.Float64Var(&songInput.Duration, "duration", 0, "Duration in seconds")
		f.IntVar(&songInput.ReleaseYear, "year", 0, "Release year")
		f.StringVar(&songInput.FileURL, "file-url", "", "Audio file URL")
		f.StringVar(&songInput.CoverImageURL, "cover-url", "", "Cover image URL")
	}
	_ = songsAddCmd.MarkFlagRequired("title")
}

func fetchSongs() (library.State, error) {
	st := apiClient.Do(library.FetchSongsRequest()).Songs
	if st.Error != "" {
		return st, fail("Could not load songs: " + st.Error)
	}
	return st, nil
}

func runSongsList(cmd *cobra.Command, args []string) error {
	if _, err := fetchSongs(); err != nil {
		return err
	}

	patch := models.FilterPatch{
		Album:  &listFilters.Album,
		Artist: &listFilters.Artist,
		Genre:  &listFilters.Genre,
	}
	st := apiClient.Do(library.UpdateFilters(patch)).Songs

	views := apiClient.Views
	songs := views.FilteredSongs(st)

	if jsonOutput {
		printJSON(map[string]interface{}{
			"songs":    songs,
			"filtered": views.FilteredCount(st),
			"total":    views.TotalCount(st),
		})
		return nil
	}

	if len(songs) == 0 {
		printInfo("No songs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tARTIST\tALBUM\tGENRE\tYEAR\tLENGTH")
	for _, s := range songs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			s.ID, s.Title, s.Artist, s.Album, s.Genre, s.ReleaseYear, formatDuration(s.Duration))
	}
	_ = w.Flush()

	printInfo("%d of %d songs", views.FilteredCount(st), views.TotalCount(st))
	return nil
}

func runSongsAdd(cmd *cobra.Command, args []string) error {
	before := len(apiClient.State().Songs.Songs)
	st := apiClient.Do(library.AddSongRequest(songInput)).Songs
	if st.Error != "" || len(st.Songs) == before {
		return fail("Failed to add song: " + st.Error)
	}

	added := st.Songs[len(st.Songs)-1]
	if jsonOutput {
		printJSON(added)
	} else {
		printSuccess("Added %q (%s)", added.Title, added.ID)
	}
	return nil
}

func runSongsEdit(cmd *cobra.Command, args []string) error {
	id := args[0]

	current, err := fetchSongs()
	if err != nil {
		return err
	}
	song, ok := selectors.SongByID(current.Songs, id)
	if !ok {
		return fail(fmt.Sprintf("Song %s not found", id))
	}

	update := models.SongUpdate{ID: id, SongPayload: mergeSong(cmd, song)}
	st := apiClient.Do(library.EditSongRequest(update)).Songs
	if st.Error != "" {
		return fail("Failed to edit song: " + st.Error)
	}

	edited, _ := selectors.SongByID(st.Songs, id)
	if jsonOutput {
		printJSON(edited)
	} else {
		printSuccess("Updated %q", edited.Title)
	}
	return nil
}

func runSongsDelete(cmd *cobra.Command, args []string) error {
	id := args[0]

	st := apiClient.Do(library.DeleteSongRequest(id)).Songs
	if st.Error != "" {
		return fail("Failed to delete song: " + st.Error)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{"success": true, "id": id})
	} else {
		printSuccess("Deleted %s", id)
	}
	return nil
}

// mergeSong overlays the flags the user set on the stored song.
func mergeSong(cmd *cobra.Command, song models.Song) models.SongPayload {
	p := models.SongPayload{
		Title:         song.Title,
		Artist:        song.Artist,
		Album:         song.Album,
		Genre:         song.Genre,
		Duration:      song.Duration,
		ReleaseYear:   song.ReleaseYear,
		FileURL:       song.FileURL,
		CoverImageURL: song.CoverImageURL,
	}

	f := cmd.Flags()
	if f.Changed("title") {
		p.Title = songInput.Title
	}
	if f.Changed("artist") {
		p.Artist = songInput.Artist
	}
	if f.Changed("album") {
		p.Album = songInput.Album
	}
	if f.Changed("genre") {
		p.Genre = songInput.Genre
	}
	if f.Changed("duration") {
		p.Duration = songInput.Duration
	}
	if f.Changed("year") {
		p.ReleaseYear = songInput.ReleaseYear
	}
	if f.Changed("file-url") {
		p.FileURL = songInput.FileURL
	}
	if f.Changed("cover-url") {
		p.CoverImageURL = songInput.CoverImageURL
	}
	return p
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
