package main

import (
	"github.com/spf13/cobra"

	"github.com/TheMichaelB/songdeck/internal/session"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored token",
	RunE:  runLogout,
}

var logoutLocal bool

func init() {
	rootCmd.AddCommand(logoutCmd)

	logoutCmd.Flags().BoolVar(&logoutLocal, "local", false,
		"Only forget the local token without contacting the server")
}

func runLogout(cmd *cobra.Command, args []string) error {
	if !apiClient.State().Session.IsAuthenticated() {
		printWarning("Not logged in")
		return nil
	}

	ev := session.LogoutRequest()
	if logoutLocal {
		ev = session.ClientLogout()
	}
	st := apiClient.Do(ev).Session

	// Credentials are gone even when the server call failed.
	if st.Error != "" {
		printWarning("Server logout failed: %s", st.Error)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{"success": true})
	} else {
		printSuccess("Logged out")
	}
	return nil
}
