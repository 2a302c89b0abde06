package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/TheMichaelB/songdeck/internal/models"
	"github.com/TheMichaelB/songdeck/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the music library",
	Long:  `Login stores the credential token for future commands.`,
	Example: `  songdeck login --id user@example.com
  songdeck login --id +251911223344`,
	RunE: runLogin,
}

var (
	loginID       string
	loginPassword string
)

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVarP(&loginID, "id", "i", "",
		"Email address or phone number (required)")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "",
		"Password (will prompt if not provided)")

	_ = loginCmd.MarkFlagRequired("id")
}

func runLogin(cmd *cobra.Command, args []string) error {
	if loginPassword == "" {
		var err error
		loginPassword, err = promptPassword("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}

	st := apiClient.Do(session.LoginRequest(models.LoginCredentials{
		EmailOrPhoneNumber: loginID,
		Password:           loginPassword,
	})).Session

	if !st.IsAuthenticated() || st.Error != "" {
		return fail("Login failed: " + st.Error)
	}

	name := loginID
	if st.User != nil {
		name = st.User.DisplayName()
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"user":    st.User,
		})
	} else {
		printSuccess("Successfully logged in as %s", name)
	}
	return nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	// Read password without echo
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", err
	}

	return string(password), nil
}
