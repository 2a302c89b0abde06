package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/songdeck/internal/models"
	"github.com/TheMichaelB/songdeck/internal/session"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	Example: `  songdeck register --first-name Abebe --last-name Kebede \
    --email abebe@example.com --phone +251911223344`,
	RunE: runRegister,
}

var registerData models.RegisterData

func init() {
	rootCmd.AddCommand(registerCmd)

	f := registerCmd.Flags()
	f.StringVar(&registerData.FirstName, "first-name", "", "First name")
	f.StringVar(&registerData.LastName, "last-name", "", "Last name")
	f.StringVar(&registerData.Email, "email", "", "Email address")
	f.StringVar(&registerData.PhoneNumber, "phone", "", "Phone number in international format")
	f.StringVarP(&registerData.Password, "password", "p", "", "Password (will prompt if not provided)")
}

func runRegister(cmd *cobra.Command, args []string) error {
	if registerData.Password == "" {
		var err error
		registerData.Password, err = promptPassword("Choose a password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}

	st := apiClient.Do(session.RegisterRequest(registerData)).Session
	if st.Error != "" {
		return fail("Registration failed: " + st.Error)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success":   true,
			"logged_in": st.IsAuthenticated(),
			"user":      st.User,
		})
		return nil
	}

	printSuccess("Account created for %s", registerData.Email)
	if !st.IsAuthenticated() {
		printInfo("Run 'songdeck login --id %s' to sign in", registerData.Email)
	}
	return nil
}
