package testutil

import (
	"bytes"
	"io"

	"github.com/TheMichaelB/songdeck/internal/events"
	"github.com/TheMichaelB/songdeck/internal/models"
)

// NewTestLogger creates a logger for testing.
func NewTestLogger() *events.Logger {
	var buf bytes.Buffer
	return events.NewTestLogger(events.DebugLevel, "json", &buf)
}

// Default test account.
const (
	TestEmail    = "test@example.com"
	TestPhone    = "+251911223344"
	TestPassword = "testpassword123"
)

// SampleSongs returns a small collection covering several genres, an
// artist with two albums and a single without an album.
func SampleSongs() []models.Song {
	return []models.Song{
		{
			Title:       "Tizita",
			Artist:      "Mulatu Astatke",
			Album:       "Ethiopiques 4",
			Genre:       "Ethio-jazz",
			Duration:    312,
			ReleaseYear: 1998,
			FileURL:     "https://cdn.test/tizita.mp3",
		},
		{
			Title:       "Yekermo Sew",
			Artist:      "Mulatu Astatke",
			Album:       "Mulatu of Ethiopia",
			Genre:       "Ethio-jazz",
			Duration:    265,
			ReleaseYear: 1972,
			FileURL:     "https://cdn.test/yekermo-sew.mp3",
		},
		{
			Title:       "Paranoid",
			Artist:      "Black Sabbath",
			Album:       "Paranoid",
			Genre:       "Rock",
			Duration:    172,
			ReleaseYear: 1970,
			FileURL:     "https://cdn.test/paranoid.mp3",
		},
		{
			Title:       "Hello",
			Artist:      "Adele",
			Album:       "25",
			Genre:       "Pop",
			Duration:    295,
			ReleaseYear: 2015,
			FileURL:     "https://cdn.test/hello.mp3",
		},
		{
			Title:       "Easy On Me",
			Artist:      "Adele",
			Genre:       "pop",
			Duration:    224,
			ReleaseYear: 2021,
			FileURL:     "https://cdn.test/easy-on-me.mp3",
		},
	}
}

// SampleUser returns the profile of the default test account.
func SampleUser() *models.User {
	return &models.User{
		FirstName:   "Test",
		LastName:    "User",
		Email:       TestEmail,
		PhoneNumber: TestPhone,
		Role:        "user",
		IsActive:    true,
	}
}

// NewTestLoggerTo creates a JSON debug logger writing to w.
func NewTestLoggerTo(w io.Writer) *events.Logger {
	return events.NewTestLogger(events.DebugLevel, "json", w)
}
