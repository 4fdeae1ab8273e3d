package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"schedule-monitor/internal/infrastructure/oauth"
	"schedule-monitor/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Prints a Gmail refresh token with send permission for MAIL_TRANSPORT=gmail
func main() {
	godotenv.Load()

	clientID := os.Getenv("GMAIL_CLIENT_ID")
	clientSecret := os.Getenv("GMAIL_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		log.Fatal("GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET must be set")
	}

	gmailOAuth := oauth.NewGmailOAuth(clientID, clientSecret, "", "http://localhost:8090/oauth2callback", logger.NewNopLogger())

	// Create a random state
	state := uuid.NewString()

	// Start an HTTP server to handle the OAuth callback
	http.HandleFunc("/oauth2callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		token, err := gmailOAuth.ExchangeCode(context.Background(), r.URL.Query().Get("code"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		fmt.Printf("\nGMAIL_REFRESH_TOKEN=%s\n\n", token.RefreshToken)

		fmt.Fprintf(w, "Authentication successful! You can close this window.")
		os.Exit(0)
	})

	fmt.Printf("Open this URL in your browser:\n%s\n", gmailOAuth.GenerateAuthURL(state))

	log.Fatal(http.ListenAndServe(":8090", nil))
}
