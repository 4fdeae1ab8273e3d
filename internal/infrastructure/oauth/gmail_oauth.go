package oauth

import (
	"context"
	"fmt"
	"time"

	"schedule-monitor/pkg/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// GmailOAuth handles OAuth authentication for the sending Gmail account
type GmailOAuth struct {
	config       *oauth2.Config
	refreshToken string
	logger       logger.Logger
}

// NewGmailOAuth creates a new Gmail OAuth handler limited to sending mail
func NewGmailOAuth(clientID, clientSecret, refreshToken, redirectURL string, logger logger.Logger) *GmailOAuth {
	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       []string{gmail.GmailSendScope},
	}

	return &GmailOAuth{
		config:       config,
		refreshToken: refreshToken,
		logger:       logger,
	}
}

// GetTokenSource returns a token source refreshed from the stored refresh token
func (o *GmailOAuth) GetTokenSource(ctx context.Context) oauth2.TokenSource {
	token := &oauth2.Token{
		RefreshToken: o.refreshToken,
		Expiry:       time.Now(), // Force refresh
	}

	return o.config.TokenSource(ctx, token)
}

// GenerateAuthURL generates a URL for the user to authorize the application
func (o *GmailOAuth) GenerateAuthURL(state string) string {
	return o.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode exchanges an authorization code for a token
func (o *GmailOAuth) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := o.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	if token.RefreshToken == "" {
		o.logger.Warn("No refresh token returned, revoke the app grant and retry")
	}

	return token, nil
}
