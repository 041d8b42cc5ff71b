package security

import (
	"context"
	"fmt"

	"courses_sheet_api/internal/platform/config"

	"google.golang.org/api/idtoken"
)

// GoogleProfile holds the identity claims we use from a verified Google ID token.
type GoogleProfile struct {
	Email string
	Name  string
}

// VerifyGoogleIDToken validates the raw ID token against the configured OAuth client ID.
func VerifyGoogleIDToken(ctx context.Context, rawToken string) (*GoogleProfile, error) {
	payload, err := idtoken.Validate(ctx, rawToken, config.AppConfig.GoogleClientID)
	if err != nil {
		return nil, fmt.Errorf("google id token validation: %w", err)
	}

	profile := &GoogleProfile{}
	if email, ok := payload.Claims["email"].(string); ok {
		profile.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		profile.Name = name
	}
	if profile.Email == "" {
		return nil, fmt.Errorf("google id token has no email claim")
	}
	return profile, nil
}
