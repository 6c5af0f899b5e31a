// Package firebase initialises the Firebase Admin app from configuration and
// provides the Firestore-backed event and user store.
package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/gifterest/notifier/internal/config"
)

const tokenURI = "https://oauth2.googleapis.com/token"

// serviceAccount is the subset of a Google service-account key file that the
// Admin SDK needs to mint tokens.
type serviceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
	TokenURI    string `json:"token_uri"`
}

// NewApp creates the Admin SDK app. A credentials file takes precedence over
// the individual FIREBASE_* fields.
func NewApp(ctx context.Context, cfg *config.Config) (*firebase.App, error) {
	opt, err := clientOption(cfg)
	if err != nil {
		return nil, err
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opt)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	return app, nil
}

func clientOption(cfg *config.Config) (option.ClientOption, error) {
	if cfg.FirebaseCredentialsFile != "" {
		return option.WithCredentialsFile(cfg.FirebaseCredentialsFile), nil
	}
	raw, err := credentialsJSON(cfg)
	if err != nil {
		return nil, err
	}
	return option.WithCredentialsJSON(raw), nil
}

func credentialsJSON(cfg *config.Config) ([]byte, error) {
	if !cfg.HasFirebaseCredentials() {
		return nil, errors.New("firebase credentials not configured: set FIREBASE_CREDENTIALS_FILE or FIREBASE_PROJECT_ID, FIREBASE_PRIVATE_KEY and FIREBASE_CLIENT_EMAIL")
	}
	raw, err := json.Marshal(serviceAccount{
		Type:        "service_account",
		ProjectID:   cfg.FirebaseProjectID,
		PrivateKey:  cfg.FirebasePrivateKey,
		ClientEmail: cfg.FirebaseClientEmail,
		TokenURI:    tokenURI,
	})
	if err != nil {
		return nil, fmt.Errorf("encode service account: %w", err)
	}
	return raw, nil
}
