package auth

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go"
	fbauth "firebase.google.com/go/auth"
	"google.golang.org/api/option"

	"plotgate/apperr"
	"plotgate/models"
)

// roleClaim is the custom-claim key carrying the portal role on a Firebase
// Auth account.
const roleClaim = "role"

// IdentityGateway wraps the Firebase Auth client: account creation with role
// claims and disabling. The Firestore profile document is NOT written here;
// the users service keeps the two in step.
type IdentityGateway struct {
	client *fbauth.Client
}

// NewIdentityGateway initializes the Firebase Auth client.
func NewIdentityGateway(ctx context.Context, projectID, credentialsPath string) (*IdentityGateway, error) {
	opt := option.WithCredentialsFile(credentialsPath)

	config := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, config, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase Auth client: %w", err)
	}

	log.Printf("🔐 Connected to Firebase Auth project: %s", projectID)

	return &IdentityGateway{client: client}, nil
}

// CreateAccount creates an auth record with the role as a custom claim and
// returns the provider-assigned user ID.
func (g *IdentityGateway) CreateAccount(ctx context.Context, email, password, name string, role models.UserRole) (string, error) {
	params := (&fbauth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(name).
		Disabled(false)

	record, err := g.client.CreateUser(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create auth account: %w", err)
	}

	if err := g.client.SetCustomUserClaims(ctx, record.UID, map[string]interface{}{roleClaim: string(role)}); err != nil {
		return "", fmt.Errorf("failed to set role claim: %w", err)
	}

	return record.UID, nil
}

// Disable marks the auth record disabled so the provider refuses new
// sessions for it.
func (g *IdentityGateway) Disable(ctx context.Context, userID string) error {
	params := (&fbauth.UserToUpdate{}).Disabled(true)
	if _, err := g.client.UpdateUser(ctx, userID, params); err != nil {
		if fbauth.IsUserNotFound(err) {
			return apperr.Wrap(apperr.KindNotFound, "auth account not found", err)
		}
		return apperr.Unavailable("identity provider unavailable", err)
	}
	return nil
}
