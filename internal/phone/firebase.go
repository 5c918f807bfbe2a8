// Package phone answers whether a phone number was verified by an external identity provider.
package phone

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

type userLookup interface {
	GetUserByPhoneNumber(ctx context.Context, phone string) (*auth.UserRecord, error)
}

// FirebaseVerifier treats a phone as verified when a Firebase Auth user holds it.
type FirebaseVerifier struct {
	users userLookup
	log   *zap.Logger
}

// NewFirebaseVerifier builds a verifier from a service account credentials file.
func NewFirebaseVerifier(ctx context.Context, credentialsFile string, log *zap.Logger) (*FirebaseVerifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return newFirebaseVerifier(client, log), nil
}

func newFirebaseVerifier(users userLookup, log *zap.Logger) *FirebaseVerifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &FirebaseVerifier{users: users, log: log}
}

func (v *FirebaseVerifier) IsPhoneVerified(ctx context.Context, phone string) (bool, error) {
	user, err := v.users.GetUserByPhoneNumber(ctx, phone)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if user == nil || user.Disabled {
		return false, nil
	}
	v.log.Debug("phone verified by identity provider", zap.String("uid", user.UID))
	return true, nil
}
