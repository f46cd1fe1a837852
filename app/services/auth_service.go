package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bluelog/app/auth"
	"bluelog/app/models"
	"bluelog/app/repositories"

	"github.com/sirupsen/logrus"
)

const DefaultCategory = "Default"

// AuthService checks admin credentials and sets up the admin account.
type AuthService struct {
	store      repositories.Store
	adminEmail string
	log        logrus.FieldLogger
}

func NewAuthService(store repositories.Store, adminEmail string, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		store:      store,
		adminEmail: adminEmail,
		log:        log.WithField("service", "auth"),
	}
}

// Login returns the admin identity for valid credentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (auth.Identity, error) {
	form := loginForm{Username: strings.TrimSpace(username), Password: password}
	if err := validateForm(form); err != nil {
		return auth.Anonymous(), err
	}

	admin, err := s.store.Admins().GetByUsername(ctx, form.Username)
	if errors.Is(err, repositories.ErrNotFound) {
		return auth.Anonymous(), ErrInvalidCredentials
	}
	if err != nil {
		return auth.Anonymous(), err
	}
	if !admin.CheckPassword(form.Password) {
		s.log.WithField("username", form.Username).Warn("failed login")
		return auth.Anonymous(), ErrInvalidCredentials
	}

	return auth.Identity{
		Authenticated: true,
		Username:      admin.Username,
		Name:          admin.Name,
		Email:         s.adminEmail,
	}, nil
}

// Init creates the admin account, or resets its password when it exists,
// and makes sure the default category is there.
func (s *AuthService) Init(ctx context.Context, username, password string) (*models.Admin, error) {
	admin, err := s.store.Admins().GetByUsername(ctx, username)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		admin = &models.Admin{
			Username:     username,
			Name:         "Admin",
			BlogTitle:    "Bluelog",
			BlogSubTitle: "No, I'm the real thing.",
			About:        "Anything about you.",
		}
		s.log.WithField("username", username).Info("creating the administrator account")
	case err != nil:
		return nil, err
	default:
		s.log.WithField("username", username).Info("the administrator already exists, updating")
	}

	if err := admin.SetPassword(password); err != nil {
		return nil, err
	}
	if err := s.store.Admins().Save(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to save admin: %w", err)
	}

	_, err = s.store.Categories().GetByName(ctx, DefaultCategory)
	if errors.Is(err, repositories.ErrNotFound) {
		s.log.Info("creating the default category")
		err = s.store.Categories().Create(ctx, &models.Category{Name: DefaultCategory})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set up the default category: %w", err)
	}
	return admin, nil
}
