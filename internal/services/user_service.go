package services

import (
	"context"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/monocle-dev/pms/internal/auth"
	"github.com/monocle-dev/pms/internal/models"
	"gorm.io/gorm"
)

const maxUsernameLength = 150

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+( [\p{L}\p{N}_.@+-]+)*$`)

const invalidCredentials = "Invalid credentials"

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

func validateUsername(username string) (string, error) {
	username, err := requiredText("username", username, 0, maxUsernameLength)
	if err != nil {
		return "", err
	}

	if !usernamePattern.MatchString(username) {
		return "", Validation("username", "Enter a valid username. Letters, digits, spaces and @/./+/-/_ only.")
	}

	return username, nil
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username, err := validateUsername(in.Username)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, Validation("email", "This field is required.")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, Validation("email", "Enter a valid email address.")
	}

	if err := auth.ValidatePassword(in.Password, username, email); err != nil {
		return nil, Validation("password", err.Error())
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fail(ctx, "hash password", err)
	}

	slog.DebugContext(ctx, "registering user", "username", username)

	user := models.User{Username: username, Email: email, PasswordHash: hash}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := allocateSlug(tx, username, slugTarget{
			table:    "users",
			column:   "username_slug",
			fallback: "user",
			check: func(tx *gorm.DB) error {
				return checkIdentityFree(tx, uuid.Nil, username, email)
			},
			write: func(tx *gorm.DB, slug string) error {
				user.UsernameSlug = slug
				return tx.Create(&user).Error
			},
		})
		return err
	})

	if err != nil {
		return nil, fail(ctx, "register user", err)
	}

	return &user, nil
}

// checkIdentityFree rejects a username or email held by anyone other than self.
func checkIdentityFree(tx *gorm.DB, self uuid.UUID, username, email string) error {
	var count int64

	if username != "" {
		if err := tx.Model(&models.User{}).Where("username = ? AND id <> ?", username, self).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return Validation("username", "A user with that username already exists.")
		}
	}

	if email != "" {
		if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", email, self).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return Validation("email", "A user with that email already exists.")
		}
	}

	return nil
}

// Authenticate resolves login as a username or an email and checks the password.
// Every failure returns the same error.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)

	if login == "" || password == "" {
		auth.BurnComparison(password)
		return nil, Validation(NonFieldErrors, invalidCredentials)
	}

	var user models.User
	err := s.DB.WithContext(ctx).
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&user).Error

	if isNotFound(err) {
		auth.BurnComparison(password)
		return nil, Validation(NonFieldErrors, invalidCredentials)
	}
	if err != nil {
		return nil, fail(ctx, "load user", err)
	}

	if !s.VerifyCredential(&user, password) {
		return nil, Validation(NonFieldErrors, invalidCredentials)
	}

	return &user, nil
}

func (s *UserService) VerifyCredential(user *models.User, plaintext string) bool {
	if user == nil || plaintext == "" {
		return false
	}
	return auth.CheckPassword(user.PasswordHash, plaintext)
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.lookup(ctx, "id = ?", id)
}

func (s *UserService) LookupByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.lookup(ctx, "username = ?", strings.TrimSpace(username))
}

func (s *UserService) LookupByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.lookup(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *UserService) lookup(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User

	err := s.DB.WithContext(ctx).Where(query, arg).First(&user).Error
	if isNotFound(err) {
		return nil, NotFound("User not found.")
	}
	if err != nil {
		return nil, fail(ctx, "load user", err)
	}

	return &user, nil
}

// UpdateUsername renames the user and allocates a fresh slug for the new name.
func (s *UserService) UpdateUsername(ctx context.Context, userID uuid.UUID, newUsername string) (*models.User, error) {
	username, err := validateUsername(newUsername)
	if err != nil {
		return nil, err
	}

	var user models.User

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if isNotFound(err) {
				return NotFound("User not found.")
			}
			return err
		}

		if user.Username == username {
			return nil
		}

		_, err := allocateSlug(tx, username, slugTarget{
			table:    "users",
			column:   "username_slug",
			fallback: "user",
			check: func(tx *gorm.DB) error {
				return checkIdentityFree(tx, userID, username, "")
			},
			write: func(tx *gorm.DB, slug string) error {
				err := tx.Model(&user).Updates(map[string]interface{}{
					"username":      username,
					"username_slug": slug,
				}).Error
				if err == nil {
					user.Username, user.UsernameSlug = username, slug
				}
				return err
			},
		})
		return err
	})

	if err != nil {
		return nil, fail(ctx, "update username", err)
	}

	return &user, nil
}

// DeleteAccount removes the user and everything they hold. It is refused while
// the user is the only administrator of any organization.
func (s *UserService) DeleteAccount(ctx context.Context, userID uuid.UUID, password string) error {
	slog.DebugContext(ctx, "deleting account", "user_id", userID)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if isNotFound(err) {
				return NotFound("User not found.")
			}
			return err
		}

		if !s.VerifyCredential(&user, password) {
			return Validation("password", "Incorrect password.")
		}

		var adminOf []models.OrganizationMembership
		if err := tx.Where("user_id = ? AND role = ?", userID, models.OrgRoleAdmin).Find(&adminOf).Error; err != nil {
			return err
		}

		for _, m := range adminOf {
			if err := lockOrganization(tx, m.OrganizationID, nil); err != nil {
				return err
			}

			admins, err := countAdmins(tx, m.OrganizationID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return Validation(NonFieldErrors, "You are the only administrator of an organization. Promote another member before deleting your account.")
			}
		}

		if err := tx.Model(&models.Template{}).Where("created_by_id = ?", userID).Update("created_by_id", nil).Error; err != nil {
			return err
		}

		for _, model := range []interface{}{
			&models.TaskAssignment{},
			&models.ProjectMembership{},
			&models.OrganizationMembership{},
		} {
			if err := tx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&user).Error
	})

	return fail(ctx, "delete account", err)
}
