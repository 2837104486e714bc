package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"postify/internal/lib/sl"
	"postify/internal/lib/validate"
	"postify/internal/model"
	"postify/internal/queue"
	"postify/internal/repository"
	"postify/internal/username"
)

// UsernameLockedMessage is shown when a locked username is edited.
const UsernameLockedMessage = "Username cannot be changed"

// UserService handles business logic for user operations
type UserService struct {
	repo      repository.UserRepository
	publisher queue.Publisher // Can be nil if the blog cache is not wired
	log       *slog.Logger
}

func NewUserService(repo repository.UserRepository) *UserService {
	return &UserService{repo: repo, log: sl.Discard()}
}

// SetPublisher enables profile_updated events so public blog caches drop
// stale headers.
func (s *UserService) SetPublisher(p queue.Publisher, log *slog.Logger) {
	s.publisher = p
	s.log = log.With(slog.String("component", "user_service"))
}

// Register creates a new account on the free plan.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if reason := username.Check(req.Username); reason != "" {
		return nil, model.NewValidationError(reason)
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	// Check if username already exists
	exists, err := s.repo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, model.ErrUsernameExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:       req.Username,
		UsernameLocked: true,
		Email:          strings.ToLower(req.Email),
		PasswordHashed: string(hashedPassword),
		Theme:          model.DefaultTheme(),
		Subscription:   model.NewFreeSubscription(),
	}

	// A concurrent signup can still win the race; the unique index reports it.
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrUsernameExists) || errors.Is(err, model.ErrEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login authenticates a user with email and password.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		// Don't reveal whether the account exists
		return nil, model.ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password))
	if err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return user, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// CheckUsername runs the signup rules against name, including uniqueness.
// An empty name is a validation error; every other failure is reported as
// unavailable with its reason.
func (s *UserService) CheckUsername(ctx context.Context, name string) (*model.UsernameCheckResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError(username.ReasonRequired)
	}
	if reason := username.Check(name); reason != "" {
		return &model.UsernameCheckResponse{Available: false, Reason: reason}, nil
	}

	exists, err := s.repo.ExistsByUsername(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return &model.UsernameCheckResponse{Available: false, Reason: username.ReasonTaken}, nil
	}
	return &model.UsernameCheckResponse{Available: true}, nil
}

// UpdateProfile applies the fields present in req. Subscription fields are
// never written here.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	upd := model.ProfileUpdate{
		Bio:             req.Bio,
		BlogTitle:       req.BlogTitle,
		BlogDescription: req.BlogDescription,
		ProfilePicture:  req.ProfilePicture,
		BannerImage:     req.BannerImage,
		CustomDomain:    req.CustomDomain,
		Theme:           req.Theme,
	}

	previous := ""
	if req.Username != nil {
		current, err := s.repo.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		newName := strings.TrimSpace(*req.Username)
		// Resending the current name is not a change.
		if newName != current.Username {
			if current.UsernameLocked {
				return nil, model.NewValidationError(UsernameLockedMessage)
			}
			if reason := username.Check(newName); reason != "" {
				return nil, model.NewValidationError(reason)
			}
			exists, err := s.repo.ExistsByUsername(ctx, newName)
			if err != nil {
				return nil, fmt.Errorf("failed to check username: %w", err)
			}
			if exists && username.Normalize(newName) != username.Normalize(current.Username) {
				return nil, model.NewValidationError(username.ReasonTaken)
			}
			upd.Username = &newName
			previous = current.Username
		}
	}

	user, err := s.repo.UpdateProfile(ctx, userID, upd)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrUsernameLocked):
			return nil, model.NewValidationError(UsernameLockedMessage)
		case errors.Is(err, model.ErrUsernameExists):
			return nil, model.NewValidationError(username.ReasonTaken)
		}
		return nil, err
	}

	s.profileChanged(ctx, user.ID, user.Username)
	if previous != "" && previous != user.Username {
		s.profileChanged(ctx, user.ID, previous)
	}
	return user, nil
}

// SetProfilePicture stores a freshly uploaded avatar URL.
func (s *UserService) SetProfilePicture(ctx context.Context, userID int64, url string) (*model.User, error) {
	user, err := s.repo.UpdateProfile(ctx, userID, model.ProfileUpdate{ProfilePicture: &url})
	if err != nil {
		return nil, err
	}
	s.profileChanged(ctx, user.ID, user.Username)
	return user, nil
}

func (s *UserService) profileChanged(ctx context.Context, userID int64, name string) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, queue.StreamBlog, queue.NewProfileUpdatedEvent(userID, name)); err != nil {
		s.log.Warn("failed to publish profile event", slog.Int64("user_id", userID), sl.Err(err))
	}
}
