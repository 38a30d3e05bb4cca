package service

import (
	"context"
	"errors"

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"go.uber.org/zap"
)

// UserService manages accounts and logins.
type UserService struct {
	users UserStore
	options
}

// NewUserService constructs a UserService.
func NewUserService(users UserStore, opts ...Option) *UserService {
	return &UserService{users: users, options: newOptions(opts)}
}

// Signup creates a student or organizer account. Students are the default.
func (s *UserService) Signup(ctx context.Context, req model.SignupRequest) (*model.User, error) {
	if req.Role == "" {
		req.Role = model.RoleStudent
	}
	if req.Role == model.RoleAdmin {
		verr := &model.ValidationError{}
		verr.Add("role", "role must be organizer or student")
		return nil, verr
	}
	return s.create(ctx, req)
}

// CreateUser lets an admin create an account of any role.
func (s *UserService) CreateUser(ctx context.Context, caller model.Caller, req model.SignupRequest) (*model.User, error) {
	if !caller.IsAdmin() {
		return nil, model.ErrForbidden
	}
	return s.create(ctx, req)
}

// CreateAdmin seeds an admin account. It is only reachable from the CLI.
func (s *UserService) CreateAdmin(ctx context.Context, req model.SignupRequest) (*model.User, error) {
	req.Role = model.RoleAdmin
	return s.create(ctx, req)
}

func (s *UserService) create(ctx context.Context, req model.SignupRequest) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, model.Persistence("create user", err)
	}

	u := &model.User{
		Name:      req.Name,
		Email:     req.Email,
		Role:      req.Role,
		CreatedAt: s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u, model.Credentials{Username: req.Username, PasswordHash: hash}); err != nil {
		return nil, model.Persistence("create user", err)
	}

	s.log.WithContext(ctx).Info("user created",
		zap.String("user_id", u.ID),
		zap.String("role", string(u.Role)),
	)
	return u, nil
}

// Authenticate checks a username and password. Every failure, including an
// unknown username, is reported as ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	cred, err := s.users.GetCredentials(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, model.Persistence("authenticate", err)
	}
	if err := auth.CheckPassword(cred.PasswordHash, password); err != nil {
		s.log.WithContext(ctx).Info("login refused", zap.String("user_id", cred.UserID))
		return nil, model.ErrInvalidCredentials
	}

	u, err := s.users.GetUser(ctx, cred.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, model.Persistence("authenticate", err)
	}
	return u, nil
}

// ListUsers returns accounts matching f. Admin only.
func (s *UserService) ListUsers(ctx context.Context, caller model.Caller, f model.UserFilter) ([]model.User, error) {
	if !caller.IsAdmin() {
		return nil, model.ErrForbidden
	}
	users, err := s.users.ListUsers(ctx, f)
	if err != nil {
		return nil, model.Persistence("list users", err)
	}
	return users, nil
}

// ChangeRole sets a user's role. The last admin cannot be demoted.
func (s *UserService) ChangeRole(ctx context.Context, caller model.Caller, userID string, role model.Role) (*model.User, error) {
	if !caller.IsAdmin() {
		return nil, model.ErrForbidden
	}
	if _, err := model.ParseRole(string(role)); err != nil {
		verr := &model.ValidationError{}
		verr.Add("role", "role must be admin, organizer or student")
		return nil, verr
	}
	if err := checkID(userID); err != nil {
		return nil, err
	}

	u, err := s.users.ChangeRole(ctx, userID, role)
	if err != nil {
		return nil, model.Persistence("change role", err)
	}
	s.log.WithContext(ctx).Info("user role changed",
		zap.String("user_id", userID),
		zap.String("role", string(role)),
		zap.String("admin_id", caller.ID),
	)
	return u, nil
}

// DeleteUser removes an account with everything it owns. The last admin
// cannot be deleted.
func (s *UserService) DeleteUser(ctx context.Context, caller model.Caller, userID string) error {
	if !caller.IsAdmin() {
		return model.ErrForbidden
	}
	if err := checkID(userID); err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return model.Persistence("delete user", err)
	}
	s.log.WithContext(ctx).Info("user deleted",
		zap.String("user_id", userID),
		zap.String("admin_id", caller.ID),
	)
	return nil
}

// Me returns the caller's own account.
func (s *UserService) Me(ctx context.Context, caller model.Caller) (*model.User, error) {
	if err := checkID(caller.ID); err != nil {
		return nil, model.ErrUnauthenticated
	}
	u, err := s.users.GetUser(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrUnauthenticated
		}
		return nil, model.Persistence("get user", err)
	}
	return u, nil
}
