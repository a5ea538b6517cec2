package services

import (
	"context"

	"github.com/skillbridge/apiserver/internal/authz"
	"github.com/skillbridge/apiserver/types"
	"go.uber.org/zap"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	SetApproved(ctx context.Context, id string, approved bool) (types.User, error)
	SetRole(ctx context.Context, email string, role types.Role) (types.User, error)
}

// UserService encapsulates account administration use-cases.
type UserService struct {
	repo   UserRepository
	policy authz.Policy
	logger *zap.Logger
}

func NewUserService(repo UserRepository, policy authz.Policy, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, policy: policy, logger: logger}
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// SetInstructorApproval flips the approval flag on an account.
func (s *UserService) SetInstructorApproval(ctx context.Context, actor types.User, id string, approved bool) (types.User, error) {
	if err := s.policy.Authorize(actor, authz.ApproveInstructor, actor.ID); err != nil {
		return types.User{}, err
	}

	user, err := s.repo.SetApproved(ctx, id, approved)
	if err != nil {
		return types.User{}, err
	}
	s.logger.Info("instructor approval changed",
		zap.String("user_id", user.ID.Hex()),
		zap.Bool("approved", approved),
		zap.String("by", actor.ID.Hex()),
	)
	return user, nil
}

// SetRole changes the role of the account with the given email. It is only
// reachable from the CLI.
func (s *UserService) SetRole(ctx context.Context, email string, role types.Role) (types.User, error) {
	if !role.Valid() {
		return types.User{}, invalidInput("unknown role %q", role)
	}
	return s.repo.SetRole(ctx, email, role)
}
