package service

import (
	"context"

	"conduit/internal/models"
	"conduit/internal/observability"
	"conduit/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

type ProfileService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
}

func NewProfileService(users repository.UserRepository, follows repository.FollowRepository) *ProfileService {
	return &ProfileService{users: users, follows: follows}
}

// GetProfile returns username's profile with following relative to viewer.
func (s *ProfileService) GetProfile(ctx context.Context, viewer models.Viewer, username string) (*models.ProfileView, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	following := false
	if viewerID, ok := viewer.ID(); ok && viewerID != user.ID {
		following, err = s.follows.IsFollowing(ctx, viewerID, user.ID)
		if err != nil {
			return nil, err
		}
	}
	profile := user.Profile(following)
	return &profile, nil
}

func (s *ProfileService) Follow(ctx context.Context, followerID uint, username string) (*models.ProfileView, error) {
	return s.setFollowing(ctx, followerID, username, true)
}

func (s *ProfileService) Unfollow(ctx context.Context, followerID uint, username string) (*models.ProfileView, error) {
	return s.setFollowing(ctx, followerID, username, false)
}

// setFollowing adds or removes the follow edge. Both directions are idempotent.
func (s *ProfileService) setFollowing(ctx context.Context, followerID uint, username string, follow bool) (_ *models.ProfileView, err error) {
	method := "Unfollow"
	if follow {
		method = "Follow"
	}
	ctx, span := observability.StartSpan(ctx, "ProfileService", method, attribute.String("profile.username", username))
	defer func() { observability.EndSpan(span, err) }()

	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == followerID {
		return nil, models.NewInvalidArgumentError("you cannot follow yourself")
	}

	if follow {
		_, err = s.follows.Follow(ctx, followerID, target.ID)
	} else {
		_, err = s.follows.Unfollow(ctx, followerID, target.ID)
	}
	if err != nil {
		return nil, err
	}

	profile := target.Profile(follow)
	return &profile, nil
}
