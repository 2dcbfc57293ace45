package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helpdesk-kit/servicedesk/internal/domain"
	"github.com/helpdesk-kit/servicedesk/internal/repository"
	apperrors "github.com/helpdesk-kit/servicedesk/pkg/util"
)

// Directory is the identity collaborator contract consumed by the workflow.
type Directory interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	GetEmail(ctx context.Context, userID string) (*string, error)
	ListByLocationAndRole(ctx context.Context, locationID string, roles []domain.Role) ([]domain.Profile, error)
}

const profileCacheTTL = 5 * time.Minute

// DirectoryService resolves profiles from the users table with a Redis
// read-through cache in front of profile lookups.
type DirectoryService struct {
	users  repository.UserRepository
	cache  *redis.Client
	logger *zap.Logger
}

// NewDirectoryService builds the directory.
func NewDirectoryService(users repository.UserRepository, cache *redis.Client, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{users: users, cache: cache, logger: logger}
}

// GetProfile returns the role/location/display-name view of a user.
func (d *DirectoryService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if cached := d.cachedProfile(ctx, userID); cached != nil {
		return cached, nil
	}

	user, err := d.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("profile", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}

	profile := &domain.Profile{
		UserID:      user.ID,
		DisplayName: user.Name,
		Role:        user.Role,
		LocationID:  user.LocationID,
	}
	d.storeProfile(ctx, profile)
	return profile, nil
}

// GetEmail returns the delivery address for a user, or nil when none is set.
func (d *DirectoryService) GetEmail(ctx context.Context, userID string) (*string, error) {
	user, err := d.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("profile", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	email := strings.TrimSpace(user.Email)
	if email == "" {
		return nil, nil
	}
	return &email, nil
}

// ListByLocationAndRole returns active profiles matching the location and roles.
func (d *DirectoryService) ListByLocationAndRole(ctx context.Context, locationID string, roles []domain.Role) ([]domain.Profile, error) {
	users, err := d.users.ListByLocationAndRoles(ctx, locationID, roles)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	profiles := make([]domain.Profile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, domain.Profile{
			UserID:      user.ID,
			DisplayName: user.Name,
			Role:        user.Role,
			LocationID:  user.LocationID,
		})
	}
	return profiles, nil
}

func (d *DirectoryService) cachedProfile(ctx context.Context, userID string) *domain.Profile {
	if d.cache == nil {
		return nil
	}
	raw, err := d.cache.Get(ctx, profileCacheKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			d.logger.Debug("profile cache read failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}
	var profile domain.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil
	}
	return &profile
}

func (d *DirectoryService) storeProfile(ctx context.Context, profile *domain.Profile) {
	if d.cache == nil {
		return
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, profileCacheKey(profile.UserID), raw, profileCacheTTL).Err(); err != nil {
		d.logger.Debug("profile cache write failed", zap.String("user_id", profile.UserID), zap.Error(err))
	}
}

func profileCacheKey(userID string) string {
	return "profile:" + userID
}
