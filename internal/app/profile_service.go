package app

import (
	"context"
	"strings"
	"unicode/utf8"

	"animal-quiz-service/internal/domain"
	"go.uber.org/zap"
)

const (
	minUsernameLength = 2
	maxUsernameLength = 30
)

// ProfileService manages the identity-keyed profile.
type ProfileService struct {
	store        ProgressStore
	achievements *AchievementEvaluator
	logger       *zap.Logger
}

func NewProfileService(store ProgressStore, achievements *AchievementEvaluator, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{store: store, achievements: achievements, logger: logger}
}

// Register creates the profile for a verified identity.
func (s *ProfileService) Register(ctx context.Context, identity domain.Identity, username, photoURL string) (domain.User, error) {
	username, err := validUsername(username)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.store.CreateUser(ctx, domain.NewUser{
		ID:       identity.UserID,
		Email:    identity.Email,
		Username: username,
		PhotoURL: strings.TrimSpace(photoURL),
	})
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

func (s *ProfileService) Me(ctx context.Context, uid string) (domain.User, error) {
	return s.store.GetUser(ctx, uid)
}

// UpdateProfile changes the username and/or photo.
func (s *ProfileService) UpdateProfile(ctx context.Context, uid string, update domain.UserUpdate) (domain.User, error) {
	if update.Username != nil {
		name, err := validUsername(*update.Username)
		if err != nil {
			return domain.User{}, err
		}
		update.Username = &name
	}
	if update.PhotoURL != nil {
		photo := strings.TrimSpace(*update.PhotoURL)
		update.PhotoURL = &photo
	}
	return s.store.UpdateUser(ctx, uid, update)
}

// ResetGameData wipes gameplay state, keeping the identity fields.
func (s *ProfileService) ResetGameData(ctx context.Context, uid string) error {
	ok, err := s.store.ResetUserGameData(ctx, uid)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	s.logger.Info("user game data reset", zap.String("user_id", uid))
	return nil
}

func (s *ProfileService) Coins(ctx context.Context, uid string) (int, error) {
	return s.store.GetCoins(ctx, uid)
}

func (s *ProfileService) Achievements(ctx context.Context, uid string) ([]domain.UnlockedAchievement, error) {
	return s.store.GetAchievements(ctx, uid)
}

func (s *ProfileService) AchievementDefinitions() []domain.AchievementDefinition {
	return s.achievements.Definitions()
}

// ReportAchievement records a client-observed achievement.
func (s *ProfileService) ReportAchievement(ctx context.Context, uid, id string) (bool, error) {
	if _, err := s.store.GetUser(ctx, uid); err != nil {
		return false, err
	}
	return s.achievements.Report(ctx, uid, id)
}

func validUsername(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(name)
	if n < minUsernameLength || n > maxUsernameLength {
		return "", domain.ErrInvalidRequest
	}
	return name, nil
}
