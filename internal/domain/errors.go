package domain

import "errors"

var (
	// ErrInvalidRequest is returned for unknown levels, animal indices or malformed input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUserNotFound is returned when the identity has no profile yet.
	ErrUserNotFound = errors.New("user not found")
	// ErrLevelNotFound indicates the catalog has no such level.
	ErrLevelNotFound = errors.New("level not found")
	// ErrUserAlreadyExists is returned when registering an identity twice.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidIndex is raised by stores when a slot index is out of range.
	ErrInvalidIndex = errors.New("invalid level or animal index")
	// ErrInsufficientCoins indicates the balance cannot cover a purchase.
	ErrInsufficientCoins = errors.New("insufficient coins")
	// ErrMaxHintsReached indicates the hint cost table is exhausted for a slot.
	ErrMaxHintsReached = errors.New("max hints reached")
	// ErrMaxRevealsReached indicates the letter reveal cap is reached for a slot.
	ErrMaxRevealsReached = errors.New("max reveals reached")
	// ErrUnauthenticated is returned when a bearer credential cannot be verified.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnknownAchievement is returned for achievement ids outside the catalog of achievements.
	ErrUnknownAchievement = errors.New("unknown achievement")
	// ErrAchievementNotReportable is returned when a client reports an achievement the server derives itself.
	ErrAchievementNotReportable = errors.New("achievement is evaluated server-side")
	// ErrTransactionConflict is returned once a store exhausts its retry budget. Callers may retry.
	ErrTransactionConflict = errors.New("transaction conflict")
)

// ErrorCode maps an error onto its stable machine-readable code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidIndex):
		return "invalid_request"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrLevelNotFound):
		return "level_not_found"
	case errors.Is(err, ErrUserAlreadyExists):
		return "user_already_exists"
	case errors.Is(err, ErrInsufficientCoins):
		return "insufficient_coins"
	case errors.Is(err, ErrMaxHintsReached):
		return "max_hints_reached"
	case errors.Is(err, ErrMaxRevealsReached):
		return "max_reveals_reached"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrUnknownAchievement):
		return "unknown_achievement"
	case errors.Is(err, ErrAchievementNotReportable):
		return "achievement_not_reportable"
	default:
		return "internal_error"
	}
}
