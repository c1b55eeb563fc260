package http

import (
	"net/http"
	"strconv"

	"animal-quiz-service/internal/app"
	"animal-quiz-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handlers binds the REST API onto the application services.
type Handlers struct {
	quiz        *app.QuizService
	challenges  *app.ChallengeService
	leaderboard *app.LeaderboardService
	profiles    *app.ProfileService
	logger      *zap.Logger
}

func NewHandlers(quiz *app.QuizService, challenges *app.ChallengeService, leaderboard *app.LeaderboardService, profiles *app.ProfileService, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		quiz:        quiz,
		challenges:  challenges,
		leaderboard: leaderboard,
		profiles:    profiles,
		logger:      logger,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	PhotoURL string `json:"photoUrl"`
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	PhotoURL *string `json:"photoUrl"`
}

type answerRequest struct {
	Answer          string  `json:"answer"`
	AdRevealed      bool    `json:"adRevealed"`
	ComboMultiplier float64 `json:"comboMultiplier"`
}

type challengeAnswerRequest struct {
	Answer     string `json:"answer"`
	AdRevealed bool   `json:"adRevealed"`
}

type reportRequest struct {
	ID string `json:"id"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.profiles.Register(r.Context(), id, req.Username, req.PhotoURL)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.profiles.Me(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.profiles.UpdateProfile(r.Context(), userID(r), domain.UserUpdate{Username: req.Username, PhotoURL: req.PhotoURL})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handlers) ResetGameData(w http.ResponseWriter, r *http.Request) {
	if err := h.profiles.ResetGameData(r.Context(), userID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Progress(w http.ResponseWriter, r *http.Request) {
	levels, err := h.quiz.Progress(r.Context(), userID(r), locale(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"levels": levels})
}

func (h *Handlers) Coins(w http.ResponseWriter, r *http.Request) {
	coins, err := h.profiles.Coins(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"totalCoins": coins})
}

func (h *Handlers) Achievements(w http.ResponseWriter, r *http.Request) {
	unlocked, err := h.profiles.Achievements(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"achievements": unlocked})
}

func (h *Handlers) ReportAchievement(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	unlocked, err := h.profiles.ReportAchievement(r.Context(), userID(r), req.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"unlocked": unlocked})
}

func (h *Handlers) AchievementDefinitions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"achievements": h.profiles.AchievementDefinitions()})
}

func (h *Handlers) Levels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"levels": h.quiz.Levels(locale(r))})
}

func (h *Handlers) LevelDetail(w http.ResponseWriter, r *http.Request) {
	levelID, err := pathInt(r, "levelID")
	if err != nil {
		writeError(w, err)
		return
	}
	detail, err := h.quiz.LevelDetail(r.Context(), userID(r), levelID, locale(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handlers) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	levelID, index, err := slotParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.quiz.SubmitAnswer(r.Context(), userID(r), domain.AnswerSubmission{
		LevelID:         levelID,
		AnimalIndex:     index,
		Answer:          req.Answer,
		Locale:          locale(r),
		AdRevealed:      req.AdRevealed,
		ComboMultiplier: req.ComboMultiplier,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) BuyHint(w http.ResponseWriter, r *http.Request) {
	levelID, index, err := slotParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.quiz.BuyHint(r.Context(), userID(r), levelID, index)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) RevealLetter(w http.ResponseWriter, r *http.Request) {
	levelID, index, err := slotParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.quiz.RevealLetter(r.Context(), userID(r), levelID, index)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) TodayChallenge(w http.ResponseWriter, r *http.Request) {
	challenge, err := h.challenges.Today(r.Context(), userID(r), locale(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}

func (h *Handlers) SubmitChallengeAnswer(w http.ResponseWriter, r *http.Request) {
	index, err := pathInt(r, "index")
	if err != nil {
		writeError(w, err)
		return
	}
	var req challengeAnswerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.challenges.SubmitAnswer(r.Context(), userID(r), domain.ChallengeSubmission{
		AnimalIndex: index,
		Answer:      req.Answer,
		Locale:      locale(r),
		AdRevealed:  req.AdRevealed,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) ChallengeLeaderboard(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	board, err := h.leaderboard.Daily(r.Context(), r.URL.Query().Get("date"), offset, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *Handlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.leaderboard.Global(r.Context(), offset, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// fail writes the error envelope, logging anything that maps to a 500.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, err)
}

func userID(r *http.Request) string {
	id, _ := IdentityFrom(r.Context())
	return id.UserID
}

func pathInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, domain.ErrInvalidRequest
	}
	return v, nil
}

func slotParams(r *http.Request) (int, int, error) {
	levelID, err := pathInt(r, "levelID")
	if err != nil {
		return 0, 0, err
	}
	index, err := pathInt(r, "index")
	if err != nil {
		return 0, 0, err
	}
	return levelID, index, nil
}

func pageParams(r *http.Request) (int, int, error) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	limit, err := queryInt(r, "limit", app.DefaultPageLimit)
	if err != nil {
		return 0, 0, err
	}
	return offset, limit, nil
}
