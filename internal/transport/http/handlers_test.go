package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"animal-quiz-service/internal/app"
	"animal-quiz-service/internal/catalog"
	"animal-quiz-service/internal/domain"
	"animal-quiz-service/internal/infra/memory"
	"github.com/golang-jwt/jwt/v5"
)

type testServer struct {
	*httptest.Server
	feed *app.Feed
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cat, err := catalog.New([]catalog.LevelDefinition{
		{
			ID:    1,
			Title: map[string]string{"it": "Casa", "en": "Home"},
			Animals: []catalog.AnimalDefinition{
				{Name: map[string]string{"it": "Cane", "en": "Dog"}, Hints: map[string][]string{"it": {"Abbaia"}}},
				{Name: map[string]string{"it": "Gatto", "en": "Cat"}},
			},
		},
	}, "it", []string{"it", "en"})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	now := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	store := memory.NewStoreWithClock(cat.Layout(), now)
	feed := app.NewFeed()
	rules := app.DefaultRules()
	achievements := app.NewAchievementEvaluator(store, nil)
	leaderboard := app.NewLeaderboardServiceWithClock(store, time.Minute, now)
	feed.OnPublish(leaderboard.Invalidate)

	handlers := NewHandlers(
		app.NewQuizService(store, cat, achievements, feed, rules, nil),
		app.NewChallengeServiceWithClock(store, cat, achievements, feed, rules, nil, now),
		leaderboard,
		app.NewProfileService(store, achievements, nil),
		nil,
	)
	verifier := MockVerifier{}
	router := NewRouter(RouterConfig{
		Handlers:    handlers,
		Leaderboard: NewLeaderboardWSHandler(feed, leaderboard, verifier, nil),
		Verifier:    verifier,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, feed: feed}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestRegisterAndAnswerFlow(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, http.MethodGet, "/api/v1/users/me", "u1", nil)
	if status != http.StatusNotFound || errorCode(body) != "user_not_found" {
		t.Fatalf("expected 404 user_not_found, got %d %v", status, body)
	}

	status, body = srv.do(t, http.MethodPost, "/api/v1/users/register", "u1", map[string]string{"username": "ada"})
	if status != http.StatusCreated || body["username"] != "ada" {
		t.Fatalf("register: %d %v", status, body)
	}
	status, body = srv.do(t, http.MethodPost, "/api/v1/users/register", "u1", map[string]string{"username": "ada"})
	if status != http.StatusConflict || errorCode(body) != "user_already_exists" {
		t.Fatalf("expected 409, got %d %v", status, body)
	}

	status, body = srv.do(t, http.MethodPost, "/api/v1/levels/1/animals/0/answer", "u1", map[string]any{"answer": "cane"})
	if status != http.StatusOK || body["correct"] != true || body["coinsAwarded"] != float64(12) {
		t.Fatalf("answer: %d %v", status, body)
	}
	if body["lastActivityDate"] != "2024-05-01" || body["pointsAwarded"] != float64(20) {
		t.Fatalf("unexpected answer body %v", body)
	}

	status, body = srv.do(t, http.MethodPost, "/api/v1/levels/1/animals/1/hint", "u1", nil)
	if status != http.StatusOK || body["hintsRevealed"] != float64(1) || body["totalCoins"] != float64(7) {
		t.Fatalf("hint: %d %v", status, body)
	}
	status, body = srv.do(t, http.MethodPost, "/api/v1/levels/1/animals/1/letter", "u1", nil)
	if status != http.StatusPaymentRequired || errorCode(body) != "insufficient_coins" {
		t.Fatalf("expected 402, got %d %v", status, body)
	}

	status, body = srv.do(t, http.MethodGet, "/api/v1/users/me/coins", "u1", nil)
	if status != http.StatusOK || body["totalCoins"] != float64(7) {
		t.Fatalf("coins: %d %v", status, body)
	}
	status, body = srv.do(t, http.MethodGet, "/api/v1/levels/1?lang=en", "u1", nil)
	animals, _ := body["animals"].([]any)
	if status != http.StatusOK || body["title"] != "Home" || len(animals) != 2 {
		t.Fatalf("level detail: %d %v", status, body)
	}
	first, _ := animals[0].(map[string]any)
	if first["guessed"] != true || first["name"] != "Dog" {
		t.Fatalf("unexpected first animal %v", first)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/api/v1/users/register", "u1", map[string]string{"username": "ada"})

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"missing token", http.MethodGet, "/api/v1/users/me", "", nil, http.StatusUnauthorized, "unauthenticated"},
		{"unknown level", http.MethodGet, "/api/v1/levels/9", "u1", nil, http.StatusNotFound, "level_not_found"},
		{"bad level id", http.MethodPost, "/api/v1/levels/x/animals/0/answer", "u1", map[string]any{"answer": "a"}, http.StatusBadRequest, "invalid_request"},
		{"bad index", http.MethodPost, "/api/v1/levels/1/animals/5/answer", "u1", map[string]any{"answer": "a"}, http.StatusBadRequest, "invalid_request"},
		{"unknown field", http.MethodPost, "/api/v1/levels/1/animals/0/answer", "u1", map[string]any{"guess": "a"}, http.StatusBadRequest, "invalid_request"},
		{"bad combo", http.MethodPost, "/api/v1/levels/1/animals/0/answer", "u1", map[string]any{"answer": "cane", "comboMultiplier": 3}, http.StatusBadRequest, "invalid_request"},
		{"short username", http.MethodPost, "/api/v1/users/register", "u2", map[string]string{"username": "a"}, http.StatusBadRequest, "invalid_request"},
		{"server-side achievement", http.MethodPost, "/api/v1/users/me/achievements", "u1", map[string]string{"id": "first_correct"}, http.StatusBadRequest, "achievement_not_reportable"},
		{"unknown achievement", http.MethodPost, "/api/v1/users/me/achievements", "u1", map[string]string{"id": "nope"}, http.StatusBadRequest, "unknown_achievement"},
		{"bad date", http.MethodGet, "/api/v1/challenge/leaderboard?date=yesterday", "", nil, http.StatusBadRequest, "invalid_request"},
		{"bad limit", http.MethodGet, "/api/v1/leaderboard?limit=ten", "", nil, http.StatusBadRequest, "invalid_request"},
	}
	for _, tc := range cases {
		status, body := srv.do(t, tc.method, tc.path, tc.token, tc.body)
		if status != tc.status || errorCode(body) != tc.code {
			t.Fatalf("%s: expected %d %s, got %d %v", tc.name, tc.status, tc.code, status, body)
		}
	}
}

func TestChallengeAndLeaderboardEndpoints(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/api/v1/users/register", "u1", map[string]string{"username": "ada"})
	srv.do(t, http.MethodPost, "/api/v1/users/register", "u2", map[string]string{"username": "bob"})

	status, body := srv.do(t, http.MethodGet, "/api/v1/challenge/today", "u1", nil)
	animals, _ := body["animals"].([]any)
	if status != http.StatusOK || body["date"] != "2024-05-01" || len(animals) != 2 || body["score"] != nil {
		t.Fatalf("today: %d %v", status, body)
	}
	for i, name := range []string{"cane", "gatto"} {
		status, body = srv.do(t, http.MethodPost, "/api/v1/challenge/today/animals/"+string(rune('0'+i))+"/answer", "u1", map[string]any{"answer": name})
		if status != http.StatusOK || body["pointsAwarded"] != float64(20) || body["coinsAwarded"] != float64(0) {
			t.Fatalf("challenge answer %d: %d %v", i, status, body)
		}
	}
	_, body = srv.do(t, http.MethodGet, "/api/v1/challenge/today", "u1", nil)
	if body["completed"] != true || body["score"] != float64(40) {
		t.Fatalf("expected completed challenge, got %v", body)
	}

	status, body = srv.do(t, http.MethodGet, "/api/v1/challenge/leaderboard", "", nil)
	entries, _ := body["entries"].([]any)
	if status != http.StatusOK || body["total"] != float64(1) || len(entries) != 1 {
		t.Fatalf("challenge leaderboard: %d %v", status, body)
	}

	srv.do(t, http.MethodPost, "/api/v1/levels/1/animals/0/answer", "u2", map[string]any{"answer": "cane"})
	status, body = srv.do(t, http.MethodGet, "/api/v1/leaderboard?limit=1", "", nil)
	entries, _ = body["entries"].([]any)
	if status != http.StatusOK || body["total"] != float64(2) || len(entries) != 1 {
		t.Fatalf("leaderboard: %d %v", status, body)
	}
	top, _ := entries[0].(map[string]any)
	if top["userId"] != "u2" || top["rank"] != float64(1) {
		t.Fatalf("unexpected leader %v", top)
	}
}

func TestResetEndpoint(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/api/v1/users/register", "u1", map[string]string{"username": "ada"})
	srv.do(t, http.MethodPost, "/api/v1/levels/1/animals/0/answer", "u1", map[string]any{"answer": "cane"})

	status, _ := srv.do(t, http.MethodPost, "/api/v1/users/me/reset", "u1", nil)
	if status != http.StatusNoContent {
		t.Fatalf("reset: %d", status)
	}
	_, body := srv.do(t, http.MethodGet, "/api/v1/users/me", "u1", nil)
	if body["totalCoins"] != float64(0) || body["username"] != "ada" {
		t.Fatalf("unexpected profile after reset %v", body)
	}
}

func TestJWTVerifier(t *testing.T) {
	v, err := NewJWTVerifier("secret", "quiz-auth", "quiz-app")
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	sign := func(claims Claims, key string) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return tok
	}
	valid := Claims{Email: "ada@example.com", RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    "quiz-auth",
		Audience:  jwt.ClaimStrings{"quiz-app"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}

	id, err := v.Verify(context.Background(), sign(valid, "secret"))
	if err != nil || id.UserID != "u1" || id.Email != "ada@example.com" {
		t.Fatalf("expected identity, got %+v %v", id, err)
	}

	wrongAudience := valid
	wrongAudience.Audience = jwt.ClaimStrings{"other"}
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	for name, tok := range map[string]string{
		"wrong key":      sign(valid, "other"),
		"wrong audience": sign(wrongAudience, "secret"),
		"expired":        sign(expired, "secret"),
		"garbage":        "not-a-token",
	} {
		if _, err := v.Verify(context.Background(), tok); err != domain.ErrUnauthenticated {
			t.Fatalf("%s: expected ErrUnauthenticated, got %v", name, err)
		}
	}

	if _, err := NewJWTVerifier("", "", ""); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
