package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crewboard/database"
	"crewboard/middleware"
	"crewboard/models"
	"crewboard/services"

	"github.com/glebarez/sqlite"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testWebhookSecret = "whsec_test"

func newTestServer(t *testing.T) (*chi.Mux, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	middleware.SetJWTSecret("test-secret")
	log := zap.NewNop().Sugar()

	teamHandler := NewTeamHandler(services.NewTeamService(db), log)
	missionHandler := NewMissionHandler(services.NewMissionService(db), log)
	userHandler := NewUserHandler(services.NewUserService(db), services.NewReputationService(db), log)
	webhookHandler := NewWebhookHandler(services.NewUserService(db), testWebhookSecret, log)

	router := chi.NewRouter()
	router.Post("/webhooks/identity", webhookHandler.HandleIdentityEvent)
	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(db))
		r.Route("/teams", func(r chi.Router) {
			r.Post("/", teamHandler.Create)
			r.Get("/", teamHandler.List)
			r.Get("/search", teamHandler.Search)
			r.Put("/{teamID}", teamHandler.Edit)
			r.Delete("/{teamID}", teamHandler.Delete)
			r.Post("/{teamID}/join", teamHandler.Join)
			r.Put("/{teamID}/whitelist", teamHandler.UpdateWhitelist)
		})
		r.Route("/users", func(r chi.Router) {
			r.Get("/search", userHandler.Search)
			r.Get("/me/team", teamHandler.MyTeam)
			r.Get("/me/points", missionHandler.Points)
			r.Get("/me/mission-status", missionHandler.Status)
			r.Post("/{userID}/reputation", userHandler.Vote)
		})
		r.Route("/missions", func(r chi.Router) {
			r.Post("/claim/hourly", missionHandler.ClaimHourly)
			r.Post("/claim/daily", missionHandler.ClaimDaily)
		})
	})
	return router, db
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()

	user := models.User{
		ID:       "user_" + username,
		Username: username,
		Email:    fmt.Sprintf("%s@example.com", username),
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

func doJSON(t *testing.T, router http.Handler, method, path string, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func tokenFor(t *testing.T, user models.User) string {
	t.Helper()

	token, err := middleware.GenerateToken(user.ID, user.Username, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestCreateTeamEndpoint(t *testing.T) {
	router, db := newTestServer(t)
	alice := seedUser(t, db, "alice")
	seedUser(t, db, "bob")

	rec := doJSON(t, router, http.MethodPost, "/teams", tokenFor(t, alice), map[string]any{
		"name":              "Falcons",
		"invited_usernames": []string{"bob", "ghost"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Team struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			MemberCount int    `json:"member_count"`
		} `json:"team"`
		SkippedUsernames []string `json:"skipped_usernames"`
	}
	decodeBody(t, rec, &resp)
	if resp.Team.Name != "Falcons" || resp.Team.MemberCount != 1 {
		t.Errorf("team = %+v", resp.Team)
	}
	if len(resp.SkippedUsernames) != 1 || resp.SkippedUsernames[0] != "ghost" {
		t.Errorf("skipped = %v, want [ghost]", resp.SkippedUsernames)
	}
}

func TestCreateTeamRequiresAuth(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/teams", "", map[string]any{"name": "Falcons"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, rec, &resp)
	if resp.Error.Code != "UNAUTHORIZED" {
		t.Errorf("code = %q, want UNAUTHORIZED", resp.Error.Code)
	}
}

func TestJoinAndDeleteFlow(t *testing.T) {
	router, db := newTestServer(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	rec := doJSON(t, router, http.MethodPost, "/teams", tokenFor(t, alice), map[string]any{
		"name":              "Falcons",
		"invited_usernames": []string{"bob"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created struct {
		Team struct {
			ID string `json:"id"`
		} `json:"team"`
	}
	decodeBody(t, rec, &created)
	teamID := created.Team.ID

	rec = doJSON(t, router, http.MethodPost, "/teams/"+teamID+"/join", tokenFor(t, bob), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("join status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Non-leader delete is forbidden and changes nothing.
	rec = doJSON(t, router, http.MethodDelete, "/teams/"+teamID, tokenFor(t, bob), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-leader delete status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/users/me/team", tokenFor(t, bob), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("my-team status = %d", rec.Code)
	}
	var myTeam struct {
		Team *struct {
			ID string `json:"id"`
		} `json:"team"`
		IsLeader bool `json:"is_leader"`
	}
	decodeBody(t, rec, &myTeam)
	if myTeam.Team == nil || myTeam.Team.ID != teamID || myTeam.IsLeader {
		t.Errorf("my-team = %+v", myTeam)
	}

	rec = doJSON(t, router, http.MethodDelete, "/teams/"+teamID, tokenFor(t, alice), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("leader delete status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/users/me/team", tokenFor(t, bob), nil)
	decodeBody(t, rec, &myTeam)
	if myTeam.Team != nil {
		t.Errorf("team should be gone, got %+v", myTeam.Team)
	}
}

func TestEditTeamValidationAndConflict(t *testing.T) {
	router, db := newTestServer(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	rec := doJSON(t, router, http.MethodPost, "/teams", tokenFor(t, alice), map[string]any{"name": "Falcons"})
	var created struct {
		Team struct {
			ID string `json:"id"`
		} `json:"team"`
	}
	decodeBody(t, rec, &created)

	doJSON(t, router, http.MethodPost, "/teams", tokenFor(t, bob), map[string]any{"name": "Eagles"})

	rec = doJSON(t, router, http.MethodPut, "/teams/"+created.Team.ID, tokenFor(t, alice), map[string]any{"name": "ab"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("short name status = %d, want 400", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPut, "/teams/"+created.Team.ID, tokenFor(t, alice), map[string]any{"name": "Eagles"})
	if rec.Code != http.StatusConflict {
		t.Errorf("name conflict status = %d, want 409", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPut, "/teams/"+created.Team.ID, tokenFor(t, bob), map[string]any{"name": "Hawks"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-leader edit status = %d, want 403", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPut, "/teams/missing-id", tokenFor(t, alice), map[string]any{"name": "Hawks"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing team status = %d, want 404", rec.Code)
	}
}

func TestMissionEndpoints(t *testing.T) {
	router, db := newTestServer(t)
	alice := seedUser(t, db, "alice")
	token := tokenFor(t, alice)

	rec := doJSON(t, router, http.MethodPost, "/missions/claim/hourly", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("claim status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/missions/claim/hourly", token, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("cooldown status = %d, want 429", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/users/me/points", token, nil)
	var points struct {
		Points int `json:"points"`
	}
	decodeBody(t, rec, &points)
	if points.Points != services.HourlyReward {
		t.Errorf("points = %d, want %d", points.Points, services.HourlyReward)
	}
}

func TestReputationEndpoint(t *testing.T) {
	router, db := newTestServer(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	rec := doJSON(t, router, http.MethodPost, "/users/"+bob.ID+"/reputation", tokenFor(t, alice),
		map[string]string{"vote_type": "UPVOTE"})
	if rec.Code != http.StatusOK {
		t.Fatalf("vote status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Reputation int    `json:"reputation"`
		VoteStatus string `json:"vote_status"`
	}
	decodeBody(t, rec, &resp)
	if resp.Reputation != 1 || resp.VoteStatus != "UPVOTE" {
		t.Errorf("vote response = %+v", resp)
	}

	rec = doJSON(t, router, http.MethodPost, "/users/"+alice.ID+"/reputation", tokenFor(t, alice),
		map[string]string{"vote_type": "UPVOTE"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("self vote status = %d, want 400", rec.Code)
	}
}

func TestWebhookEndpoint(t *testing.T) {
	router, db := newTestServer(t)

	event := map[string]any{
		"type": "user.created",
		"data": map[string]string{
			"id":       "user_new",
			"username": "newcomer",
			"email":    "newcomer@example.com",
		},
	}

	rec := doJSON(t, router, http.MethodPost, "/webhooks/identity", "", event)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no-secret status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/webhooks/identity", testWebhookSecret, event)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var user models.User
	if err := db.First(&user, "id = ?", "user_new").Error; err != nil {
		t.Fatalf("synced user missing: %v", err)
	}
	if user.Username != "newcomer" {
		t.Errorf("username = %q, want newcomer", user.Username)
	}

	event["type"] = "user.deleted"
	rec = doJSON(t, router, http.MethodPost, "/webhooks/identity", testWebhookSecret, event)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if err := db.First(&user, "id = ?", "user_new").Error; err == nil {
		t.Error("user should be deleted")
	}
}
