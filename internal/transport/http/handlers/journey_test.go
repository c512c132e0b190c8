package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/Qrokawa/jinzai-ikusei/internal/app/server"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/auth"
	"github.com/Qrokawa/jinzai-ikusei/internal/platform/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		Addr:               ":0",
		DatabaseURL:        dbURL,
		JWTSecret:          "test-secret",
		DataEncryptionKey:  "0123456789abcdef0123456789abcdef",
		Environment:        "test",
		SeedTenantName:     "Test Tenant",
		SeedTenantDomain:   "test.local",
		SeedAdminEmail:     "admin@test.local",
		SeedAdminPassword:  "ChangeMe123!",
		EmailFrom:          "no-reply@test.local",
		RunMigrations:      true,
		RunSeed:            true,
		MigrationsDir:      "../../../../migrations",
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
		AccessTokenTTL:     time.Hour,
		RefreshSessionTTL:  24 * time.Hour,
		DefaultPageSize:    50,
		MaxPageSize:        200,
	}
}

func TestGoalAndEvaluationJourney(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	client := ts.Client()

	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	cycleID := createCycle(t, client, ts.URL, adminToken)
	cycleStatus := cycleTransition(t, client, ts.URL, adminToken, cycleID, "activate")
	if cycleStatus != "active" {
		t.Fatalf("expected active cycle, got %s", cycleStatus)
	}

	stamp := time.Now().UnixNano()
	managerEmail := fmt.Sprintf("manager-%d@example.com", stamp)
	managerID := createUser(t, client, ts.URL, adminToken, managerEmail, auth.RoleManager, "")

	employeeEmail := fmt.Sprintf("employee-%d@example.com", stamp)
	employeeID := createUser(t, client, ts.URL, adminToken, employeeEmail, auth.RoleEmployee, managerID)

	employeeToken := login(t, client, ts.URL, employeeEmail, "Journey123!")
	managerToken := login(t, client, ts.URL, managerEmail, "Journey123!")

	goalID := createGoal(t, client, ts.URL, employeeToken, cycleID)
	if status := submitGoal(t, client, ts.URL, employeeToken, goalID); status != "pending_approval" {
		t.Fatalf("expected pending_approval after submit, got %s", status)
	}

	pending := listPendingApprovals(t, client, ts.URL, managerToken)
	if pending < 1 {
		t.Fatalf("expected at least one pending approval, got %d", pending)
	}

	if status := decideGoal(t, client, ts.URL, managerToken, goalID, "approve"); status != "approved" {
		t.Fatalf("expected approved goal, got %s", status)
	}

	if status := recordGoalProgress(t, client, ts.URL, employeeToken, goalID, 40); status != "in_progress" {
		t.Fatalf("expected in_progress after first progress, got %s", status)
	}
	if status := recordGoalProgress(t, client, ts.URL, employeeToken, goalID, 100); status != "in_progress" {
		t.Fatalf("expected goal to stay in_progress at 100%%, got %s", status)
	}
	// Reaching 100 percent does not freeze the goal; later updates
	// still append to the history.
	if status := recordGoalProgress(t, client, ts.URL, employeeToken, goalID, 100); status != "in_progress" {
		t.Fatalf("expected progress accepted after 100%%, got %s", status)
	}
	if entries := goalProgressEntries(t, client, ts.URL, employeeToken, goalID); entries != 3 {
		t.Fatalf("expected 3 progress entries, got %d", entries)
	}

	evaluationID := createEvaluation(t, client, ts.URL, managerToken, cycleID, employeeID)
	overall := submitEvaluation(t, client, ts.URL, managerToken, evaluationID, goalID)
	if overall != 4 {
		t.Fatalf("expected overall score 4, got %v", overall)
	}
	if achievement := scoreAchievement(t, client, ts.URL, managerToken, evaluationID, goalID); achievement != 85 {
		t.Fatalf("expected achievement 85 on the stored score, got %v", achievement)
	}

	courseID := createCourse(t, client, ts.URL, adminToken)
	lessonID := addLesson(t, client, ts.URL, adminToken, courseID)
	enrollmentID := enroll(t, client, ts.URL, employeeToken, courseID)

	// A partially watched lesson does not move the enrollment.
	if status := recordLessonProgress(t, client, ts.URL, employeeToken, enrollmentID, lessonID, 80, 300); status != "enrolled" {
		t.Fatalf("expected enrollment untouched with no lesson finished, got %s", status)
	}
	// The second update overwrites the first, even when it rewinds.
	if status := recordLessonProgress(t, client, ts.URL, employeeToken, enrollmentID, lessonID, 30, 120); status != "enrolled" {
		t.Fatalf("expected enrollment still enrolled, got %s", status)
	}
	percentage, lastPosition := lessonSnapshot(t, client, ts.URL, employeeToken, enrollmentID, lessonID)
	if percentage != 30 {
		t.Fatalf("expected lesson progress overwritten to 30, got %.0f", percentage)
	}
	if lastPosition != 120 {
		t.Fatalf("expected last position 120, got %d", lastPosition)
	}

	sendJSONStatus(t, client, http.MethodPatch,
		ts.URL+"/api/v1/enrollments/"+enrollmentID+"/lessons/"+lessonID+"/progress", managerToken,
		map[string]any{"progressPercentage": 50}, http.StatusForbidden)

	enrollmentStatus := recordLessonProgress(t, client, ts.URL, employeeToken, enrollmentID, lessonID, 100, 600)
	if enrollmentStatus != "completed" {
		t.Fatalf("expected completed enrollment after finishing only lesson, got %s", enrollmentStatus)
	}

	if unread := unreadCount(t, client, ts.URL, employeeToken); unread < 1 {
		t.Fatalf("expected unread notifications for employee, got %d", unread)
	}
}

func TestEmployeeCannotManageCycles(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	client := ts.Client()

	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	employeeEmail := fmt.Sprintf("rbac-%d@example.com", time.Now().UnixNano())
	createUser(t, client, ts.URL, adminToken, employeeEmail, auth.RoleEmployee, "")
	employeeToken := login(t, client, ts.URL, employeeEmail, "Journey123!")

	sendJSONStatus(t, client, http.MethodPost, ts.URL+"/api/v1/cycles", employeeToken, map[string]any{
		"name":      "Forbidden Cycle",
		"startDate": "2026-01-01",
		"endDate":   "2026-12-31",
	}, http.StatusForbidden)

	// Self signup stays off unless the deployment opts in.
	sendJSONStatus(t, client, http.MethodPost, ts.URL+"/api/v1/auth/register", "", map[string]any{
		"email":     fmt.Sprintf("signup-%d@test.local", time.Now().UnixNano()),
		"password":  "Journey123!",
		"firstName": "Walkin",
		"lastName":  "Applicant",
	}, http.StatusForbidden)
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatal("expected token")
	}
	return token
}

func createUser(t *testing.T, client *http.Client, baseURL, token, email, role, managerID string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/users", token, map[string]any{
		"email":     email,
		"password":  "Journey123!",
		"firstName": "Journey",
		"lastName":  "Tester",
		"role":      role,
		"managerId": managerID,
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode user response: %v", err)
	}
	id, _ := payload["id"].(string)
	if id == "" {
		t.Fatal("expected user id")
	}
	return id
}

func createCycle(t *testing.T, client *http.Client, baseURL, token string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/cycles", token, map[string]any{
		"name":                   fmt.Sprintf("Cycle %d", time.Now().UnixNano()),
		"startDate":              "2026-01-01",
		"endDate":                "2026-12-31",
		"selfEvaluationStart":    "2026-10-01",
		"selfEvaluationEnd":      "2026-10-31",
		"managerEvaluationStart": "2026-11-01",
		"managerEvaluationEnd":   "2026-11-30",
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode cycle response: %v", err)
	}
	id, _ := payload["id"].(string)
	if id == "" {
		t.Fatal("expected cycle id")
	}
	return id
}

func cycleTransition(t *testing.T, client *http.Client, baseURL, token, cycleID, action string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/cycles/"+cycleID+"/"+action, token, map[string]any{})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode cycle transition response: %v", err)
	}
	status, _ := payload["status"].(string)
	return status
}

func createGoal(t *testing.T, client *http.Client, baseURL, token, cycleID string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/goals", token, map[string]any{
		"cycleId":  cycleID,
		"title":    "Improve onboarding docs",
		"category": "performance",
		"weight":   50,
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode goal response: %v", err)
	}
	id, _ := payload["id"].(string)
	if id == "" {
		t.Fatal("expected goal id")
	}
	return id
}

func submitGoal(t *testing.T, client *http.Client, baseURL, token, goalID string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/goals/"+goalID+"/submit", token, map[string]any{})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode goal submit response: %v", err)
	}
	status, _ := payload["status"].(string)
	return status
}

func listPendingApprovals(t *testing.T, client *http.Client, baseURL, token string) int {
	t.Helper()
	resp := getJSON(t, client, baseURL+"/api/v1/goals/pending-approvals", token)
	var payload struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode pending approvals response: %v", err)
	}
	return payload.Total
}

func decideGoal(t *testing.T, client *http.Client, baseURL, token, goalID, action string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/goals/"+goalID+"/"+action, token, map[string]any{})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode goal decision response: %v", err)
	}
	status, _ := payload["status"].(string)
	return status
}

func recordGoalProgress(t *testing.T, client *http.Client, baseURL, token, goalID string, percentage float64) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/goals/"+goalID+"/progress", token, map[string]any{
		"progressPercentage": percentage,
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode goal progress response: %v", err)
	}
	status, _ := payload["status"].(string)
	return status
}

func goalProgressEntries(t *testing.T, client *http.Client, baseURL, token, goalID string) int {
	t.Helper()
	resp := getJSON(t, client, baseURL+"/api/v1/goals/"+goalID+"/progress", token)
	var entries []json.RawMessage
	if err := json.Unmarshal(resp.Data, &entries); err != nil {
		t.Fatalf("failed to decode progress history response: %v", err)
	}
	return len(entries)
}

func createEvaluation(t *testing.T, client *http.Client, baseURL, token, cycleID, evaluateeID string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/evaluations", token, map[string]any{
		"cycleId":     cycleID,
		"evaluateeId": evaluateeID,
		"type":        "manager",
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode evaluation response: %v", err)
	}
	id, _ := payload["id"].(string)
	if id == "" {
		t.Fatal("expected evaluation id")
	}
	return id
}

func submitEvaluation(t *testing.T, client *http.Client, baseURL, token, evaluationID, goalID string) float64 {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/evaluations/"+evaluationID+"/submit", token, map[string]any{
		"scores": []map[string]any{
			{"goalId": goalID, "score": 4, "achievement": 85, "comment": "Solid delivery"},
		},
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode evaluation submit response: %v", err)
	}
	overall, _ := payload["overallScore"].(float64)
	return overall
}

func scoreAchievement(t *testing.T, client *http.Client, baseURL, token, evaluationID, goalID string) float64 {
	t.Helper()
	resp := getJSON(t, client, baseURL+"/api/v1/evaluations/"+evaluationID+"/scores", token)
	var scores []struct {
		GoalID      string  `json:"goalId"`
		Achievement float64 `json:"achievement"`
	}
	if err := json.Unmarshal(resp.Data, &scores); err != nil {
		t.Fatalf("failed to decode scores response: %v", err)
	}
	for _, score := range scores {
		if score.GoalID == goalID {
			return score.Achievement
		}
	}
	t.Fatalf("no stored score for goal %s", goalID)
	return 0
}

func createCourse(t *testing.T, client *http.Client, baseURL, token string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/courses", token, map[string]any{
		"title":    fmt.Sprintf("Security Basics %d", time.Now().UnixNano()),
		"category": "compliance",
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode course response: %v", err)
	}
	id, _ := payload["id"].(string)
	if id == "" {
		t.Fatal("expected course id")
	}
	return id
}

func addLesson(t *testing.T, client *http.Client, baseURL, token, courseID string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/courses/"+courseID+"/lessons", token, map[string]any{
		"title":           "Phishing Awareness",
		"position":        1,
		"durationMinutes": 15,
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode lesson response: %v", err)
	}
	id, _ := payload["id"].(string)
	if id == "" {
		t.Fatal("expected lesson id")
	}
	return id
}

func enroll(t *testing.T, client *http.Client, baseURL, token, courseID string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/courses/"+courseID+"/enroll", token, map[string]any{})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode enrollment response: %v", err)
	}
	id, _ := payload["id"].(string)
	if id == "" {
		t.Fatal("expected enrollment id")
	}
	return id
}

func recordLessonProgress(t *testing.T, client *http.Client, baseURL, token, enrollmentID, lessonID string, percentage float64, lastPosition int) string {
	t.Helper()
	resp := sendJSON(t, client, http.MethodPatch, baseURL+"/api/v1/enrollments/"+enrollmentID+"/lessons/"+lessonID+"/progress", token, map[string]any{
		"progressPercentage": percentage,
		"timeSpentMinutes":   15,
		"lastPosition":       lastPosition,
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode lesson progress response: %v", err)
	}
	status, _ := payload["status"].(string)
	return status
}

func lessonSnapshot(t *testing.T, client *http.Client, baseURL, token, enrollmentID, lessonID string) (float64, int) {
	t.Helper()
	resp := getJSON(t, client, baseURL+"/api/v1/enrollments/"+enrollmentID+"/lessons", token)
	var lessons []struct {
		LessonID           string  `json:"lessonId"`
		ProgressPercentage float64 `json:"progressPercentage"`
		LastPosition       int     `json:"lastPosition"`
	}
	if err := json.Unmarshal(resp.Data, &lessons); err != nil {
		t.Fatalf("failed to decode lesson progress list: %v", err)
	}
	for _, lesson := range lessons {
		if lesson.LessonID == lessonID {
			return lesson.ProgressPercentage, lesson.LastPosition
		}
	}
	t.Fatalf("no progress row for lesson %s", lessonID)
	return 0, 0
}

func unreadCount(t *testing.T, client *http.Client, baseURL, token string) int {
	t.Helper()
	resp := getJSON(t, client, baseURL+"/api/v1/notifications/unread-count", token)
	var payload struct {
		Unread int `json:"unread"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode unread count response: %v", err)
	}
	return payload.Unread
}

func postJSON(t *testing.T, client *http.Client, url, token string, body any) envelope {
	t.Helper()
	return sendJSON(t, client, http.MethodPost, url, token, body)
}

func sendJSON(t *testing.T, client *http.Client, method, url, token string, body any) envelope {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.StatusCode >= 400 {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	return env
}

func sendJSONStatus(t *testing.T, client *http.Client, method, url, token string, body any, want int) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req, err := http.NewRequest(method, url, bytes.NewBuffer(raw))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body2, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, string(body2))
	}
}

func getJSON(t *testing.T, client *http.Client, url, token string) envelope {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.StatusCode >= 400 {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	return env
}
