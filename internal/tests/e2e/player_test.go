//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/openarcade/playerbase/config"
	"github.com/openarcade/playerbase/internal/db"
	"github.com/openarcade/playerbase/internal/server"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	setupEnv()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestPlayerLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	suffix := time.Now().UnixNano()
	alice := fmt.Sprintf("alice_%d", suffix)
	bob := fmt.Sprintf("bob_%d", suffix)
	password := "testpass123!"

	aliceToken, err := registerPlayer(t, baseURL, alice, password)
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	bobToken, err := registerPlayer(t, baseURL, bob, password)
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}

	// Duplicate registration must conflict.
	if err := expectStatus(t, baseURL, http.MethodPost, "/auth/register", "", map[string]string{
		"username": alice,
		"password": password,
	}, http.StatusConflict); err != nil {
		t.Fatalf("duplicate register: %v", err)
	}

	loginToken, err := login(t, baseURL, alice, password)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loginToken == "" {
		t.Fatal("expected login token")
	}

	updated, err := submitResult(t, baseURL, aliceToken, 42)
	if err != nil {
		t.Fatalf("submit result: %v", err)
	}
	if !updated {
		t.Fatal("expected first result to set the high score")
	}

	updated, err = submitResult(t, baseURL, aliceToken, 7)
	if err != nil {
		t.Fatalf("submit lower result: %v", err)
	}
	if updated {
		t.Fatal("expected lower result to keep the high score")
	}

	profile, err := getProfile(t, baseURL, alice)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.HighScore != 42 {
		t.Fatalf("unexpected high score: %d", profile.HighScore)
	}
	if profile.GamesPlayed != 2 {
		t.Fatalf("unexpected games played: %d", profile.GamesPlayed)
	}

	if _, err := submitResult(t, baseURL, bobToken, 10); err != nil {
		t.Fatalf("submit bob result: %v", err)
	}

	entries, err := leaderboard(t, baseURL)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if err := expectRanking(entries, alice, bob); err != nil {
		t.Fatalf("leaderboard ranking: %v", err)
	}

	if err := sendFriendRequest(t, baseURL, aliceToken, bob); err != nil {
		t.Fatalf("send friend request: %v", err)
	}
	if err := expectStatus(t, baseURL, http.MethodPost, fmt.Sprintf("/friends/requests/%s/accept", alice), bobToken, nil, http.StatusOK); err != nil {
		t.Fatalf("accept friend request: %v", err)
	}

	friends, err := checkFriendship(t, baseURL, aliceToken, bob)
	if err != nil {
		t.Fatalf("check friendship: %v", err)
	}
	if !friends {
		t.Fatal("expected alice and bob to be friends")
	}

	// The pair is settled; a second accept must conflict.
	if err := expectStatus(t, baseURL, http.MethodPost, fmt.Sprintf("/friends/requests/%s/accept", alice), bobToken, nil, http.StatusConflict); err != nil {
		t.Fatalf("repeat accept: %v", err)
	}
}

type authResponse struct {
	Token string `json:"token"`
}

type profileResponse struct {
	Username    string `json:"username"`
	Nickname    string `json:"nickname"`
	HighScore   int64  `json:"high_score"`
	GamesPlayed int64  `json:"games_played"`
}

type submitResultResponse struct {
	HighScoreUpdated bool `json:"high_score_updated"`
}

type leaderboardEntry struct {
	Username  string `json:"username"`
	HighScore int64  `json:"high_score"`
}

type leaderboardResponse struct {
	Entries []leaderboardEntry `json:"entries"`
}

type checkFriendshipResponse struct {
	Friends bool `json:"friends"`
}

func registerPlayer(t *testing.T, baseURL, username, password string) (string, error) {
	t.Helper()

	payload := map[string]string{
		"username": username,
		"password": password,
	}
	resp, err := doRequest(http.MethodPost, baseURL+"/auth/register", "", payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("register status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("missing token in register response")
	}
	return parsed.Token, nil
}

func login(t *testing.T, baseURL, username, password string) (string, error) {
	t.Helper()

	payload := map[string]string{
		"username": username,
		"password": password,
	}
	resp, err := doRequest(http.MethodPost, baseURL+"/auth/login", "", payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("login status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	return parsed.Token, nil
}

func submitResult(t *testing.T, baseURL, token string, score int64) (bool, error) {
	t.Helper()

	resp, err := doRequest(http.MethodPost, baseURL+"/players/me/results", token, map[string]int64{"score": score})
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("submit result status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed submitResultResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, err
	}
	return parsed.HighScoreUpdated, nil
}

func getProfile(t *testing.T, baseURL, username string) (profileResponse, error) {
	t.Helper()

	resp, err := doRequest(http.MethodGet, baseURL+"/players/"+username, "", nil)
	if err != nil {
		return profileResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return profileResponse{}, fmt.Errorf("get profile status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return profileResponse{}, err
	}
	return parsed, nil
}

func leaderboard(t *testing.T, baseURL string) ([]leaderboardEntry, error) {
	t.Helper()

	resp, err := doRequest(http.MethodGet, baseURL+"/leaderboard", "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("leaderboard status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed leaderboardResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return parsed.Entries, nil
}

// expectRanking verifies that higher appears before lower in the entries.
// Other test runs may have left accounts behind, so positions are
// relative rather than absolute.
func expectRanking(entries []leaderboardEntry, higher, lower string) error {
	higherIdx, lowerIdx := -1, -1
	for i, entry := range entries {
		switch entry.Username {
		case higher:
			higherIdx = i
		case lower:
			lowerIdx = i
		}
	}
	if higherIdx == -1 || lowerIdx == -1 {
		return fmt.Errorf("expected both %s and %s on the leaderboard", higher, lower)
	}
	if higherIdx > lowerIdx {
		return fmt.Errorf("expected %s to rank above %s", higher, lower)
	}
	return nil
}

func sendFriendRequest(t *testing.T, baseURL, token, username string) error {
	t.Helper()

	resp, err := doRequest(http.MethodPost, baseURL+"/friends/requests", token, map[string]string{"username": username})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("send friend request status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func checkFriendship(t *testing.T, baseURL, token, username string) (bool, error) {
	t.Helper()

	resp, err := doRequest(http.MethodGet, baseURL+"/friends/"+username, token, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("check friendship status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed checkFriendshipResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, err
	}
	return parsed.Friends, nil
}

func expectStatus(t *testing.T, baseURL, method, path, token string, payload any, want int) error {
	t.Helper()

	resp, err := doRequest(method, baseURL+path, token, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("expected status %d, got %d: %s", want, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func doRequest(method, url, token string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return http.DefaultClient.Do(req)
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.PostgresURL(cfg))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, db.PostgresURL(cfg))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func setupEnv() {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "playerbase")
	_ = os.Setenv("DB_PASSWORD", "playerbase")
	_ = os.Setenv("DB_NAME", "playerbase_db")
	_ = os.Setenv("DB_USE_SSL", "false")
}

func startServer() (*server.Server, error) {
	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
