package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	handler "github.com/chapterelect/elections/internal/adapters/handler/http"
	"github.com/chapterelect/elections/internal/adapters/notification"
	repo "github.com/chapterelect/elections/internal/adapters/repository/postgres"
	"github.com/chapterelect/elections/internal/core/credential"
	"github.com/chapterelect/elections/internal/core/domain"
	"github.com/chapterelect/elections/internal/core/services"
)

const (
	testJWTSecret        = "test-secret"
	testCredentialSecret = "integration-credential-secret-0123456789"
)

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	dbName := "testdb"
	user := "user"
	password := "password"

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

func applyMigrations(db *sql.DB) error {
	dirPath := "../../internal/adapters/repository/postgres/migrations"

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if !strings.HasSuffix(entry.Name(), "up.sql") {
			continue
		}

		fullPath := filepath.Join(dirPath, entry.Name())
		content, err := os.ReadFile(fullPath)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		_, err = db.Exec(string(content))
		if err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

type TestApp struct {
	DB          *sql.DB
	Server      *httptest.Server
	Client      *http.Client
	DBContainer testcontainers.Container
}

func setupTestApp(t *testing.T) *TestApp {
	ctx := context.Background()
	dbContainer, dbURL, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)

	err = applyMigrations(db)
	require.NoError(t, err)

	codec, err := credential.NewCodec([]byte(testCredentialSecret))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	electionRepo := repo.NewElectionRepository(db)
	linkRepo := repo.NewLinkRepository(db)
	ballotRepo := repo.NewBallotRepository(db)
	resultsRepo := repo.NewResultsRepository(db)
	rosterRepo := repo.NewRosterRepository(db)

	electionService := services.NewElectionService(electionRepo, logger)
	linkService := services.NewLinkService(codec, linkRepo, electionRepo, rosterRepo, notification.NewLogNotifier(logger), logger)
	ballotService := services.NewBallotService(linkService, ballotRepo, logger)
	resultsService := services.NewResultsService(electionRepo, resultsRepo, linkRepo, rosterRepo, 2, logger)

	router := handler.NewHandler(
		[]byte(testJWTSecret),
		handler.NewElectionHandler(electionService),
		handler.NewLinkHandler(linkService),
		handler.NewBallotHandler(linkService, ballotService),
		handler.NewResultsHandler(resultsService),
	)

	server := httptest.NewServer(router)

	return &TestApp{
		DB:          db,
		Server:      server,
		Client:      server.Client(),
		DBContainer: dbContainer,
	}
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.DB.Close()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}

// createAdminToken mints a capability token the way the identity collaborator
// would: manage and approve claims for one chapter.
func createAdminToken(t *testing.T, chapterID string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":               uuid.New().String(),
		"chapter_id":        chapterID,
		"manage_elections":  true,
		"approve_elections": true,
		"exp":               time.Now().Add(15 * time.Minute).Unix(),
		"iat":               time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signedToken
}

// doJSON issues a request with an optional capability token and JSON payload.
func (app *TestApp) doJSON(t *testing.T, method, path, token string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, app.Server.URL+path, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	}

	resp, err := app.Client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// electionFixture is a fully configured election: one Chair position with two
// approved candidates.
type electionFixture struct {
	AdminToken string
	ElectionID uuid.UUID
	ChairID    uuid.UUID
	CandidateA uuid.UUID
	CandidateB uuid.UUID
}

// createDraftElection builds the fixture up to draft with candidates still
// pending approval.
func (app *TestApp) createDraftElection(t *testing.T) *electionFixture {
	t.Helper()

	token := createAdminToken(t, "chapter-42")
	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(24 * time.Hour)

	resp := app.doJSON(t, "POST", "/api/elections", token, map[string]any{
		"title":          "Spring Officer Election",
		"chapter_id":     "chapter-42",
		"start_time":     start,
		"end_time":       end,
		"public_results": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	election := decodeBody[domain.Election](t, resp)

	resp = app.doJSON(t, "POST", fmt.Sprintf("/api/elections/%s/positions", election.ID), token, map[string]any{
		"title": "Chair",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	chair := decodeBody[domain.Position](t, resp)

	fixture := &electionFixture{
		AdminToken: token,
		ElectionID: election.ID,
		ChairID:    chair.ID,
	}

	for i, name := range []string{"Alice Moreno", "Ben Okafor"} {
		resp = app.doJSON(t, "POST", fmt.Sprintf("/api/positions/%s/candidates", chair.ID), token, map[string]any{
			"name": name,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		candidate := decodeBody[domain.Candidate](t, resp)
		if i == 0 {
			fixture.CandidateA = candidate.ID
		} else {
			fixture.CandidateB = candidate.ID
		}
	}

	return fixture
}

// createActiveElection walks the fixture through submit, approve and start.
func (app *TestApp) createActiveElection(t *testing.T) *electionFixture {
	t.Helper()

	f := app.createDraftElection(t)

	for _, candidateID := range []uuid.UUID{f.CandidateA, f.CandidateB} {
		resp := app.doJSON(t, "POST", fmt.Sprintf("/api/candidates/%s/approve", candidateID), f.AdminToken, map[string]any{
			"approval": "approved",
		})
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp.Body.Close()
	}

	for _, step := range []string{"submit", "approve", "start"} {
		resp := app.doJSON(t, "POST", fmt.Sprintf("/api/elections/%s/%s", f.ElectionID, step), f.AdminToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, "lifecycle step %s", step)
		resp.Body.Close()
	}

	return f
}

// addRosterMembers seeds the read-only roster the way the membership
// collaborator would, directly in the database.
func (app *TestApp) addRosterMembers(t *testing.T, electionID uuid.UUID, n int) []uuid.UUID {
	t.Helper()

	voterIDs := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		voterID := uuid.New()
		_, err := app.DB.Exec(
			"INSERT INTO roster_members (election_id, voter_id, email) VALUES ($1, $2, $3)",
			electionID, voterID, fmt.Sprintf("voter-%d@example.org", i),
		)
		require.NoError(t, err)
		voterIDs = append(voterIDs, voterID)
	}
	return voterIDs
}

type issuedLinkResponse struct {
	VoterID  uuid.UUID `json:"voter_id"`
	RawToken string    `json:"raw_token"`
}

type generateLinksResponse struct {
	Issued  []issuedLinkResponse `json:"issued"`
	Skipped int                  `json:"skipped"`
}

func (app *TestApp) generateLinks(t *testing.T, f *electionFixture) generateLinksResponse {
	t.Helper()

	resp := app.doJSON(t, "POST", fmt.Sprintf("/api/elections/%s/links", f.ElectionID), f.AdminToken, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[generateLinksResponse](t, resp)
}
