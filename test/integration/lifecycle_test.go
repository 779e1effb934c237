package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chapterelect/elections/internal/core/domain"
)

// TestElectionLifecycle walks draft -> pending -> approved -> active -> closed
// over the API and checks the stored status after each step.
func TestElectionLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	f := app.createDraftElection(t)

	assertStatus := func(want domain.ElectionStatus) {
		t.Helper()
		resp := app.doJSON(t, "GET", fmt.Sprintf("/api/elections/%s", f.ElectionID), "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		election := decodeBody[domain.Election](t, resp)
		assert.Equal(t, want, election.Status)
	}

	assertStatus(domain.ElectionDraft)

	for _, candidateID := range []string{f.CandidateA.String(), f.CandidateB.String()} {
		resp := app.doJSON(t, "POST", fmt.Sprintf("/api/candidates/%s/approve", candidateID), f.AdminToken, map[string]any{
			"approval": "approved",
		})
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp.Body.Close()
	}

	steps := []struct {
		op   string
		want domain.ElectionStatus
	}{
		{"submit", domain.ElectionPending},
		{"approve", domain.ElectionApproved},
		{"start", domain.ElectionActive},
		{"close", domain.ElectionClosed},
	}
	for _, step := range steps {
		resp := app.doJSON(t, "POST", fmt.Sprintf("/api/elections/%s/%s", f.ElectionID, step.op), f.AdminToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, "step %s", step.op)
		resp.Body.Close()
		assertStatus(step.want)
	}
}

func TestLifecycleRejectsSkippedTransitions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	f := app.createDraftElection(t)

	// Draft cannot be approved, started or closed.
	for _, op := range []string{"approve", "start", "close"} {
		resp := app.doJSON(t, "POST", fmt.Sprintf("/api/elections/%s/%s", f.ElectionID, op), f.AdminToken, nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode, "op %s on draft", op)
		resp.Body.Close()
	}

	// Verify the election never moved.
	resp := app.doJSON(t, "GET", fmt.Sprintf("/api/elections/%s", f.ElectionID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	election := decodeBody[domain.Election](t, resp)
	assert.Equal(t, domain.ElectionDraft, election.Status)
}

func TestCloseIsTerminal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	f := app.createActiveElection(t)

	resp := app.doJSON(t, "POST", fmt.Sprintf("/api/elections/%s/close", f.ElectionID), f.AdminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// A second close and every other transition bounce off the terminal state.
	for _, op := range []string{"close", "submit", "approve", "start"} {
		resp := app.doJSON(t, "POST", fmt.Sprintf("/api/elections/%s/%s", f.ElectionID, op), f.AdminToken, nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode, "op %s after close", op)
		resp.Body.Close()
	}
}

func TestStartRequiresApprovedCandidates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	f := app.createDraftElection(t)

	// Submit and approve the election while its candidates stay pending.
	for _, op := range []string{"submit", "approve"} {
		resp := app.doJSON(t, "POST", fmt.Sprintf("/api/elections/%s/%s", f.ElectionID, op), f.AdminToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	resp := app.doJSON(t, "POST", fmt.Sprintf("/api/elections/%s/start", f.ElectionID), f.AdminToken, nil)
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	resp := app.doJSON(t, "POST", "/api/elections", "", map[string]any{
		"title":      "No Token",
		"chapter_id": "chapter-42",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestPositionsLockedAfterDraft(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	f := app.createActiveElection(t)

	resp := app.doJSON(t, "POST", fmt.Sprintf("/api/elections/%s/positions", f.ElectionID), f.AdminToken, map[string]any{
		"title": "Treasurer",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

// Candidate approvals are part of the ballot structure: once the election is
// active they can no longer be changed.
func TestCandidateApprovalLockedOnceActive(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	f := app.createActiveElection(t)

	resp := app.doJSON(t, "POST", fmt.Sprintf("/api/candidates/%s/approve", f.CandidateA), f.AdminToken, map[string]any{
		"approval": "rejected",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	var status string
	err := app.DB.QueryRow("SELECT approval_status FROM candidates WHERE id = $1", f.CandidateA).Scan(&status)
	require.NoError(t, err)
	assert.Equal(t, "approved", status)
}
