package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/youvisa/pkg/adapters/memory"
	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/session"
)

func newCallToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

type fixture struct {
	store    *memory.TaskStore
	sessions *memory.Store
	server   *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: memory.NewTaskStore(), sessions: memory.NewStore()}
	f.server = NewServer(f.store, session.NewManager(f.sessions), "1.0.0", nil)

	uid, err := f.store.AddUser(ctx, "u1", "Ana", "111")
	require.NoError(t, err)
	_, err = f.store.AddUser(ctx, "u2", "Bia", "222")
	require.NoError(t, err)
	cid, err := f.store.AddCountry(ctx, "Canadá", domain.NewLabels("passaporte", "foto"))
	require.NoError(t, err)
	tid, err := f.store.CreateTask(ctx, uid, cid)
	require.NoError(t, err)
	_, err = f.store.AddDocument(ctx, tid, "foto", "u1/1_a.png")
	require.NoError(t, err)
	return f
}

func TestNewServer(t *testing.T) {
	f := newFixture(t)
	require.NotNil(t, f.server.mcpServer)
}

func TestListCountries(t *testing.T) {
	f := newFixture(t)

	result, err := f.server.handleListCountries(context.Background(), newCallToolRequest("list_countries", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	out, ok := result.StructuredContent.(CountriesResult)
	require.True(t, ok, "got %T", result.StructuredContent)
	require.Len(t, out.Countries, 1)
	assert.Equal(t, domain.Labels{"passaporte", "foto"}, out.Countries[0].RequiredDocs)
}

func TestListTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.server.handleListTasks(ctx, newCallToolRequest("list_tasks", map[string]any{}))
	require.NoError(t, err)
	out := result.StructuredContent.(TasksResult)
	require.Len(t, out.Tasks, 1)
	assert.Equal(t, "u1", out.Tasks[0].UserID)
	assert.Equal(t, domain.Labels{"passaporte"}, out.Tasks[0].Missing)

	result, err = f.server.handleListTasks(ctx, newCallToolRequest("list_tasks", map[string]any{"status": "ready"}))
	require.NoError(t, err)
	assert.Empty(t, result.StructuredContent.(TasksResult).Tasks)

	result, err = f.server.handleListTasks(ctx, newCallToolRequest("list_tasks", map[string]any{"status": "archived"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestUserStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := domain.NewSession("u1", domain.StepAwaitingDocuments)
	require.NoError(t, f.sessions.Save(ctx, "u1", s))

	result, err := f.server.handleUserStatus(ctx, newCallToolRequest("user_status", map[string]any{"user_id": "u1"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	out := result.StructuredContent.(StatusResult)
	assert.Equal(t, "Ana", out.Name)
	assert.Equal(t, domain.StepAwaitingDocuments, out.Step)
	assert.Equal(t, "Canadá", out.Country)
	assert.Equal(t, domain.TaskInProgress, out.Status)
	assert.Equal(t, domain.Labels{"foto"}, out.Uploaded)
	assert.Equal(t, domain.Labels{"passaporte"}, out.Missing)
}

func TestUserStatus_WithoutTask(t *testing.T) {
	f := newFixture(t)

	result, err := f.server.handleUserStatus(context.Background(), newCallToolRequest("user_status", map[string]any{"user_id": "u2"}))
	require.NoError(t, err)
	out := result.StructuredContent.(StatusResult)
	assert.Equal(t, "Bia", out.Name)
	assert.Zero(t, out.TaskID)
	assert.Empty(t, out.Step)
}

func TestUserStatus_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, args := range []map[string]any{{}, {"user_id": "  "}, {"user_id": "ghost"}} {
		result, err := f.server.handleUserStatus(ctx, newCallToolRequest("user_status", args))
		require.NoError(t, err)
		assert.True(t, result.IsError, "args %v", args)
	}
}

func TestActiveSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registering := domain.NewSession("u9", domain.StepAwaitingNationalID)
	registering.Name = "Carla"
	require.NoError(t, f.sessions.Save(ctx, "u9", registering))
	uploading := domain.NewSession("u1", domain.StepAwaitingDocuments)
	uploading.TaskID, uploading.CountryName, uploading.FailedClassifications = 1, "Canadá", 2
	require.NoError(t, f.sessions.Save(ctx, "u1", uploading))

	result, err := f.server.handleActiveSessions(ctx, newCallToolRequest("active_sessions", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	out, ok := result.StructuredContent.(SessionsResult)
	require.True(t, ok, "got %T", result.StructuredContent)
	assert.Equal(t, []SessionSummary{
		{UserID: "u1", Step: domain.StepAwaitingDocuments, TaskID: 1, Country: "Canadá", Failures: 2},
		{UserID: "u9", Step: domain.StepAwaitingNationalID},
	}, out.Sessions)
}

func TestActiveSessions_WithoutSessionStore(t *testing.T) {
	srv := NewServer(memory.NewTaskStore(), nil, "1.0.0", nil)

	result, err := srv.handleActiveSessions(context.Background(), newCallToolRequest("active_sessions", nil))
	require.NoError(t, err)
	assert.Empty(t, result.StructuredContent.(SessionsResult).Sessions)
}
