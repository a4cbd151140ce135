// Package mcp exposes the task overview to MCP clients (operator agents).
// Every tool is read-only; approving tasks stays on the HTTP admin route.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/youvisa/internal/logging"
	"github.com/aretw0/youvisa/internal/presentation/graph"
	"github.com/aretw0/youvisa/pkg/completion"
	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/ports"
	"github.com/aretw0/youvisa/pkg/workflow"
)

// FlowURI is the resource holding the conversation diagram.
const FlowURI = "youvisa://flow"

// SessionReader lists the users with an open conversation and returns a
// user's session, or nil when there is none. *session.Manager satisfies it.
type SessionReader interface {
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, userID string) (*domain.Session, error)
}

// CountriesResult is the output of list_countries.
type CountriesResult struct {
	Countries []domain.Country `json:"countries" jsonschema_description:"Registered destinations"`
}

// TaskSummary is one row of list_tasks.
type TaskSummary struct {
	TaskID    int64             `json:"task_id"`
	UserID    string            `json:"user_id"`
	Country   string            `json:"country"`
	Status    domain.TaskStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	Missing   domain.Labels     `json:"missing"`
}

// TasksResult is the output of list_tasks.
type TasksResult struct {
	Tasks []TaskSummary `json:"tasks" jsonschema_description:"Tasks with their missing documents"`
}

// StatusResult is the output of user_status.
type StatusResult struct {
	UserID   string            `json:"user_id"`
	Name     string            `json:"name"`
	Step     domain.Step       `json:"step,omitempty" jsonschema_description:"Current conversation step, empty when idle"`
	TaskID   int64             `json:"task_id,omitempty"`
	Country  string            `json:"country,omitempty"`
	Status   domain.TaskStatus `json:"status,omitempty"`
	Required domain.Labels     `json:"required,omitempty"`
	Uploaded domain.Labels     `json:"uploaded,omitempty"`
	Missing  domain.Labels     `json:"missing,omitempty"`
}

// SessionSummary is one row of active_sessions. Registration answers are never exposed.
type SessionSummary struct {
	UserID   string      `json:"user_id"`
	Step     domain.Step `json:"step"`
	TaskID   int64       `json:"task_id,omitempty"`
	Country  string      `json:"country,omitempty"`
	Failures int         `json:"failed_classifications,omitempty"`
}

// SessionsResult is the output of active_sessions.
type SessionsResult struct {
	Sessions []SessionSummary `json:"sessions" jsonschema_description:"Open conversations ordered by user id"`
}

// Server wraps the task store and exposes it as an MCP Server.
type Server struct {
	store     ports.TaskStore
	sessions  SessionReader
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance. sessions may be nil.
func NewServer(store ports.TaskStore, sessions SessionReader, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		store:    store,
		sessions: sessions,
		logger:   logger,
		mcpServer: server.NewMCPServer("youvisa-mcp", strings.TrimSpace(version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_countries",
		mcp.WithDescription("List the destinations and the documents each one requires."),
		mcp.WithOutputSchema[CountriesResult](),
	), s.handleListCountries)

	s.mcpServer.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List visa tasks with their missing documents."),
		mcp.WithString("status", mcp.Description("Only tasks with this status (IN_PROGRESS, READY, COMPLETED)")),
		mcp.WithOutputSchema[TasksResult](),
	), s.handleListTasks)

	s.mcpServer.AddTool(mcp.NewTool("user_status",
		mcp.WithDescription("Show where a user is: conversation step, active task and missing documents."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("The user's id on the messaging transport")),
		mcp.WithOutputSchema[StatusResult](),
	), s.handleUserStatus)

	s.mcpServer.AddTool(mcp.NewTool("active_sessions",
		mcp.WithDescription("List the conversations in progress and the step each one is waiting on."),
		mcp.WithOutputSchema[SessionsResult](),
	), s.handleActiveSessions)
}

func (s *Server) handleListCountries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	countries, err := s.store.GetCountries(ctx)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("list countries failed", err), nil
	}
	if countries == nil {
		countries = []domain.Country{}
	}
	return mcp.NewToolResultStructuredOnly(CountriesResult{Countries: countries}), nil
}

func (s *Server) handleListTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Status string `json:"status"`
	}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	var filter domain.TaskStatus
	if args.Status != "" {
		st, err := domain.ParseTaskStatus(strings.ToUpper(strings.TrimSpace(args.Status)))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filter = st
	}

	details, err := s.store.GetAllTaskDetails(ctx)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("list tasks failed", err), nil
	}
	out := TasksResult{Tasks: []TaskSummary{}}
	for _, d := range details {
		if filter != "" && d.Task.Status != filter {
			continue
		}
		out.Tasks = append(out.Tasks, TaskSummary{
			TaskID:    d.Task.ID,
			UserID:    d.User.ExternalID,
			Country:   d.Country.Name,
			Status:    d.Task.Status,
			CreatedAt: d.Task.CreatedAt,
			Missing:   completion.EvaluateDocuments(d.Country.RequiredDocs, d.Documents).Missing,
		})
	}
	return mcp.NewToolResultStructuredOnly(out), nil
}

func (s *Server) handleUserStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		UserID string `json:"user_id"`
	}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	userID := strings.TrimSpace(args.UserID)
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}

	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("user %s is not registered", userID)), nil
	}
	if err != nil {
		return mcp.NewToolResultErrorFromErr("user lookup failed", err), nil
	}
	res := StatusResult{UserID: userID, Name: user.Name}

	if s.sessions != nil {
		sess, err := s.sessions.Load(ctx, userID)
		if err != nil {
			s.logger.Warn("MCP user_status: Session lookup failed", "user_id", userID, "err", err)
		} else if sess != nil {
			res.Step = sess.Step
		}
	}

	task, err := s.store.GetUserActiveTask(ctx, user.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return mcp.NewToolResultStructuredOnly(res), nil
	}
	if err != nil {
		return mcp.NewToolResultErrorFromErr("task lookup failed", err), nil
	}
	docs, err := s.store.GetTaskDocuments(ctx, task.ID)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("document lookup failed", err), nil
	}
	eval := completion.EvaluateDocuments(task.RequiredDocs, docs)

	res.TaskID = task.ID
	res.Country = task.CountryName
	res.Status = task.Status
	res.Required = eval.Required
	res.Uploaded = eval.Uploaded
	res.Missing = eval.Missing
	return mcp.NewToolResultStructuredOnly(res), nil
}

func (s *Server) handleActiveSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := SessionsResult{Sessions: []SessionSummary{}}
	if s.sessions == nil {
		return mcp.NewToolResultStructuredOnly(out), nil
	}

	ids, err := s.sessions.List(ctx)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("list sessions failed", err), nil
	}
	slices.Sort(ids)
	for _, id := range ids {
		sess, err := s.sessions.Load(ctx, id)
		if err != nil {
			s.logger.Warn("MCP active_sessions: Session lookup failed", "user_id", id, "err", err)
			continue
		}
		// Finished between List and Load.
		if sess == nil {
			continue
		}
		out.Sessions = append(out.Sessions, SessionSummary{
			UserID:   id,
			Step:     sess.Step,
			TaskID:   sess.TaskID,
			Country:  sess.CountryName,
			Failures: sess.FailedClassifications,
		})
	}
	return mcp.NewToolResultStructuredOnly(out), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(FlowURI, "Intake conversation flow",
		mcp.WithResourceDescription("Mermaid diagram of the conversation steps"),
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      FlowURI,
				MIMEType: "text/plain",
				Text:     graph.GenerateMermaid(workflow.Flow(), nil),
			},
		}, nil
	})
}
