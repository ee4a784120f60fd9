// Package mcp exposes the chat widget as Model Context Protocol tools so an
// agent can walk the conversation graph.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/carpintaria"
	"github.com/aretw0/carpintaria/internal/logging"
	"github.com/aretw0/carpintaria/pkg/adapters/memory"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/ports"
	"github.com/aretw0/carpintaria/pkg/runner"
	"github.com/aretw0/carpintaria/pkg/session"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource holding the conversation graph.
const GraphURI = "carpintaria://graph"

// ChatResponse mirrors the HTTP step response.
type ChatResponse struct {
	SessionID     string                    `json:"session_id" jsonschema_description:"Session to pass to later calls"`
	State         *domain.ConversationState `json:"state" jsonschema_description:"The conversation after the call"`
	Actions       []domain.ActionRequest    `json:"actions,omitempty" jsonschema_description:"Effects the host should perform (OPEN_WINDOW, NAVIGATE)"`
	TypingDelayMs int64                     `json:"typing_delay_ms,omitempty" jsonschema_description:"Delay a UI would animate before the last bot message"`
}

type openArgs struct {
	SessionID string `json:"session_id"`
}

type selectArgs struct {
	SessionID string `json:"session_id"`
	Index     int    `json:"index"`
}

type messageArgs struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// Server wraps the dialogue engine and exposes it as an MCP Server.
type Server struct {
	engine    ports.DialogueEngine
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

type Option func(*Server)

func WithSessions(m *session.Manager) Option {
	return func(s *Server) {
		s.sessions = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine ports.DialogueEngine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessions == nil {
		s.sessions = session.NewManager(memory.NewStore(), session.WithLogger(s.logger))
	}
	s.mcpServer = server.NewMCPServer("carpintaria-mcp", strings.TrimSpace(carpintaria.Version),
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("open_chat",
		mcp.WithDescription("Open the chat widget. Starts a new session when session_id is omitted; reopening resumes the transcript."),
		mcp.WithString("session_id", mcp.Description("Existing session (optional)")),
		mcp.WithOutputSchema[ChatResponse](),
	), mcp.NewStructuredToolHandler(s.handleOpen))

	s.mcpServer.AddTool(mcp.NewTool("select_option",
		mcp.WithDescription("Select one of the currently visible options by its zero-based index."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session returned by open_chat")),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based option index"), mcp.Min(0)),
		mcp.WithOutputSchema[ChatResponse](),
	), mcp.NewStructuredToolHandler(s.handleSelect))

	s.mcpServer.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send free text. The bot only understands the options and answers with a fixed deflection."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session returned by open_chat")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Message text")),
		mcp.WithOutputSchema[ChatResponse](),
	), mcp.NewStructuredToolHandler(s.handleMessage))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the full conversation graph for introspection."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := json.Marshal(s.engine.Graph())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode graph: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func (s *Server) handleOpen(ctx context.Context, request mcp.CallToolRequest, args openArgs) (ChatResponse, error) {
	id := args.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	return s.transition(ctx, id, true, func(state *domain.ConversationState) (*ports.Step, error) {
		return s.engine.Open(ctx, state)
	})
}

func (s *Server) handleSelect(ctx context.Context, request mcp.CallToolRequest, args selectArgs) (ChatResponse, error) {
	if err := requireSessionID(args.SessionID); err != nil {
		return ChatResponse{}, err
	}
	return s.transition(ctx, args.SessionID, false, func(state *domain.ConversationState) (*ports.Step, error) {
		return s.engine.Select(ctx, state, args.Index)
	})
}

func (s *Server) handleMessage(ctx context.Context, request mcp.CallToolRequest, args messageArgs) (ChatResponse, error) {
	if err := requireSessionID(args.SessionID); err != nil {
		return ChatResponse{}, err
	}
	clean, err := runner.SanitizeInput(args.Text)
	if err != nil {
		s.logger.Warn("MCP send_message: input rejected", "error", err, "size", len(args.Text))
		return ChatResponse{}, fmt.Errorf("input rejected: %w", err)
	}
	return s.transition(ctx, args.SessionID, false, func(state *domain.ConversationState) (*ports.Step, error) {
		return s.engine.Submit(ctx, state, clean)
	})
}

func requireSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session_id is required")
	}
	return nil
}

// transition runs fn under the session lock. Unless create is set, the
// session must already exist.
func (s *Server) transition(ctx context.Context, id string, create bool, fn func(*domain.ConversationState) (*ports.Step, error)) (ChatResponse, error) {
	run := s.sessions.TransitionExisting
	if create {
		run = s.sessions.Transition
	}
	res, err := run(ctx, s.engine, id, fn)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return ChatResponse{}, fmt.Errorf("session %s: %w", id, err)
		}
		return ChatResponse{}, err
	}
	return ChatResponse{
		SessionID:     id,
		State:         res.State,
		Actions:       res.Actions,
		TypingDelayMs: res.TypingDelay.Milliseconds(),
	}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Conversation Graph",
		mcp.WithMIMEType("application/json"),
	), s.readGraph)
}

func (s *Server) readGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(s.engine.Graph())
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GraphURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
