// Package api exposes the HTTP surface: the SSE chat endpoint, the model
// catalogue, health, direct file access and test generation. Handlers stay
// thin; request semantics live in the orchestrator, dispatcher and tool
// packages.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"goa.design/clue/log"

	"veltris.dev/codex/chat"
	"veltris.dev/codex/orchestrator"
	"veltris.dev/codex/provider"
	"veltris.dev/codex/stream"
	"veltris.dev/codex/tools/testgen"
)

// Server bundles the handler dependencies.
type Server struct {
	orch       *orchestrator.Orchestrator
	dispatcher provider.ToolDispatcher
}

// New builds the HTTP server facade.
func New(orch *orchestrator.Orchestrator, dispatcher provider.ToolDispatcher) *Server {
	return &Server{orch: orch, dispatcher: dispatcher}
}

// Handler assembles the chi router. logCtx carries the logger every request
// context is derived from.
func (s *Server) Handler(logCtx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(log.HTTP(logCtx))
	r.Use(requestID)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/models", s.handleModels)
		r.Get("/health", s.handleHealth)
		r.Route("/files", func(r chi.Router) {
			r.Get("/tree", s.handleFileTree)
			r.Get("/content", s.handleFileContent)
			r.Post("/write", s.handleFileWrite)
		})
		r.Post("/tests/generate", s.handleTestGenerate)
	})
	return r
}

// requestID tags every request context with a fresh identifier for log
// correlation.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := log.With(r.Context(), log.KV{K: "request_id", V: uuid.NewString()})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// handleChat runs one chat request and streams normalized events as
// data-only server-sent messages.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := s.orch.Run(ctx, &req)
	if err != nil {
		if errors.Is(err, orchestrator.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		if err := writeSSE(w, flusher, ev); err != nil {
			// Client is gone; cancelled context stops the upstream.
			log.Debugf(ctx, "sse write aborted: %v", err)
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev stream.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// handleModels lists the model catalogue with live availability flags.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": s.orch.Models(r.Context())})
}

// handleHealth reports aggregate service health. Unhealthy maps to 503 so
// load balancers can act on the code alone.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.orch.HealthCheck(r.Context())
	code := http.StatusOK
	if h.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, h)
}

// handleFileTree routes directory listing through the dispatcher so the
// sandbox invariants apply exactly as they do for model-invoked calls.
func (s *Server) handleFileTree(w http.ResponseWriter, r *http.Request) {
	wd := r.URL.Query().Get("working_directory")
	params := map[string]any{}
	if p := r.URL.Query().Get("path"); p != "" {
		params["path"] = p
	}
	s.dispatchToResponse(w, r, "list_directory", params, wd)
}

func (s *Server) handleFileContent(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path query parameter is required")
		return
	}
	wd := r.URL.Query().Get("working_directory")
	s.dispatchToResponse(w, r, "read_file", map[string]any{"absolute_path": path}, wd)
}

func (s *Server) handleFileWrite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path             string `json:"path"`
		Content          string `json:"content"`
		WorkingDirectory string `json:"working_directory"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if body.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	params := map[string]any{"file_path": body.Path, "content": body.Content}
	s.dispatchToResponse(w, r, "write_file", params, body.WorkingDirectory)
}

// dispatchToResponse runs one tool call and writes its envelope result. Tool
// failures surface as 400s with the envelope's error string: the dispatcher
// already folded validation and sandbox violations into it.
func (s *Server) dispatchToResponse(w http.ResponseWriter, r *http.Request, tool string, params map[string]any, workingDir string) {
	var chatCtx *chat.Context
	if workingDir != "" {
		chatCtx = &chat.Context{WorkingDirectory: workingDir}
	}
	env := s.dispatcher.Dispatch(r.Context(), tool, params, chatCtx)
	if !env.Success {
		writeError(w, http.StatusBadRequest, env.Error)
		return
	}
	writeJSON(w, http.StatusOK, env.Result)
}

// handleTestGenerate synthesizes a test suite for one source file. When the
// body carries no code content, the file is read through the dispatcher
// under the same sandbox rules as every other file access.
func (s *Server) handleTestGenerate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FilePath            string   `json:"file_path"`
		CodeContent         string   `json:"code_content"`
		TestTypes           []string `json:"test_types"`
		Framework           string   `json:"framework"`
		CoverageTarget      float64  `json:"coverage_target"`
		MockExternal        bool     `json:"mock_external"`
		IncludeEdgeCases    bool     `json:"include_edge_cases"`
		MaxTestsPerFunction int      `json:"max_tests_per_function"`
		WorkingDirectory    string   `json:"working_directory"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if body.FilePath == "" {
		writeError(w, http.StatusBadRequest, "file_path is required")
		return
	}
	if body.CodeContent == "" {
		if body.WorkingDirectory == "" {
			writeError(w, http.StatusBadRequest, "code_content or working_directory is required")
			return
		}
		env := s.dispatcher.Dispatch(r.Context(), "read_file",
			map[string]any{"absolute_path": body.FilePath},
			&chat.Context{WorkingDirectory: body.WorkingDirectory})
		if !env.Success {
			writeError(w, http.StatusBadRequest, env.Error)
			return
		}
		if result, ok := env.Result.(map[string]any); ok {
			body.CodeContent, _ = result["content"].(string)
		}
		if body.CodeContent == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("file %s is empty or unreadable", body.FilePath))
			return
		}
	}

	suite := testgen.Generate(testgen.Params{
		FilePath:            body.FilePath,
		CodeContent:         body.CodeContent,
		TestTypes:           body.TestTypes,
		Framework:           body.Framework,
		CoverageTarget:      body.CoverageTarget,
		MockExternal:        body.MockExternal,
		IncludeEdgeCases:    body.IncludeEdgeCases,
		MaxTestsPerFunction: body.MaxTestsPerFunction,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "test_suite": suite})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
