// Package rpc exposes every operation as a remote-callable tool: POST
// /v1/tools/{name} with keyword arguments in the JSON body. The user_id
// argument is never taken from the body; it comes from the authenticated
// request context set by the auth middleware.
//
// A failed call always yields the uniform payload
//
//	{"status": "error", "kind": "<kind>", "message": "<reason>"}
//
// so callers can branch on kind without parsing message text.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rthakur/expenso/internal/errs"
	"github.com/rthakur/expenso/internal/middleware"
	"github.com/rthakur/expenso/internal/service"
	"github.com/rthakur/expenso/internal/storage"
)

// toolFunc handles one named operation. args is the raw JSON body.
type toolFunc func(ctx context.Context, userID string, args json.RawMessage) (any, error)

// Server dispatches named tool calls to the lifecycle managers.
type Server struct {
	groups   *service.GroupService
	members  *service.MemberService
	expenses *service.ExpenseService
	store    storage.Store
	tools    map[string]toolFunc
}

// NewServer creates a Server with every tool registered.
func NewServer(groups *service.GroupService, members *service.MemberService, expenses *service.ExpenseService, store storage.Store) *Server {
	s := &Server{
		groups:   groups,
		members:  members,
		expenses: expenses,
		store:    store,
	}
	s.tools = map[string]toolFunc{
		"add_expense":         s.addExpense,
		"list_expenses":       s.listExpenses,
		"summarize":           s.summarize,
		"delete_expense":      s.deleteExpense,
		"create_group":        s.createGroup,
		"list_groups":         s.listGroups,
		"get_group_details":   s.getGroupDetails,
		"update_group":        s.updateGroup,
		"delete_group":        s.deleteGroup,
		"add_group_member":    s.addGroupMember,
		"remove_group_member": s.removeGroupMember,
		"leave_group":         s.leaveGroup,
		"get_group_members":   s.getGroupMembers,
		"setup_database":      s.setupDatabase,
	}
	return s
}

// Routes registers the tool dispatch endpoint on the mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/tools/{tool}", s.handleTool)
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("tool")
	tool, ok := s.tools[name]
	if !ok {
		writeError(w, errs.NotFound("unknown tool %q", name))
		return
	}

	userID := middleware.GetUserID(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, errs.Validation("failed to read request body"))
		return
	}

	start := time.Now()
	result, err := tool(r.Context(), userID, body)
	toolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		kind := errs.KindOf(err)
		toolRequests.WithLabelValues(name, kind.String()).Inc()
		if kind == errs.KindStore || kind == 0 {
			slog.Error("tool failed", "tool", name, "user_id", userID, "error", err)
		} else {
			slog.Warn("tool rejected", "tool", name, "user_id", userID, "kind", kind.String(), "error", err)
		}
		writeError(w, err)
		return
	}

	toolRequests.WithLabelValues(name, "ok").Inc()
	writeJSON(w, http.StatusOK, result)
}

// decodeArgs unmarshals the keyword arguments. An empty body means no
// arguments, which is valid for tools that need none.
func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return errs.Validation("invalid arguments: %v", err)
	}
	return nil
}

func statusForKind(kind errs.Kind) int {
	switch kind {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindUnauthorized:
		return http.StatusForbidden
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindInvariant:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	message := err.Error()
	if kind == 0 {
		// Unclassified errors are treated as store failures and their
		// details kept out of the response.
		kind = errs.KindStore
		message = "internal error"
	}
	writeJSON(w, statusForKind(kind), map[string]string{
		"status":  "error",
		"kind":    kind.String(),
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		slog.Error("failed to encode response", "error", err)
	}
}
