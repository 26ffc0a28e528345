package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rthakur/expenso/internal/models"
	"github.com/rthakur/expenso/internal/service"
)

// Wire documents. Field names follow the persisted record layout so
// clients see the same attribute sets the data model defines.

type expenseDoc struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	GroupID     string          `json:"group_id,omitempty"`
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Note        string          `json:"note"`
	CreatedAt   int64           `json:"created_at"`
}

type categoryDoc struct {
	Category    string          `json:"category"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Count       int             `json:"count"`
}

type groupDoc struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	GroupType   string `json:"group_type"`
	CreatedBy   string `json:"created_by"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

type groupSummaryDoc struct {
	groupDoc
	MemberCount int    `json:"member_count"`
	YourRole    string `json:"your_role"`
}

type groupDetailsDoc struct {
	groupDoc
	Members     []memberDoc `json:"members"`
	MemberCount int         `json:"member_count"`
	YourRole    string      `json:"your_role"`
}

type memberDoc struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"full_name"`
	Role        string `json:"role"`
	JoinedAt    int64  `json:"joined_at"`
	IsYou       bool   `json:"is_you"`
}

func toExpenseDoc(e *models.Expense) expenseDoc {
	return expenseDoc{
		ID:          e.ID,
		UserID:      e.UserID,
		GroupID:     e.GroupID,
		Date:        e.Date,
		Amount:      e.Amount,
		Category:    e.Category,
		Subcategory: e.Subcategory,
		Note:        e.Note,
		CreatedAt:   e.CreatedAt,
	}
}

func toGroupDoc(g *models.Group) groupDoc {
	return groupDoc{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		GroupType:   string(g.Type),
		CreatedBy:   g.CreatedBy,
		IsActive:    g.IsActive,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func toMemberDoc(m models.Member) memberDoc {
	return memberDoc{
		UserID:      m.UserID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		Role:        string(m.Role),
		JoinedAt:    m.JoinedAt,
		IsYou:       m.IsYou,
	}
}

// --- Expense ledger tools ---

func (s *Server) addExpense(ctx context.Context, userID string, args json.RawMessage) (any, error) {
	var in struct {
		Date        string          `json:"date"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		Subcategory string          `json:"subcategory"`
		Note        string          `json:"note"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	e, err := s.expenses.Add(ctx, userID, service.AddExpenseInput{
		Date:        in.Date,
		Amount:      in.Amount,
		Category:    in.Category,
		Subcategory: in.Subcategory,
		Note:        in.Note,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "success", "id": e.ID}, nil
}

func (s *Server) listExpenses(ctx context.Context, userID string, args json.RawMessage) (any, error) {
	var in struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	expenses, err := s.expenses.List(ctx, userID, in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	docs := make([]expenseDoc, len(expenses))
	for i, e := range expenses {
		docs[i] = toExpenseDoc(e)
	}
	return docs, nil
}

func (s *Server) summarize(ctx context.Context, userID string, args json.RawMessage) (any, error) {
	var in struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		Category  string `json:"category"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	summaries, err := s.expenses.Summarize(ctx, userID, in.StartDate, in.EndDate, in.Category)
	if err != nil {
		return nil, err
	}
	docs := make([]categoryDoc, len(summaries))
	for i, c := range summaries {
		docs[i] = categoryDoc{Category: c.Category, TotalAmount: c.TotalAmount, Count: c.Count}
	}
	return docs, nil
}

func (s *Server) deleteExpense(ctx context.Context, userID string, args json.RawMessage) (any, error) {
	var in struct {
		ExpenseID string `json:"expense_id"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	if err := s.expenses.Delete(ctx, userID, in.ExpenseID); err != nil {
		return nil, err
	}
	return map[string]any{"status": "success", "message": "expense deleted"}, nil
}

// --- Group lifecycle tools ---

func (s *Server) createGroup(ctx context.Context, userID string, args json.RawMessage) (any, error) {
	var in struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	group, err := s.groups.Create(ctx, userID, in.Name, in.Description)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":   "success",
		"group_id": group.ID,
		"group":    toGroupDoc(group),
		"message":  fmt.Sprintf("group %q created successfully", group.Name),
	}, nil
}

func (s *Server) listGroups(ctx context.Context, userID string, args json.RawMessage) (any, error) {
	summaries, err := s.groups.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	docs := make([]groupSummaryDoc, len(summaries))
	for i, g := range summaries {
		docs[i] = groupSummaryDoc{
			groupDoc:    toGroupDoc(&g.Group),
			MemberCount: g.MemberCount,
			YourRole:    string(g.YourRole),
		}
	}
	return docs, nil
}

func (s *Server) getGroupDetails(ctx context.Context, userID string, args json.RawMessage) (any, error) {
	var in struct {
		GroupID string `json:"group_id"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	details, err := s.groups.Get(ctx, userID, in.GroupID)
	if err != nil {
		return nil, err
	}
	members := make([]memberDoc, len(details.Members))
	for i, m := range details.Members {
		members[i] = toMemberDoc(m)
	}
	return groupDetailsDoc{
		groupDoc:    toGroupDoc(&details.Group),
		Members:     members,
		MemberCount: details.MemberCount,
		YourRole:    string(details.YourRole),
	}, nil
}

func (s *Server) updateGroup(ctx context.Context, userID string, args json.RawMessage) (any, error) {
	var in struct {
		GroupID     string  `json:"group_id"`
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	group, err := s.groups.Update(ctx, userID, in.GroupID, in.Name, in.Description)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":  "success",
		"message": "group updated successfully",
		"group":   toGroupDoc(group),
	}, nil
}

func (s *Server) deleteGroup(ctx context.Context, userID string, args json.RawMessage) (any, error) {
	var in struct {
		GroupID string `json:"group_id"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	if err := s.groups.Delete(ctx, userID, in.GroupID); err != nil {
		return nil, err
	}
	return map[string]any{"status": "success", "message": "group deleted successfully"}, nil
}

// --- Membership lifecycle tools ---

func (s *Server) addGroupMember(ctx context.Context, userID string, args json.RawMessage) (any, error) {
	var in struct {
		GroupID     string `json:"group_id"`
		MemberEmail string `json:"member_email"`
		Role        string `json:"role"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	member, err := s.members.Add(ctx, userID, in.GroupID, in.MemberEmail, models.Role(in.Role))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":  "success",
		"message": fmt.Sprintf("user %q added to group as %s", member.Email, member.Role),
		"member":  toMemberDoc(*member),
	}, nil
}

func (s *Server) removeGroupMember(ctx context.Context, userID string, args json.RawMessage) (any, error) {
	var in struct {
		GroupID      string `json:"group_id"`
		MemberUserID string `json:"member_user_id"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	if err := s.members.Remove(ctx, userID, in.GroupID, in.MemberUserID); err != nil {
		return nil, err
	}
	return map[string]any{"status": "success", "message": "member removed from group"}, nil
}

func (s *Server) leaveGroup(ctx context.Context, userID string, args json.RawMessage) (any, error) {
	var in struct {
		GroupID string `json:"group_id"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	if err := s.members.Leave(ctx, userID, in.GroupID); err != nil {
		return nil, err
	}
	return map[string]any{"status": "success", "message": "you have left the group"}, nil
}

func (s *Server) getGroupMembers(ctx context.Context, userID string, args json.RawMessage) (any, error) {
	var in struct {
		GroupID string `json:"group_id"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	roster, err := s.members.List(ctx, userID, in.GroupID)
	if err != nil {
		return nil, err
	}
	docs := make([]memberDoc, len(roster))
	for i, m := range roster {
		docs[i] = toMemberDoc(m)
	}
	return docs, nil
}

// --- Provisioning ---

func (s *Server) setupDatabase(ctx context.Context, userID string, args json.RawMessage) (any, error) {
	if err := s.store.Setup(ctx); err != nil {
		return nil, err
	}
	return map[string]any{"status": "success", "message": "database initialized successfully"}, nil
}
