package kanban

import (
	"strings"

	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/erp/servicedesk/internal/domain/shared"
)

// UnlimitedWIP is the wip_limit sentinel for columns without a capacity cap
const UnlimitedWIP = -1

// ColumnRole decides what landing a card in a column means for the linked order.
// It is fixed at creation and independent of the column title.
type ColumnRole string

const (
	ColumnRoleNormal           ColumnRole = "normal"
	ColumnRoleCompletionSystem ColumnRole = "completion_system"
)

// IsValid checks if the role is a known value
func (r ColumnRole) IsValid() bool {
	return r == ColumnRoleNormal || r == ColumnRoleCompletionSystem
}

// Column is a board lane. Position is dense across the board.
type Column struct {
	shared.BaseEntity
	Title        string
	Position     int
	WipLimit     int
	Role         ColumnRole
	TargetStatus serviceorder.Status
}

// NewColumn validates and builds a column. Position is assigned by the reindexer.
func NewColumn(title string, wipLimit int, role ColumnRole, target serviceorder.Status) (*Column, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Column title is required")
	}
	if wipLimit < UnlimitedWIP {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "WIP limit must be -1 (unlimited) or zero or more")
	}
	if role == "" {
		role = ColumnRoleNormal
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid column role: "+string(role))
	}

	switch role {
	case ColumnRoleCompletionSystem:
		if target == "" {
			target = serviceorder.StatusFinished
		}
		if target != serviceorder.StatusFinished && target != serviceorder.StatusNotApproved {
			return nil, shared.NewDomainError(shared.CodeInvalidInput,
				"Completion columns can only target Finalizado or Não Aprovado")
		}
	default:
		target = ""
	}

	return &Column{
		BaseEntity:   shared.NewBaseEntity(),
		Title:        title,
		WipLimit:     wipLimit,
		Role:         role,
		TargetStatus: target,
	}, nil
}

// IsSystem reports whether the column carries automation semantics
func (c *Column) IsSystem() bool {
	return c.Role != ColumnRoleNormal
}

// IsUnlimited reports whether the column has no WIP cap
func (c *Column) IsUnlimited() bool {
	return c.WipLimit == UnlimitedWIP
}

// CanAccept reports whether one more card fits given the current count
func (c *Column) CanAccept(currentCount int) bool {
	return c.IsUnlimited() || currentCount < c.WipLimit
}

// Rename changes the display title
func (c *Column) Rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Column title is required")
	}
	c.Title = title
	c.Touch()
	return nil
}

// ChangeWipLimit sets a new cap. A cap below the cards already in the column is refused.
func (c *Column) ChangeWipLimit(limit, currentCount int) error {
	if limit < UnlimitedWIP {
		return shared.NewDomainError(shared.CodeInvalidInput, "WIP limit must be -1 (unlimited) or zero or more")
	}
	if limit != UnlimitedWIP && currentCount > limit {
		return shared.NewDomainError(shared.CodeWipLimitExceeded,
			"Column already holds more cards than the requested WIP limit")
	}
	c.WipLimit = limit
	c.Touch()
	return nil
}
