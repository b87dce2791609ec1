package kanban

import (
	"strings"
	"time"

	"github.com/erp/servicedesk/internal/domain/serviceorder"
	"github.com/erp/servicedesk/internal/domain/shared"
	"github.com/google/uuid"
)

// Card sits in exactly one column. ServiceOrderID is a lookup reference only;
// deleting the card never touches the order.
type Card struct {
	shared.BaseEntity
	ColumnID       uuid.UUID
	Position       int
	Title          string
	Description    string
	DueDate        *time.Time
	AssigneeID     *uuid.UUID
	Priority       serviceorder.Priority
	ServiceOrderID *uuid.UUID
	Tags           []string
}

// CardDetails holds the editable, non-positional fields of a card
type CardDetails struct {
	Title       string
	Description string
	DueDate     *time.Time
	AssigneeID  *uuid.UUID
	Priority    serviceorder.Priority
	Tags        []string
}

func (d CardDetails) normalize() (CardDetails, error) {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return d, shared.NewDomainError(shared.CodeInvalidInput, "Card title is required")
	}
	if d.Priority == "" {
		d.Priority = serviceorder.PriorityNormal
	}
	if !d.Priority.IsValid() {
		return d, shared.NewDomainError(shared.CodeInvalidInput, "Invalid priority: "+string(d.Priority))
	}
	d.Tags = serviceorder.NormalizeTags(d.Tags)
	return d, nil
}

// NewCard builds a card for a column. Position is assigned by the reindexer.
func NewCard(columnID uuid.UUID, details CardDetails, serviceOrderID *uuid.UUID) (*Card, error) {
	if columnID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Column is required")
	}
	d, err := details.normalize()
	if err != nil {
		return nil, err
	}
	if serviceOrderID != nil && *serviceOrderID == uuid.Nil {
		serviceOrderID = nil
	}
	return &Card{
		BaseEntity:     shared.NewBaseEntity(),
		ColumnID:       columnID,
		Title:          d.Title,
		Description:    d.Description,
		DueDate:        d.DueDate,
		AssigneeID:     d.AssigneeID,
		Priority:       d.Priority,
		ServiceOrderID: serviceOrderID,
		Tags:           d.Tags,
	}, nil
}

// UpdateDetails replaces the editable fields
func (c *Card) UpdateDetails(details CardDetails) error {
	d, err := details.normalize()
	if err != nil {
		return err
	}
	c.Title = d.Title
	c.Description = d.Description
	c.DueDate = d.DueDate
	c.AssigneeID = d.AssigneeID
	c.Priority = d.Priority
	c.Tags = d.Tags
	c.Touch()
	return nil
}

// Details returns the editable fields of the card
func (c *Card) Details() CardDetails {
	return CardDetails{
		Title:       c.Title,
		Description: c.Description,
		DueDate:     c.DueDate,
		AssigneeID:  c.AssigneeID,
		Priority:    c.Priority,
		Tags:        c.Tags,
	}
}

// HasOrder reports whether the card references a service order
func (c *Card) HasOrder() bool {
	return c.ServiceOrderID != nil
}
