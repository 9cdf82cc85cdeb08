package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RequestStatus enum constants
const (
	StatusPending   = "pending"
	StatusValidated = "validated"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

// History action enum constants. The first five mirror the statuses a request
// moves through; the invoice actions are recorded by the system actor when a
// final invoice is attached or removed after approval.
const (
	ActionPending         = "pending"
	ActionValidated       = "validated"
	ActionApproved        = "approved"
	ActionRejected        = "rejected"
	ActionReturned        = "returned"
	ActionInvoiceAttached = "invoice_attached"
	ActionInvoiceRemoved  = "invoice_removed"
)

// Actor role labels recorded in history entries
const (
	ActorAccountant = "accountant"
	ActorDirector   = "director"
	ActorSystem     = "system"
)

// PurchaseRequest is a requester's ask to spend program funds, subject to
// accountant validation and director approval. Its history is an append-only
// ledger: entries are inserted in order and never updated or deleted.
type PurchaseRequest struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Amount          decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"amount"`
	Concept         string           `gorm:"type:varchar(255);not null" json:"concept"`
	ProgramID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"program_id"`
	Program         *Program         `gorm:"foreignKey:ProgramID" json:"program,omitempty"`
	Reason          string           `gorm:"type:text" json:"reason"`
	DraftInvoiceURL string           `gorm:"type:text" json:"draft_invoice_url,omitempty"`
	Status          string           `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedBy       uuid.UUID        `gorm:"type:uuid;not null;index" json:"created_by"`
	Requester       *User            `gorm:"foreignKey:CreatedBy" json:"requester,omitempty"`
	History         []RequestHistory `gorm:"foreignKey:RequestID" json:"history"`
	FinalInvoice    *FinalInvoice    `gorm:"foreignKey:RequestID" json:"final_invoice,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (r *PurchaseRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RequestHistory is one immutable entry in a request's audit ledger. Seq keeps
// insertion order stable independent of timestamp resolution.
type RequestHistory struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	Seq       int       `gorm:"not null" json:"seq"`
	At        time.Time `gorm:"not null" json:"at"`
	By        string    `gorm:"type:varchar(64);not null" json:"by"` // role label or user uuid
	Action    string    `gorm:"type:varchar(30);not null" json:"action"`
	Note      string    `gorm:"type:text" json:"note,omitempty"`
}

func (h *RequestHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// Transition describes one legal edge of the request lifecycle.
type Transition struct {
	Name          string // validate, return, approve, reject
	From          string
	To            string
	HistoryAction string
	ActorRole     string // role label recorded in history and required of the caller
	NoteRequired  bool
}

// Lifecycle transition names
const (
	TransitionValidate = "validate"
	TransitionReturn   = "return"
	TransitionApprove  = "approve"
	TransitionReject   = "reject"
)

// transitions is the exhaustive edge list of the request state machine.
// approved and rejected are terminal: no edge leaves them.
var transitions = []Transition{
	{Name: TransitionValidate, From: StatusPending, To: StatusValidated, HistoryAction: ActionValidated, ActorRole: ActorAccountant},
	{Name: TransitionReturn, From: StatusPending, To: StatusPending, HistoryAction: ActionReturned, ActorRole: ActorAccountant, NoteRequired: true},
	{Name: TransitionReturn, From: StatusValidated, To: StatusPending, HistoryAction: ActionReturned, ActorRole: ActorAccountant, NoteRequired: true},
	{Name: TransitionApprove, From: StatusValidated, To: StatusApproved, HistoryAction: ActionApproved, ActorRole: ActorDirector},
	{Name: TransitionReject, From: StatusValidated, To: StatusRejected, HistoryAction: ActionRejected, ActorRole: ActorDirector},
}

// FindTransition resolves the transition named by action from the given
// status. It is the only way to obtain a target status, so illegal moves are
// rejected here rather than discovered after a write.
func FindTransition(from, action string) (Transition, error) {
	for _, t := range transitions {
		if t.From == from && t.Name == action {
			return t, nil
		}
	}
	return Transition{}, fmt.Errorf("cannot %s a %s request", action, from)
}

// IsTerminalStatus reports whether no transition leaves the given status.
func IsTerminalStatus(status string) bool {
	return status == StatusApproved || status == StatusRejected
}

// ValidStatus reports whether s is one of the four resting statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusValidated, StatusApproved, StatusRejected:
		return true
	}
	return false
}
