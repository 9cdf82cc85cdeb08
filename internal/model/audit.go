package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateRequest   = "CREATE_REQUEST"
	ActionValidateRequest = "VALIDATE_REQUEST"
	ActionReturnRequest   = "RETURN_REQUEST"
	ActionApproveRequest  = "APPROVE_REQUEST"
	ActionRejectRequest   = "REJECT_REQUEST"
	ActionAttachInvoice   = "ATTACH_INVOICE"
	ActionDetachInvoice   = "DETACH_INVOICE"
	ActionCreateProgram   = "CREATE_PROGRAM"
	ActionUpdateProgram   = "UPDATE_PROGRAM"
	ActionDeleteProgram   = "DELETE_PROGRAM"
	ActionCreateUser      = "CREATE_USER"
	ActionUpdateUser      = "UPDATE_USER"
	ActionDeleteUser      = "DELETE_USER"
	ActionUpdateRolePerms = "UPDATE_ROLE_PERMISSIONS"
)

// AuditLog tracks Who, What, and When for critical system changes. This is
// the platform-wide trail; each request additionally keeps its own
// RequestHistory ledger.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated actor
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
