package dto

import (
	"time"

	"go-clinic-scheduler/internal/domain/entity"
)

// Request DTOs

type AuditLogListRequest struct {
	Action string `validate:"omitempty,max=100"`
	Page   int    `validate:"min=1"`
	Limit  int    `validate:"min=1,max=100"`
}

// Response DTOs

type AuditLogResponse struct {
	ID        int64         `json:"id"`
	User      *UserResponse `json:"user,omitempty"`
	Action    string        `json:"action"`
	Metadata  entity.JSON   `json:"metadata"`
	CreatedAt time.Time     `json:"created_at"`
}

type AuditLogListResponse struct {
	Logs  []AuditLogResponse `json:"logs"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
