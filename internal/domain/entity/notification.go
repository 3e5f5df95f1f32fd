package entity

import "time"

// Prioridades de notificación.
const (
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Notification aviso interno para un usuario del personal.
type Notification struct {
	ID        string
	UserID    string
	Subject   string
	Message   string
	Link      string
	Priority  string
	CreatedAt time.Time
	ReadAt    *time.Time
}
