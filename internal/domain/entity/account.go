package entity

import "time"

// Account cliente del MSP (dueño de activos, tickets y facturas).
type Account struct {
	ID           string
	Name         string
	BillingEmail string // vacío si el cliente no recibe facturas por correo
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Roles de usuario.
const (
	RoleAdmin  = "admin"
	RoleTech   = "tech"
	RoleClient = "client"
)

// User usuario del sistema; admin y tech son personal interno.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      string
	IsActive  bool
	CreatedAt time.Time
}

// IsStaff personal interno activo.
func (u *User) IsStaff() bool {
	return u.IsActive && (u.Role == RoleAdmin || u.Role == RoleTech)
}
