package identity

import "time"

type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	Plan      string    `json:"plan"`
	MaxUsers  int       `json:"maxUsers"`
	CreatedAt time.Time `json:"createdAt"`
}

type User struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenantId"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	EmployeeNo  string     `json:"employeeNo,omitempty"`
	Position    string     `json:"position,omitempty"`
	ManagerID   string     `json:"managerId,omitempty"`
	Status      string     `json:"status"`
	HireDate    *time.Time `json:"hireDate,omitempty"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type Role struct {
	ID          string   `json:"id"`
	TenantID    string   `json:"tenantId"`
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Permissions []string `json:"permissions"`
}

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)
