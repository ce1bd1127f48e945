package model

// 管理员角色
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// AdminUser 管理后台账号 (admin_users 表)
type AdminUser struct {
	ID           string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Username     string `gorm:"type:varchar(64);not null;uniqueIndex" json:"username"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"` // 不返回密码
	Role         string `gorm:"type:varchar(16);not null;default:'admin'" json:"role"`
	IsActive     bool   `gorm:"not null" json:"is_active"`
	CreatedAt    int64  `gorm:"not null;autoCreateTime:milli" json:"created_at"`
	LastLogin    *int64 `json:"last_login,omitempty"`
}

func (AdminUser) TableName() string {
	return "admin_users"
}
