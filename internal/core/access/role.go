package access

import "strings"

// Role は利用者の権限ロールです。
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// ParseRole は文字列をロールに変換します。
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if role.rank() == 0 {
		return "", ErrInvalidRole
	}
	return role, nil
}

// Valid は定義済みロールか判定します。
func (r Role) Valid() bool {
	return r.rank() > 0
}

// AtLeast は r が min 以上の権限を持つか判定します。
func (r Role) AtLeast(min Role) bool {
	return r.rank() > 0 && r.rank() >= min.rank()
}

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleManager:
		return 2
	case RoleEmployee:
		return 1
	default:
		return 0
	}
}
