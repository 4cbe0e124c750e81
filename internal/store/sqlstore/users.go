package sqlstore

import "database/sql"

// Role is a position on spec.md §4.5's role ladder: guest < member <
// consultant < translator < manager < admin.
type Role string

const (
	RoleGuest      Role = "guest"
	RoleMember     Role = "member"
	RoleConsultant Role = "consultant"
	RoleTranslator Role = "translator"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
)

var roleRank = map[Role]int{
	RoleGuest:      0,
	RoleMember:     1,
	RoleConsultant: 2,
	RoleTranslator: 3,
	RoleManager:    4,
	RoleAdmin:      5,
}

// AtLeast reports whether r sits at or above floor on the role ladder.
func (r Role) AtLeast(floor Role) bool {
	return roleRank[r] >= roleRank[floor]
}

// User is one row of the users table.
type User struct {
	Username     string
	PasswordHash string
	Email        string
	Role         Role
	CreatedAt    int64
}

// CreateUser inserts a new user with an already-hashed password.
func (s *Store) CreateUser(username, passwordHash, email string, role Role, createdAt int64) error {
	return s.exec("insert user",
		`INSERT INTO users (username, password_hash, email, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		username, passwordHash, email, string(role), createdAt)
}

// GetUser fetches one user by username.
func (s *Store) GetUser(username string) (User, error) {
	var u User
	var role string
	err := s.scanRow("select user",
		`SELECT username, password_hash, email, role, created_at FROM users WHERE username = ?`,
		[]any{username}, &u.Username, &u.PasswordHash, &u.Email, &role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return User{}, nil
	}
	if err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	return u, nil
}

// SetUserRole updates a user's role, for manager/admin promotions.
func (s *Store) SetUserRole(username string, role Role) error {
	return s.exec("update user role", `UPDATE users SET role = ? WHERE username = ?`, string(role), username)
}

// UserExists reports whether username has a row in users.
func (s *Store) UserExists(username string) (bool, error) {
	u, err := s.GetUser(username)
	if err != nil {
		return false, err
	}
	return u.Username != "", nil
}
