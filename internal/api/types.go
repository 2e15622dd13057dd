package api

import "time"

// Role is the access level of a dashboard user.
type Role string

const (
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Identity represents the authenticated user's profile as returned by
// the identity endpoint. It is replaced wholesale on every fetch, never
// partially patched.
type Identity struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Role      Role       `json:"role"`
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// FullName returns "First Last" for display.
func (i Identity) FullName() string {
	if i.FirstName == "" {
		return i.LastName
	}
	if i.LastName == "" {
		return i.FirstName
	}
	return i.FirstName + " " + i.LastName
}

// Student is a student record.
type Student struct {
	ID          string     `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	Rank        string     `json:"rank"`
	Active      bool       `json:"active"`
	EnrolledAt  time.Time  `json:"enrolled_at"`
	LastGrading *time.Time `json:"last_grading,omitempty"`
}

// StudentInput carries the writable fields of a student record.
type StudentInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Rank      string `json:"rank,omitempty"`
	Active    *bool  `json:"active,omitempty"`
}

// Promotion is one belt progression event for a student.
type Promotion struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	FromRank   string    `json:"from_rank"`
	ToRank     string    `json:"to_rank"`
	ExaminedBy string    `json:"examined_by"`
	AwardedAt  time.Time `json:"awarded_at"`
}

// Technique is one catalog entry, keyed to the rank it is examined at.
type Technique struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Rank        string `json:"rank"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
}

// tokenResponse is the wire shape of an issued credential.
type tokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

// loginResponse is the wire shape of a successful login.
type loginResponse struct {
	tokenResponse
	User Identity `json:"user"`
}
