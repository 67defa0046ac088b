package models

import "time"

// User is the authenticated account behind a session
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// DisplayName returns the full name, falling back to the username
func (u User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}

// Organization is the tenant that owns projects
type Organization struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Statistics is derived server-side from a project's tasks
type Statistics struct {
	TotalTasks           int     `json:"totalTasks"`
	CompletedTasks       int     `json:"completedTasks"`
	PendingTasks         int     `json:"pendingTasks"`
	CompletionPercentage float64 `json:"completionPercentage"`
}

// Project represents a project within an organization
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	DueDate     string        `json:"dueDate,omitempty"` // YYYY-MM-DD
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	Tasks       []Task        `json:"tasks,omitempty"`      // populated by the detail query
	Statistics  *Statistics   `json:"statistics,omitempty"` // nil until fetched
}

// Comment represents a comment on a task
type Comment struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	AuthorName  string    `json:"authorName"`
	AuthorEmail string    `json:"authorEmail,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Task represents a single task
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     string       `json:"dueDate,omitempty"`
	Order       int          `json:"order"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Comments    []Comment    `json:"comments,omitempty"`
}

// ProjectInput is a partial patch; nil fields are left unchanged
type ProjectInput struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *ProjectStatus `json:"status,omitempty"`
	DueDate     *string        `json:"dueDate,omitempty"` // "" clears
}

// TaskInput is a partial patch; nil fields are left unchanged
type TaskInput struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Status      *TaskStatus   `json:"status,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	DueDate     *string       `json:"dueDate,omitempty"`
}

// CommentInput carries a new comment
type CommentInput struct {
	Content     string `json:"content"`
	AuthorName  string `json:"authorName,omitempty"`
	AuthorEmail string `json:"authorEmail,omitempty"`
}

// Ptr returns a pointer to v, for building partial inputs
func Ptr[T any](v T) *T {
	return &v
}
