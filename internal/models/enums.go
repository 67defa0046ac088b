package models

// ProjectStatus is the lifecycle state of a project
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "PLANNING"
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectOnHold    ProjectStatus = "ON_HOLD"
	ProjectCompleted ProjectStatus = "COMPLETED"
	ProjectArchived  ProjectStatus = "ARCHIVED"
)

// ProjectStatuses lists project statuses in display order
var ProjectStatuses = []ProjectStatus{
	ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted, ProjectArchived,
}

var projectStatusLabels = map[ProjectStatus]string{
	ProjectPlanning:  "Planning",
	ProjectActive:    "Active",
	ProjectOnHold:    "On Hold",
	ProjectCompleted: "Completed",
	ProjectArchived:  "Archived",
}

func (s ProjectStatus) Label() string {
	if l, ok := projectStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

func (s ProjectStatus) Valid() bool {
	_, ok := projectStatusLabels[s]
	return ok
}

// TaskStatus is the workflow state of a task
type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskInReview   TaskStatus = "IN_REVIEW"
	TaskDone       TaskStatus = "DONE"
)

// TaskStatuses lists task statuses in workflow order
var TaskStatuses = []TaskStatus{TaskTodo, TaskInProgress, TaskInReview, TaskDone}

var taskStatusLabels = map[TaskStatus]string{
	TaskTodo:       "To Do",
	TaskInProgress: "In Progress",
	TaskInReview:   "In Review",
	TaskDone:       "Done",
}

func (s TaskStatus) Label() string {
	if l, ok := taskStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

func (s TaskStatus) Valid() bool {
	_, ok := taskStatusLabels[s]
	return ok
}

// Next returns the following status in workflow order, wrapping after Done
func (s TaskStatus) Next() TaskStatus {
	return cycle(TaskStatuses, s, 1)
}

// Prev returns the preceding status, wrapping before To Do
func (s TaskStatus) Prev() TaskStatus {
	return cycle(TaskStatuses, s, -1)
}

// TaskPriority is the urgency of a task
type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
	PriorityUrgent TaskPriority = "URGENT"
)

// TaskPriorities lists priorities from lowest to highest
var TaskPriorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

var taskPriorityLabels = map[TaskPriority]string{
	PriorityLow:    "Low",
	PriorityMedium: "Medium",
	PriorityHigh:   "High",
	PriorityUrgent: "Urgent",
}

func (p TaskPriority) Label() string {
	if l, ok := taskPriorityLabels[p]; ok {
		return l
	}
	return string(p)
}

func (p TaskPriority) Valid() bool {
	_, ok := taskPriorityLabels[p]
	return ok
}

// Next returns the following priority, wrapping after Urgent
func (p TaskPriority) Next() TaskPriority {
	return cycle(TaskPriorities, p, 1)
}

// Next returns the following project status, wrapping after Archived
func (s ProjectStatus) Next() ProjectStatus {
	return cycle(ProjectStatuses, s, 1)
}

func cycle[T comparable](values []T, cur T, dir int) T {
	for i, v := range values {
		if v == cur {
			return values[(i+dir+len(values))%len(values)]
		}
	}
	return values[0]
}
