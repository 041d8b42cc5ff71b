package model

import "time"

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressAttempted  ProgressStatus = "attempted"
	ProgressCompleted  ProgressStatus = "completed"
)

// CourseAssignment grants a user access to a subject. Legacy read path next to
// User.AssignedSubjects; topic-scoped rows are written by the topic content replace.
type CourseAssignment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	SubjectID  *string   `json:"subjectId,omitempty"`
	TopicID    *string   `json:"topicId,omitempty"`
	AssignedAt time.Time `json:"assignedAt"`
	Subject    *Subject  `json:"subject,omitempty"`
}

// UserProgress is the legacy per-subject/topic/problem record, kept for the
// dashboard resume pointer. At most one row per (user, problem).
type UserProgress struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	SubjectID   string         `json:"subjectId"`
	TopicID     *string        `json:"topicId,omitempty"`
	ProblemID   *string        `json:"problemId,omitempty"`
	Status      ProgressStatus `json:"status"`
	LastVisited time.Time      `json:"lastVisited"`
}

// UserExerciseProgress is the canonical per-(user, exercise) record.
type UserExerciseProgress struct {
	ID         string         `json:"id"`
	UserID     string         `json:"userId"`
	ExerciseID string         `json:"exerciseId"`
	Answer     *string        `json:"answer,omitempty"`
	Status     ProgressStatus `json:"status"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	User       *User          `json:"user,omitempty"`
	Exercise   *Problem       `json:"exercise,omitempty"`
}
