package model

type ProblemDifficulty string
type TopicStatus string

const (
	DifficultyEasy   ProblemDifficulty = "Easy"
	DifficultyMedium ProblemDifficulty = "Medium"
	DifficultyHard   ProblemDifficulty = "Hard"

	TopicIncomplete TopicStatus = "incomplete"
	TopicCompleted  TopicStatus = "completed"
)

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Subject struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CategoryID string    `json:"categoryId"`
	Category   *Category `json:"category,omitempty"`
	Topics     []Topic   `json:"topics,omitempty"`
}

// Topic is a lesson unit under a Subject. Status is the admin/manual flag,
// independent of any per-user completion state.
type Topic struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Slug      string      `json:"slug"`
	Content   string      `json:"content"`
	SubjectID string      `json:"subjectId"`
	Status    TopicStatus `json:"status"`
	Subject   *Subject    `json:"subject,omitempty"`
}

// Problem is a practice item (exercise) under a Topic.
type Problem struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	TopicID      string            `json:"topicId"`
	Difficulty   ProblemDifficulty `json:"difficulty"`
	Link         string            `json:"link,omitempty"`
	LeetcodeLink string            `json:"leetcodeLink,omitempty"`
	YtLink       string            `json:"ytLink,omitempty"`
	Topic        *Topic            `json:"topic,omitempty"`
}
