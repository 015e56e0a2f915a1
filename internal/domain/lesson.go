package domain

// LessonDay is the content for one day of the Arduino course
type LessonDay struct {
	Day        string     `json:"day" yaml:"day"`
	Title      string     `json:"title" yaml:"title"`
	Content    string     `json:"content" yaml:"content"`
	Questions  []Question `json:"questions" yaml:"questions"`
	Assignment Assignment `json:"assignment" yaml:"assignment"`
}

// Question is a review question, optionally with a code snippet to read
type Question struct {
	Question string `json:"question" yaml:"question"`
	Code     string `json:"code,omitempty" yaml:"code"`
}

// Assignment is the hands-on task closing a lesson day
type Assignment struct {
	Task           string   `json:"task" yaml:"task"`
	Requirements   []string `json:"requirements" yaml:"requirements"`
	ExpectedOutput string   `json:"expectedOutput" yaml:"expected_output"`
}
