package feedback

// Item один отзыв в том виде, в котором его отдает бэкенд.
// Timestamp хранится строкой ISO-8601 без разбора.
type Item struct {
	Feedback  string `json:"feedback"`
	Timestamp string `json:"timestamp"`
	Username  string `json:"username"`
}

// Collection ответ GET /feedback. Разбиение на current/historical делает сервер
type Collection struct {
	Current    []Item `json:"current"`
	Historical []Item `json:"historical"`
}

// Submission тело POST /feedback
type Submission struct {
	Feedback string `json:"feedback"`
	Username string `json:"username"`
}
