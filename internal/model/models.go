package model

type ID = int64

// TimeLayout is the textual timestamp representation used everywhere in the
// store. It sorts lexicographically, which the year-prefix matching and the
// session expiry comparison rely on.
const TimeLayout = "2006-01-02 15:04:05"

type User struct {
	ID        ID      `json:"id" db:"id"`
	Username  string  `json:"username" db:"username"`
	Password  string  `json:"-" db:"password"`
	CreatedAt string  `json:"created_at" db:"created_at"`
	FullName  *string `json:"full_name,omitempty" db:"full_name"`
}

type ClientStatus string

const (
	StatusNew        ClientStatus = "New"
	StatusInProgress ClientStatus = "In Progress"
	StatusReview     ClientStatus = "Review"
	StatusCompleted  ClientStatus = "Completed"
	StatusCancelled  ClientStatus = "Cancelled"
)

func Statuses() []ClientStatus {
	return []ClientStatus{StatusNew, StatusInProgress, StatusReview, StatusCompleted, StatusCancelled}
}

func (s ClientStatus) Valid() bool {
	for _, known := range Statuses() {
		if s == known {
			return true
		}
	}
	return false
}

type Client struct {
	ID          ID      `json:"id" db:"id"`
	ClientID    *string `json:"client_id" db:"client_id"`
	DateCreated string  `json:"date_created" db:"date_created"`

	ProjectName   string       `json:"project_name" db:"project_name"`
	ClientContact string       `json:"client_contact" db:"client_contact"`
	TechnicalTask *string      `json:"technical_task" db:"technical_task"`
	Status        ClientStatus `json:"status" db:"status"`
	Price         *float64     `json:"price" db:"price"`
	DeadlineDays  *int64       `json:"deadline_days" db:"deadline_days"`
	Notes         *string      `json:"notes" db:"notes"`

	// DaysPassed is a projection of now - date_created in whole days,
	// refreshed before every read. Not authoritative state.
	DaysPassed int64 `json:"days_passed" db:"days_passed"`
}

type Session struct {
	ID        ID     `db:"id"`
	Token     string `db:"token"`
	UserID    ID     `db:"user_id"`
	CreatedAt string `db:"created_at"`
	ExpiresAt string `db:"expires_at"`
}
