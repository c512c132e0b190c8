package courses

import "time"

type Course struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	LessonCount int       `json:"lessonCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Lesson struct {
	ID              string    `json:"id"`
	CourseID        string    `json:"courseId"`
	Title           string    `json:"title"`
	Position        int       `json:"position"`
	DurationMinutes int       `json:"durationMinutes"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Enrollment struct {
	ID                 string     `json:"id"`
	TenantID           string     `json:"tenantId"`
	UserID             string     `json:"userId"`
	CourseID           string     `json:"courseId"`
	Status             string     `json:"status"`
	ProgressPercentage float64    `json:"progressPercentage"`
	EnrolledAt         time.Time  `json:"enrolledAt"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	LastAccessedAt     *time.Time `json:"lastAccessedAt,omitempty"`
}

type LessonProgress struct {
	ID                 string     `json:"id"`
	EnrollmentID       string     `json:"enrollmentId"`
	LessonID           string     `json:"lessonId"`
	Status             string     `json:"status"`
	ProgressPercentage float64    `json:"progressPercentage"`
	TimeSpentMinutes   int        `json:"timeSpentMinutes"`
	LastPosition       int        `json:"lastPosition"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}
