package db

import (
	"database/sql"
)

type AttendanceSnapshot struct {
	Username    string
	SubjectCode string
	Percentage  float64
	UpdatedAt   int64
}

type Notification struct {
	ID            string
	Username      string
	SubjectCode   string
	SubjectName   string
	OldPercentage float64
	NewPercentage float64
	CreatedAt     int64
	DeliveredAt   sql.NullInt64
}

type Subject struct {
	SubjectCode string
	SubjectName string
	Alias       string
}

type User struct {
	Username string
	Password string
	Email    string
}
