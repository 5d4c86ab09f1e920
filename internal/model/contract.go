package model

import "time"

type Template struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

type Contract struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	TemplateID int64     `json:"template_id"`
	Title      string    `json:"title"`
	Fields     string    `json:"fields"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
