package store

import (
	"database/sql"
	"fmt"

	"github.com/rbhagat/legalease/internal/model"
)

type TemplateStore struct {
	db *sql.DB
}

func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

func scanTemplate(scanner interface{ Scan(...any) error }) (*model.Template, error) {
	var t model.Template
	err := scanner.Scan(&t.ID, &t.Name, &t.Category, &t.Description, &t.Body, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const templateCols = `id, name, category, description, body, created_at`

func (s *TemplateStore) Create(name, category, description, body string) (*model.Template, error) {
	result, err := s.db.Exec(
		`INSERT INTO templates (name, category, description, body) VALUES (?, ?, ?, ?)`,
		name, category, description, body,
	)
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TemplateStore) GetByID(id int64) (*model.Template, error) {
	row := s.db.QueryRow(`SELECT `+templateCols+` FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (s *TemplateStore) List() ([]model.Template, error) {
	rows, err := s.db.Query(`SELECT ` + templateCols + ` FROM templates ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []model.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func (s *TemplateStore) Update(id int64, name, category, description, body string) (*model.Template, error) {
	_, err := s.db.Exec(
		`UPDATE templates SET name = ?, category = ?, description = ?, body = ? WHERE id = ?`,
		name, category, description, body, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	return s.GetByID(id)
}

func (s *TemplateStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}
