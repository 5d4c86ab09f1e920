package store

import (
	"database/sql"
	"fmt"

	"github.com/rbhagat/legalease/internal/model"
)

type ContractStore struct {
	db *sql.DB
}

func NewContractStore(db *sql.DB) *ContractStore {
	return &ContractStore{db: db}
}

func scanContract(scanner interface{ Scan(...any) error }) (*model.Contract, error) {
	var c model.Contract
	err := scanner.Scan(
		&c.ID, &c.UserID, &c.TemplateID, &c.Title, &c.Fields, &c.Content,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const contractCols = `id, user_id, template_id, title, fields, content, created_at, updated_at`

func (s *ContractStore) Create(userID, templateID int64, title, fields, content string) (*model.Contract, error) {
	result, err := s.db.Exec(
		`INSERT INTO contracts (user_id, template_id, title, fields, content) VALUES (?, ?, ?, ?, ?)`,
		userID, templateID, title, fields, content,
	)
	if err != nil {
		return nil, fmt.Errorf("insert contract: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.getByID(id)
}

func (s *ContractStore) getByID(id int64) (*model.Contract, error) {
	row := s.db.QueryRow(`SELECT `+contractCols+` FROM contracts WHERE id = ?`, id)
	c, err := scanContract(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contract: %w", err)
	}
	return c, nil
}

// GetForUser returns the contract only when it belongs to userID, so callers
// cannot distinguish another user's contract from a missing one.
func (s *ContractStore) GetForUser(id, userID int64) (*model.Contract, error) {
	row := s.db.QueryRow(`SELECT `+contractCols+` FROM contracts WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanContract(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get contract for user: %w", err)
	}
	return c, nil
}

func (s *ContractStore) ListForUser(userID int64) ([]model.Contract, error) {
	rows, err := s.db.Query(
		`SELECT `+contractCols+` FROM contracts WHERE user_id = ? ORDER BY updated_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []model.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		contracts = append(contracts, *c)
	}
	return contracts, rows.Err()
}

func (s *ContractStore) Update(id, userID int64, title, fields, content string) (*model.Contract, error) {
	_, err := s.db.Exec(
		`UPDATE contracts SET title = ?, fields = ?, content = ?, updated_at = datetime('now') WHERE id = ? AND user_id = ?`,
		title, fields, content, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update contract: %w", err)
	}
	return s.GetForUser(id, userID)
}

func (s *ContractStore) Delete(id, userID int64) error {
	_, err := s.db.Exec(`DELETE FROM contracts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete contract: %w", err)
	}
	return nil
}

// Count returns the total number of contracts across all users.
func (s *ContractStore) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM contracts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count contracts: %w", err)
	}
	return n, nil
}

// TemplateUsage reports how many contracts were generated from each template.
func (s *ContractStore) TemplateUsage() (map[int64]int64, error) {
	rows, err := s.db.Query(`SELECT template_id, COUNT(*) FROM contracts GROUP BY template_id`)
	if err != nil {
		return nil, fmt.Errorf("template usage: %w", err)
	}
	defer rows.Close()

	usage := make(map[int64]int64)
	for rows.Next() {
		var templateID, count int64
		if err := rows.Scan(&templateID, &count); err != nil {
			return nil, fmt.Errorf("scan template usage: %w", err)
		}
		usage[templateID] = count
	}
	return usage, rows.Err()
}
