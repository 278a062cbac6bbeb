package store

import (
	"database/sql"
	"fmt"

	"github.com/ferncreek/chorewheel/internal/model"
)

type ChildStore struct {
	db *sql.DB
}

func NewChildStore(db *sql.DB) *ChildStore {
	return &ChildStore{db: db}
}

const childCols = `id, household_id, name, color, avatar_emoji, pin IS NOT NULL, sort_order, created_at, updated_at`

func scanChild(scanner interface{ Scan(...any) error }) (*model.Child, error) {
	var c model.Child
	err := scanner.Scan(
		&c.ID, &c.HouseholdID, &c.Name, &c.Color, &c.AvatarEmoji,
		&c.HasPIN, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ChildStore) Create(householdID int64, name, color, avatarEmoji string) (*model.Child, error) {
	var maxOrder int
	err := s.db.QueryRow(
		`SELECT COALESCE(MAX(sort_order), -1) FROM children WHERE household_id = ?`,
		householdID,
	).Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("query max sort_order: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO children (household_id, name, color, avatar_emoji, sort_order) VALUES (?, ?, ?, ?, ?)`,
		householdID, name, color, avatarEmoji, maxOrder+1,
	)
	if err != nil {
		return nil, fmt.Errorf("insert child: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChildStore) GetByID(id int64) (*model.Child, error) {
	row := s.db.QueryRow(`SELECT `+childCols+` FROM children WHERE id = ?`, id)
	c, err := scanChild(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get child: %w", err)
	}
	return c, nil
}

func (s *ChildStore) ListByHousehold(householdID int64) ([]model.Child, error) {
	rows, err := s.db.Query(
		`SELECT `+childCols+` FROM children WHERE household_id = ? ORDER BY sort_order ASC, name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var children []model.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}

func (s *ChildStore) Update(id int64, name, color, avatarEmoji string) (*model.Child, error) {
	_, err := s.db.Exec(
		`UPDATE children SET name = ?, color = ?, avatar_emoji = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, color, avatarEmoji, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update child: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChildStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM children WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	return nil
}

func (s *ChildStore) SetPIN(id int64, pinHash string) error {
	_, err := s.db.Exec(
		`UPDATE children SET pin = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		pinHash, id,
	)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *ChildStore) ClearPIN(id int64) error {
	_, err := s.db.Exec(
		`UPDATE children SET pin = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("clear pin: %w", err)
	}
	return nil
}

// GetPINHash returns the stored bcrypt hash, or "" when no PIN is set.
func (s *ChildStore) GetPINHash(id int64) (string, error) {
	var hash sql.NullString
	err := s.db.QueryRow(`SELECT pin FROM children WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get pin hash: %w", err)
	}
	return hash.String, nil
}
