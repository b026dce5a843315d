package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/godilite/review-insights/internal/repository/models"
	"github.com/google/uuid"
)

// Schema creates the tables used by ReviewRepository. Statements are
// idempotent so they can run on every start.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS departments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		custom INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		agent_key TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		department_id TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS agent_overrides (
		agent_id TEXT PRIMARY KEY,
		hidden INTEGER NOT NULL DEFAULT 0,
		department_id TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id TEXT PRIMARY KEY,
		external_id TEXT NOT NULL DEFAULT '',
		agent_id TEXT NOT NULL,
		agent_key TEXT NOT NULL DEFAULT '',
		department_id TEXT NOT NULL,
		rating INTEGER NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		review_timestamp TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_agent ON reviews(agent_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_timestamp ON reviews(review_timestamp)`,
}

type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Migrate applies Schema.
func (s *ReviewRepository) Migrate(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ReplaceReviews swaps the whole review set in one transaction. A failed
// insert, including a duplicate ID, leaves the previous set in place.
func (s *ReviewRepository) ReplaceReviews(ctx context.Context, reviews []models.Review) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ReplaceReviews: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reviews`); err != nil {
		return fmt.Errorf("clear reviews: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reviews
			(id, external_id, agent_id, agent_key, department_id, rating, comment, review_timestamp, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert review: %w", err)
	}
	defer stmt.Close()

	for _, r := range reviews {
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.ExternalID, r.AgentID, r.AgentKey, r.DepartmentID,
			r.Rating, r.Comment, r.ReviewTimestamp, r.Source,
		); err != nil {
			return fmt.Errorf("insert review %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ReplaceReviews: %w", err)
	}
	return nil
}

// ListReviews returns every stored review ordered by timestamp.
func (s *ReviewRepository) ListReviews(ctx context.Context) ([]models.Review, error) {
	const query = `
		SELECT id, external_id, agent_id, agent_key, department_id, rating, comment, review_timestamp, source
		FROM reviews
		ORDER BY review_timestamp, id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ListReviews: %w", err)
	}
	defer rows.Close()

	var results []models.Review
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.ExternalID, &r.AgentID, &r.AgentKey, &r.DepartmentID,
			&r.Rating, &r.Comment, &r.ReviewTimestamp, &r.Source); err != nil {
			return nil, fmt.Errorf("scan ListReviews row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListReviews: %w", err)
	}
	return results, nil
}

// SourceCounts returns the number of stored reviews per source label.
func (s *ReviewRepository) SourceCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, COUNT(*) FROM reviews GROUP BY source ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("query SourceCounts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			source string
			n      int
		)
		if err := rows.Scan(&source, &n); err != nil {
			return nil, fmt.Errorf("scan SourceCounts row: %w", err)
		}
		counts[source] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate SourceCounts: %w", err)
	}
	return counts, nil
}

// UpsertAgents inserts or updates agents by id. Overrides are untouched.
func (s *ReviewRepository) UpsertAgents(ctx context.Context, agents []models.Agent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin UpsertAgents: %w", err)
	}
	defer tx.Rollback()

	for _, a := range agents {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO agents (id, agent_key, display_name, department_id, image_url)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				agent_key = excluded.agent_key,
				display_name = excluded.display_name,
				department_id = excluded.department_id,
				image_url = excluded.image_url
		`, a.ID, a.AgentKey, a.DisplayName, a.DepartmentID, a.ImageURL); err != nil {
			return fmt.Errorf("upsert agent %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit UpsertAgents: %w", err)
	}
	return nil
}

// ListAgents returns agents with user overrides applied: the hidden flag and
// any re-assigned department.
func (s *ReviewRepository) ListAgents(ctx context.Context) ([]models.Agent, error) {
	const query = `
		SELECT
			a.id,
			a.agent_key,
			a.display_name,
			COALESCE(o.department_id, a.department_id) AS department_id,
			a.image_url,
			COALESCE(o.hidden, 0) AS hidden
		FROM agents AS a
		LEFT JOIN agent_overrides AS o ON o.agent_id = a.id
		ORDER BY a.display_name, a.id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query ListAgents: %w", err)
	}
	defer rows.Close()

	var results []models.Agent
	for rows.Next() {
		var a models.Agent
		if err := rows.Scan(&a.ID, &a.AgentKey, &a.DisplayName, &a.DepartmentID, &a.ImageURL, &a.Hidden); err != nil {
			return nil, fmt.Errorf("scan ListAgents row: %w", err)
		}
		results = append(results, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListAgents: %w", err)
	}
	return results, nil
}

// SetAgentHidden records whether an agent is hidden from rollups.
func (s *ReviewRepository) SetAgentHidden(ctx context.Context, agentID string, hidden bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_overrides (agent_id, hidden) VALUES (?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET hidden = excluded.hidden
	`, agentID, hidden)
	if err != nil {
		return fmt.Errorf("set agent %s hidden: %w", agentID, err)
	}
	return nil
}

// AssignAgentDepartment overrides the department an agent belongs to.
func (s *ReviewRepository) AssignAgentDepartment(ctx context.Context, agentID, departmentID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_overrides (agent_id, department_id) VALUES (?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET department_id = excluded.department_id
	`, agentID, departmentID)
	if err != nil {
		return fmt.Errorf("assign agent %s department: %w", agentID, err)
	}
	return nil
}

// UpsertDepartments inserts or renames departments by id.
func (s *ReviewRepository) UpsertDepartments(ctx context.Context, departments []models.Department) error {
	for _, d := range departments {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO departments (id, name, custom) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name
		`, d.ID, d.Name, d.Custom); err != nil {
			return fmt.Errorf("upsert department %s: %w", d.ID, err)
		}
	}
	return nil
}

// CreateDepartment adds a user-defined department with a generated id.
func (s *ReviewRepository) CreateDepartment(ctx context.Context, name string) (models.Department, error) {
	d := models.Department{ID: uuid.NewString(), Name: name, Custom: true}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO departments (id, name, custom) VALUES (?, ?, 1)`, d.ID, d.Name); err != nil {
		return models.Department{}, fmt.Errorf("create department: %w", err)
	}
	return d, nil
}

func (s *ReviewRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, custom FROM departments ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query ListDepartments: %w", err)
	}
	defer rows.Close()

	var results []models.Department
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Custom); err != nil {
			return nil, fmt.Errorf("scan ListDepartments row: %w", err)
		}
		results = append(results, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListDepartments: %w", err)
	}
	return results, nil
}
