package repositories

import (
	"context"
	"fmt"

	"github.com/fantics-casino/backend/internal/db"
	"github.com/fantics-casino/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CaseRepo struct {
	pool *pgxpool.Pool
}

func NewCaseRepo(pool *pgxpool.Pool) *CaseRepo {
	return &CaseRepo{pool: pool}
}

func (r *CaseRepo) Get(ctx context.Context, id int64) (*models.Case, error) {
	var c models.Case
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, cost, created_at, updated_at FROM cases WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Cost, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	prizes, err := r.prizesFor(ctx, r.pool, []int64{id})
	if err != nil {
		return nil, err
	}
	c.Prizes = prizes[id]
	return &c, nil
}

func (r *CaseRepo) List(ctx context.Context) ([]models.Case, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, cost, created_at, updated_at FROM cases ORDER BY cost, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []models.Case
	var ids []int64
	for rows.Next() {
		var c models.Case
		if err := rows.Scan(&c.ID, &c.Name, &c.Cost, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		cases = append(cases, c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return cases, nil
	}

	prizes, err := r.prizesFor(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range cases {
		cases[i].Prizes = prizes[cases[i].ID]
	}
	return cases, nil
}

func (r *CaseRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM cases`).Scan(&n)
	return n, err
}

// Create persists the case, its presents and the associations in one transaction.
func (r *CaseRepo) Create(ctx context.Context, c *models.Case, prizes []models.PrizeSpec) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO cases (name, cost) VALUES ($1, $2)
			RETURNING id, created_at, updated_at
		`, c.Name, c.Cost).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return err
		}
		c.Prizes, err = r.insertPrizes(ctx, tx, c.ID, prizes)
		return err
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("case %q: %w", c.Name, ErrDuplicate)
	}
	return err
}

// Update applies the non-nil fields. A non-nil prizes slice replaces the whole prize table.
// It reports false when the case does not exist.
func (r *CaseRepo) Update(ctx context.Context, id int64, name *string, cost *int64, prizes []models.PrizeSpec) (bool, error) {
	found := false
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE cases SET
				name = COALESCE($2, name),
				cost = COALESCE($3, cost),
				updated_at = now()
			WHERE id = $1
		`, id, name, cost)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		found = true

		if prizes == nil {
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM case_presents WHERE case_id = $1`, id); err != nil {
			return err
		}
		_, err = r.insertPrizes(ctx, tx, id, prizes)
		return err
	})
	if isUniqueViolation(err) {
		return false, fmt.Errorf("case name: %w", ErrDuplicate)
	}
	return found, err
}

// Delete removes the case and its associations. Presents are shared and stay.
func (r *CaseRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cases WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *CaseRepo) insertPrizes(ctx context.Context, tx pgx.Tx, caseID int64, prizes []models.PrizeSpec) ([]models.CasePrize, error) {
	out := make([]models.CasePrize, 0, len(prizes))
	for i, p := range prizes {
		var presentID int64
		// get-or-create by cost; the no-op update makes RETURNING yield the existing row
		err := tx.QueryRow(ctx, `
			INSERT INTO presents (cost) VALUES ($1)
			ON CONFLICT (cost) DO UPDATE SET cost = EXCLUDED.cost
			RETURNING id
		`, p.Cost).Scan(&presentID)
		if err != nil {
			return nil, fmt.Errorf("present %d: %w", p.Cost, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO case_presents (case_id, present_id, probability, position)
			VALUES ($1, $2, $3, $4)
		`, caseID, presentID, p.Probability, i)
		if err != nil {
			return nil, fmt.Errorf("case present %d: %w", p.Cost, err)
		}
		out = append(out, models.CasePrize{PrizeID: presentID, Cost: p.Cost, Probability: p.Probability})
	}
	return out, nil
}

func (r *CaseRepo) prizesFor(ctx context.Context, q querier, caseIDs []int64) (map[int64][]models.CasePrize, error) {
	rows, err := q.Query(ctx, `
		SELECT cp.case_id, p.id, p.cost, cp.probability::float8
		FROM case_presents cp
		JOIN presents p ON p.id = cp.present_id
		WHERE cp.case_id = ANY($1)
		ORDER BY cp.case_id, cp.position, cp.id
	`, caseIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]models.CasePrize, len(caseIDs))
	for rows.Next() {
		var caseID int64
		var p models.CasePrize
		if err := rows.Scan(&caseID, &p.PrizeID, &p.Cost, &p.Probability); err != nil {
			return nil, err
		}
		out[caseID] = append(out[caseID], p)
	}
	return out, rows.Err()
}
