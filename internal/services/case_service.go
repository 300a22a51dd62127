package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/fantics-casino/backend/internal/config"
	"github.com/fantics-casino/backend/internal/events"
	"github.com/fantics-casino/backend/internal/models"
	"github.com/fantics-casino/backend/internal/prize"
	"github.com/fantics-casino/backend/internal/repositories"
	"go.uber.org/zap"
)

const maxCaseNameLen = 255

// DefaultCases is the starter catalog seeded into an empty database.
var DefaultCases = []struct {
	Name   string
	Cost   int64
	Prizes []models.PrizeSpec
}{
	{"Starter Case", 1000, []models.PrizeSpec{{Cost: 100, Probability: 30}, {Cost: 200, Probability: 50}, {Cost: 500, Probability: 20}}},
	{"Premium Case", 2500, []models.PrizeSpec{{Cost: 500, Probability: 40}, {Cost: 1000, Probability: 35}, {Cost: 2000, Probability: 20}, {Cost: 5000, Probability: 5}}},
	{"VIP Case", 10000, []models.PrizeSpec{{Cost: 2000, Probability: 30}, {Cost: 5000, Probability: 40}, {Cost: 10000, Probability: 25}, {Cost: 50000, Probability: 5}}},
}

type OpenCaseResult struct {
	PrizeAmount int64  `json:"prize_amount"`
	CaseCost    int64  `json:"case_cost"`
	Profit      int64  `json:"profit"`
	NewBalance  int64  `json:"new_balance"`
	Message     string `json:"message"`
}

type CaseService struct {
	cases CaseStore
	coord *Coordinator
	audit AuditStore
	pub   events.Publisher
	rng   func() float64
	seed  bool
	log   *zap.Logger
}

func NewCaseService(
	cases CaseStore,
	coord *Coordinator,
	audit AuditStore,
	pub events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *CaseService {
	return &CaseService{
		cases: cases,
		coord: coord,
		audit: audit,
		pub:   pub,
		rng:   rand.Float64,
		seed:  cfg.SeedCases,
		log:   log,
	}
}

// WithRand replaces the draw source, which must return values in [0, 1).
func (s *CaseService) WithRand(rng func() float64) *CaseService {
	s.rng = rng
	return s
}

// Get returns nil, nil when the case does not exist.
func (s *CaseService) Get(ctx context.Context, id int64) (*models.Case, error) {
	c, err := s.cases.Get(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return c, err
}

func (s *CaseService) List(ctx context.Context) ([]models.Case, error) {
	cases, err := s.cases.List(ctx)
	if err != nil {
		return nil, err
	}
	if cases == nil {
		cases = []models.Case{}
	}
	return cases, nil
}

func (s *CaseService) Create(ctx context.Context, name string, cost int64, prizes []models.PrizeSpec) (*models.Case, error) {
	name = strings.TrimSpace(name)
	if err := validateCaseName(name); err != nil {
		return nil, err
	}
	if cost <= 0 {
		return nil, fmt.Errorf("%w: cost must be positive", ErrValidation)
	}
	if err := validatePrizes(prizes); err != nil {
		return nil, err
	}

	c := &models.Case{Name: name, Cost: cost}
	if err := s.cases.Create(ctx, c, prizes); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("%w: case %q already exists", ErrValidation, name)
		}
		return nil, err
	}

	s.log.Info("case created", zap.Int64("case_id", c.ID), zap.String("name", c.Name), zap.Int64("cost", c.Cost))
	return c, nil
}

// Update changes the non-nil fields; a non-nil prizes slice replaces the prize table.
// It reports false when the case does not exist.
func (s *CaseService) Update(ctx context.Context, id int64, name *string, cost *int64, prizes []models.PrizeSpec) (bool, error) {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if err := validateCaseName(trimmed); err != nil {
			return false, err
		}
		name = &trimmed
	}
	if cost != nil && *cost <= 0 {
		return false, fmt.Errorf("%w: cost must be positive", ErrValidation)
	}
	if prizes != nil {
		if err := validatePrizes(prizes); err != nil {
			return false, err
		}
	}

	ok, err := s.cases.Update(ctx, id, name, cost, prizes)
	if errors.Is(err, repositories.ErrDuplicate) {
		return false, fmt.Errorf("%w: case name already taken", ErrValidation)
	}
	return ok, err
}

func (s *CaseService) Delete(ctx context.Context, id int64) (bool, error) {
	return s.cases.Delete(ctx, id)
}

// SeedDefaults fills an empty catalog with DefaultCases.
func (s *CaseService) SeedDefaults(ctx context.Context) error {
	if !s.seed {
		return nil
	}
	n, err := s.cases.Count(ctx)
	if err != nil {
		return fmt.Errorf("count cases: %w", err)
	}
	if n > 0 {
		return nil
	}

	for _, d := range DefaultCases {
		if _, err := s.Create(ctx, d.Name, d.Cost, d.Prizes); err != nil {
			return fmt.Errorf("seed %s: %w", d.Name, err)
		}
	}
	s.log.Info("default cases seeded", zap.Int("count", len(DefaultCases)))
	return nil
}

// Open draws a prize and settles cost and prize against the user's balance in one unit of work.
func (s *CaseService) Open(ctx context.Context, caseID, userID int64) (*OpenCaseResult, error) {
	c, err := s.cases.Get(ctx, caseID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, reject(KindNotFound, "case %d not found", caseID)
	}
	if err != nil {
		return nil, fmt.Errorf("load case %d: %w", caseID, err)
	}

	table, err := TableFor(c)
	if err != nil {
		s.log.Error("stored case has an invalid prize table", zap.Int64("case_id", caseID), zap.Error(err))
		return nil, fmt.Errorf("case %d: %w", caseID, err)
	}

	drawn := table.Draw(s.rng)

	res, err := s.coord.OpenCase(ctx, userID, c.Cost, drawn.Amount)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, res.Rejection()
	}

	out := &OpenCaseResult{
		PrizeAmount: drawn.Amount,
		CaseCost:    c.Cost,
		Profit:      drawn.Amount - c.Cost,
		NewBalance:  res.Balance,
		Message:     res.Message,
	}

	writeAudit(ctx, s.audit, s.log, models.AuditLog{
		ActorUserID: &userID,
		ActorType:   "user",
		Action:      "case_opened",
		EntityType:  "case",
		EntityID:    idString(caseID),
		Meta:        map[string]any{"cost": c.Cost, "prize": drawn.Amount, "balance": res.Balance},
	})
	publishLedger(ctx, s.pub, s.log, events.EventCaseOpened, userID, map[string]any{
		"case_id": caseID,
		"cost":    c.Cost,
		"prize":   drawn.Amount,
		"balance": res.Balance,
	})

	return out, nil
}

// TableFor builds the draw table of a stored case.
func TableFor(c *models.Case) (*prize.Table, error) {
	entries := make([]prize.Entry, len(c.Prizes))
	for i, p := range c.Prizes {
		entries[i] = prize.Entry{Amount: p.Cost, Weight: p.Probability}
	}
	return prize.NewTable(entries)
}

func validateCaseName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if utf8.RuneCountInString(name) > maxCaseNameLen {
		return fmt.Errorf("%w: name longer than %d characters", ErrValidation, maxCaseNameLen)
	}
	return nil
}

func validatePrizes(prizes []models.PrizeSpec) error {
	seen := make(map[int64]bool, len(prizes))
	entries := make([]prize.Entry, len(prizes))
	for i, p := range prizes {
		if seen[p.Cost] {
			return fmt.Errorf("%w: duplicate prize %d", ErrValidation, p.Cost)
		}
		seen[p.Cost] = true
		entries[i] = prize.Entry{Amount: p.Cost, Weight: p.Probability}
	}
	if _, err := prize.NewTable(entries); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
