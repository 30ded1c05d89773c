package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/celerhost/panel/internal/domain"
	"github.com/celerhost/panel/internal/repository"
)

// PlanService manages the plan catalog.
type PlanService struct {
	db     repository.DB
	plans  repository.PlanRepository
	logger *slog.Logger
}

// NewPlanService creates a new PlanService.
func NewPlanService(db repository.DB, plans repository.PlanRepository, logger *slog.Logger) *PlanService {
	return &PlanService{db: db, plans: plans, logger: logger}
}

// ListActive returns purchasable plans ordered by price.
func (s *PlanService) ListActive(ctx context.Context) ([]domain.Plan, error) {
	plans, err := s.plans.List(ctx, s.db, false)
	if err != nil {
		return nil, domain.ErrInternal("list plans", err)
	}
	return plans, nil
}

// ListAll returns every plan including inactive ones.
func (s *PlanService) ListAll(ctx context.Context) ([]domain.Plan, error) {
	plans, err := s.plans.List(ctx, s.db, true)
	if err != nil {
		return nil, domain.ErrInternal("list plans", err)
	}
	return plans, nil
}

// Get returns a plan by id.
func (s *PlanService) Get(ctx context.Context, id int64) (*domain.Plan, error) {
	plan, err := s.plans.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, domain.ErrInternal("find plan", err)
	}
	if plan == nil {
		return nil, domain.ErrNotFound("plan", fmt.Sprint(id))
	}
	return plan, nil
}

// Create adds a plan.
func (s *PlanService) Create(ctx context.Context, input domain.PlanInput) (*domain.Plan, error) {
	if err := input.Validate(); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	plan := input.ToPlan()
	if err := s.plans.Create(ctx, s.db, &plan); err != nil {
		return nil, domain.ErrInternal("create plan", err)
	}
	s.logger.Info("plan created", "plan_id", plan.ID, "nombre", plan.Name)
	return &plan, nil
}

// Update overwrites a plan's fields. An omitted activo keeps the stored flag,
// so editing a deactivated plan does not bring it back.
func (s *PlanService) Update(ctx context.Context, id int64, input domain.PlanInput) (*domain.Plan, error) {
	if err := input.Validate(); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	plan, err := s.plans.LockForUpdate(ctx, tx, id)
	if err != nil {
		return nil, domain.ErrInternal("lock plan", err)
	}
	if plan == nil {
		return nil, domain.ErrNotFound("plan", fmt.Sprint(id))
	}

	input.ApplyTo(plan)
	ok, err := s.plans.Update(ctx, tx, plan)
	if err != nil {
		return nil, domain.ErrInternal("update plan", err)
	}
	if !ok {
		return nil, domain.ErrNotFound("plan", fmt.Sprint(id))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}
	s.logger.Info("plan updated", "plan_id", id, "activo", plan.Active)
	return plan, nil
}

// Deactivate hides a plan from the catalog. Plans are never hard-deleted
// because servers reference them.
func (s *PlanService) Deactivate(ctx context.Context, id int64) error {
	ok, err := s.plans.SetActive(ctx, s.db, id, false)
	if err != nil {
		return domain.ErrInternal("deactivate plan", err)
	}
	if !ok {
		return domain.ErrNotFound("plan", fmt.Sprint(id))
	}
	s.logger.Info("plan deactivated", "plan_id", id)
	return nil
}
