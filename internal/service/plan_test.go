package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/celerhost/panel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planInput(name string, cents domain.Cents) domain.PlanInput {
	return domain.PlanInput{Name: name, Price: &cents, PlayerSlots: 100, RAMMB: 8192, StorageMB: 102400}
}

func TestPlanService_ListActiveOrderedByPrice(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.plans.Create(ctx, planInput("Premium", 3999))
	require.NoError(t, err)
	cheap, err := e.plans.Create(ctx, planInput("Mini", 499))
	require.NoError(t, err)

	plans, err := e.plans.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 4)
	assert.Equal(t, cheap.ID, plans[0].ID)
	assert.Equal(t, "Premium", plans[3].Name)
}

func TestPlanService_DeactivateHidesFromCatalog(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, e.plans.Deactivate(ctx, e.pro.ID))

	active, err := e.plans.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := e.plans.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got, err := e.plans.Get(ctx, e.pro.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestPlanService_Update(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	in := planInput("Básico+", 1299)
	updated, err := e.plans.Update(ctx, e.basic.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Básico+", updated.Name)
	assert.True(t, updated.Active)

	_, err = e.plans.Update(ctx, 999, in)
	requireCode(t, err, domain.CodeNotFound)
}

func TestPlanService_UpdateKeepsDeactivatedPlanHidden(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.plans.Deactivate(ctx, e.pro.ID))

	updated, err := e.plans.Update(ctx, e.pro.ID, planInput("Pro", 2499))
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, domain.Cents(2499), updated.Price)

	active, err := e.plans.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, e.basic.ID, active[0].ID)

	// an explicit activo still reactivates
	in := planInput("Pro", 2499)
	on := true
	in.Active = &on
	updated, err = e.plans.Update(ctx, e.pro.ID, in)
	require.NoError(t, err)
	assert.True(t, updated.Active)
}

func TestPlanService_CreateFromDecimalPrecio(t *testing.T) {
	e := newTestEnv(t)
	var in domain.PlanInput
	require.NoError(t, json.Unmarshal([]byte(`{"nombre":"Ultra","precio":59.99,"slots_jugadores":64,"ram":16384,"almacenamiento":102400}`), &in))

	created, err := e.plans.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, domain.Cents(5999), created.Price)

	var missing domain.PlanInput
	require.NoError(t, json.Unmarshal([]byte(`{"nombre":"Free","slots_jugadores":64,"ram":16384,"almacenamiento":102400}`), &missing))
	_, err = e.plans.Create(context.Background(), missing)
	requireCode(t, err, domain.CodeValidation)
}

func TestPlanService_Errors(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.plans.Create(ctx, planInput("", 100))
	requireCode(t, err, domain.CodeValidation)

	_, err = e.plans.Get(ctx, 42)
	requireCode(t, err, domain.CodeNotFound)

	requireCode(t, e.plans.Deactivate(ctx, 42), domain.CodeNotFound)
}

func TestPlanService_CreateThenGetRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	inactive := false
	enterprise := domain.Cents(9999)
	in := domain.PlanInput{
		Name:        "  Enterprise ",
		Description: "dedicated cores",
		Price:       &enterprise,
		PlayerSlots: 200,
		RAMMB:       16384,
		StorageMB:   204800,
		Active:      &inactive,
	}

	created, err := e.plans.Create(ctx, in)
	require.NoError(t, err)
	got, err := e.plans.Get(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created, got)
	assert.Equal(t, "Enterprise", got.Name)
	assert.Equal(t, "99.99", got.Price.String())
	assert.False(t, got.Active)
}
