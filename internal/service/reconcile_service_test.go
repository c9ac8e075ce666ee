package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/domain"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/models"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/repository"
)

func TestReconcile_RecomputeRaised(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	film := f.seedFilm(t)

	paid := f.newOrder(t, "120.00", &film.ID)
	sig := "ignored"
	_, _, err := f.payments.MarkPaid(ctx, paid.PaymentID, repository.Capture{PaymentID: "pay_1", Signature: &sig})
	require.NoError(t, err)
	f.newOrder(t, "999.00", &film.ID) // still created

	require.NoError(t, f.db.Model(&models.FilmProject{}).Where("id = ?", film.ID).
		UpdateColumn("raised_amount", decimal.NewFromInt(5000)).Error)

	require.NoError(t, NewReconcileService(f.projects).RecomputeRaised(ctx))
	assert.True(t, f.raised(t, film.ID).Equal(decimal.NewFromInt(120)))

	p, err := f.projects.Get(ctx, domain.CategoryFilm, film.ID)
	require.NoError(t, err)
	assert.Equal(t, "f", p.Base().Title)
}
