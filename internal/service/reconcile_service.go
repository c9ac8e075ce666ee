package service

import (
	"context"
	"fmt"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/domain"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/logger"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/repository"
)

// ReconcileService restores raised_amount from paid payments.
type ReconcileService struct {
	projects *repository.ProjectRepository
}

func NewReconcileService(projects *repository.ProjectRepository) *ReconcileService {
	return &ReconcileService{projects: projects}
}

// RecomputeRaised sets every project's raised_amount to the sum of its paid payments.
func (s *ReconcileService) RecomputeRaised(ctx context.Context) error {
	for _, c := range domain.Categories {
		n, err := s.projects.RecomputeRaised(ctx, c)
		if err != nil {
			return fmt.Errorf("recompute %s: %w", c, err)
		}
		logger.Debugf("[reconcile] %s: %d projects recomputed", c, n)
	}
	return nil
}
