package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/domain"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/models"
)

// ProjectRepository stores the three variant tables and their media children.
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func byID(db *gorm.DB) *gorm.DB { return db.Order("id") }

func withMedia(q *gorm.DB, c domain.Category) *gorm.DB {
	q = q.Preload("Creator")
	switch c {
	case domain.CategoryMusic:
		q = q.Preload("AudioSamples", byID)
	case domain.CategoryArt:
		q = q.Preload("ArtworkImages", byID)
	}
	return q
}

// collect runs q into a slice of T and exposes the rows as Projects.
func collect[T any, P interface {
	*T
	models.Project
}](q *gorm.DB) ([]models.Project, error) {
	var rows []T
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Project, 0, len(rows))
	for i := range rows {
		out = append(out, P(&rows[i]))
	}
	return out, nil
}

// ListByCategory returns one variant store in id order. A non-zero creatorID filters by owner.
func (r *ProjectRepository) ListByCategory(ctx context.Context, c domain.Category, creatorID uint) ([]models.Project, error) {
	q := withMedia(r.db.WithContext(ctx), c).Order("id")
	if creatorID != 0 {
		q = q.Where("creator_id = ?", creatorID)
	}
	switch c {
	case domain.CategoryFilm:
		return collect[models.FilmProject](q)
	case domain.CategoryMusic:
		return collect[models.MusicProject](q)
	case domain.CategoryArt:
		return collect[models.ArtProject](q)
	}
	return nil, domain.ErrInvalidCategory
}

func (r *ProjectRepository) Get(ctx context.Context, c domain.Category, id uint) (models.Project, error) {
	p, err := models.NewProject(c)
	if err != nil {
		return nil, err
	}
	if err := withMedia(r.db.WithContext(ctx), c).First(p, id).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts the project and its media children in one transaction.
func (r *ProjectRepository) Create(ctx context.Context, p models.Project) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Creator").Create(p).Error
	})
}

// Update writes the given columns. Keys are column names.
func (r *ProjectRepository) Update(ctx context.Context, p models.Project, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(p).Omit("Creator").Updates(fields).Error
}

// Delete removes the media rows and then the project, in one transaction.
func (r *ProjectRepository) Delete(ctx context.Context, p models.Project) error {
	id := p.Base().ID
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch p.Kind() {
		case domain.CategoryMusic:
			if err := tx.Where("project_id = ?", id).Delete(&models.AudioSample{}).Error; err != nil {
				return err
			}
		case domain.CategoryArt:
			if err := tx.Where("project_id = ?", id).Delete(&models.ArtworkImage{}).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(p)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// RecomputeRaised resets raised_amount of every project in the category to the sum of its
// paid payments and returns the number of rows touched.
func (r *ProjectRepository) RecomputeRaised(ctx context.Context, c domain.Category) (int64, error) {
	table, err := models.TableFor(c)
	if err != nil {
		return 0, err
	}
	sql := fmt.Sprintf(`UPDATE %[1]s SET raised_amount = COALESCE((
		SELECT SUM(p.amount) FROM payments p
		WHERE p.status = ? AND p.project_category = ? AND p.project_id = %[1]s.id
	), 0)`, table)
	res := r.db.WithContext(ctx).Exec(sql, domain.PaymentStatusPaid, string(c))
	return res.RowsAffected, res.Error
}

// creditProject adds amount to a project's raised_amount. A dangling reference is not an
// error; it simply touches no row.
func creditProject(tx *gorm.DB, category string, projectID *uint, amount decimal.Decimal) error {
	if projectID == nil {
		return nil
	}
	table, err := models.TableFor(domain.Category(category))
	if err != nil {
		return nil
	}
	return tx.Table(table).Where("id = ?", *projectID).
		UpdateColumn("raised_amount", gorm.Expr("raised_amount + ?", amount)).Error
}
