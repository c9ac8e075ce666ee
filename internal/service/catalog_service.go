package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/domain"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/logger"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/models"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/repository"
)

// ProjectInput carries create and update fields. Nil means "not provided".
type ProjectInput struct {
	Title         *string
	Description   *string
	GoalAmount    *decimal.Decimal
	RewardTiers   *[]models.RewardTier
	TrailerURL    *string
	ShortVideoURL *string

	PosterImage   *MediaFile
	AlbumCover    *MediaFile
	AudioSamples  []MediaFile
	ArtworkImages []MediaFile
}

type CatalogService struct {
	projects *repository.ProjectRepository
	media    *MediaUploader
	audit    *Auditor
	maxFiles int
}

func NewCatalogService(projects *repository.ProjectRepository, media *MediaUploader, audit *Auditor, maxFiles int) *CatalogService {
	return &CatalogService{projects: projects, media: media, audit: audit, maxFiles: maxFiles}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

// ListAll returns every project of every category, newest first.
func (s *CatalogService) ListAll(ctx context.Context) ([]models.Project, error) {
	return s.list(ctx, 0)
}

// ListMine returns the caller's projects across categories, newest first.
func (s *CatalogService) ListMine(ctx context.Context, userID uint) ([]models.Project, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthorized
	}
	return s.list(ctx, userID)
}

func (s *CatalogService) list(ctx context.Context, creatorID uint) ([]models.Project, error) {
	out := []models.Project{}
	for _, c := range domain.Categories {
		rows, err := s.projects.ListByCategory(ctx, c, creatorID)
		if err != nil {
			return nil, fmt.Errorf("list %s projects: %w", c, err)
		}
		for _, p := range rows {
			p.Annotate()
		}
		out = append(out, rows...)
	}
	// stable: equal timestamps keep film, music, art then id order
	slices.SortStableFunc(out, func(a, b models.Project) int {
		return b.Base().CreatedAt.Compare(a.Base().CreatedAt)
	})
	return out, nil
}

func (s *CatalogService) GetOne(ctx context.Context, category string, id uint) (models.Project, error) {
	c, err := domain.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	p, err := s.projects.Get(ctx, c, id)
	if err != nil {
		return nil, notFound(err)
	}
	p.Annotate()
	return p, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// Create validates input, uploads its media and stores the project with its children in a
// single transaction. The creator is always creatorID.
func (s *CatalogService) Create(ctx context.Context, category string, in ProjectInput, creatorID uint) (models.Project, error) {
	c, err := domain.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	if creatorID == 0 {
		return nil, domain.ErrUnauthorized
	}

	verr := domain.NewValidationError()
	payload := projectPayload{
		Title:         deref(in.Title),
		Description:   deref(in.Description),
		GoalAmount:    deref(in.GoalAmount),
		RewardTiers:   deref(in.RewardTiers),
		TrailerURL:    deref(in.TrailerURL),
		ShortVideoURL: deref(in.ShortVideoURL),
	}
	if payload.RewardTiers == nil {
		payload.RewardTiers = []models.RewardTier{}
	}
	validatePayload(verr, payload)
	if in.GoalAmount == nil {
		verr.Add("goal_amount", "This field is required.")
	}
	uploads := s.inspectCreateMedia(verr, c, in)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	stored, err := s.media.UploadAll(ctx, uploads)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMediaUpload, err)
	}
	refs := make([]string, len(stored))
	for i, m := range stored {
		refs[i] = m.Ref
	}

	base := models.ProjectBase{
		Title:       payload.Title,
		Description: payload.Description,
		GoalAmount:  payload.GoalAmount,
		RewardTiers: models.RewardTiers(payload.RewardTiers),
		CreatorID:   creatorID,
	}
	p := buildProject(c, base, payload, uploads, stored)
	if err := s.projects.Create(ctx, p); err != nil {
		s.media.Release(context.WithoutCancel(ctx), refs)
		return nil, fmt.Errorf("create %s project: %w", c, err)
	}
	logger.Infof("[catalog] created %s by user %d", domain.UniqueID(c, p.Base().ID), creatorID)
	s.audit.Record(ctx, creatorID, "project.create", string(c), strconv.FormatUint(uint64(p.Base().ID), 10), nil)

	return s.GetOne(ctx, string(c), p.Base().ID)
}

func (s *CatalogService) inspectCreateMedia(verr *domain.ValidationError, c domain.Category, in ProjectInput) []*mediaUpload {
	var uploads []*mediaUpload
	add := func(up *mediaUpload) {
		if up != nil {
			uploads = append(uploads, up)
		}
	}
	many := func(field, kind, folder string, files []MediaFile) {
		if s.maxFiles > 0 && len(files) > s.maxFiles {
			verr.Add(field, fmt.Sprintf("At most %d files are allowed.", s.maxFiles))
			return
		}
		for _, f := range files {
			add(s.media.Inspect(verr, field, kind, folder, f))
		}
	}
	switch c {
	case domain.CategoryFilm:
		if in.PosterImage == nil {
			verr.Add("poster_image", "No file was submitted.")
		} else {
			add(s.media.Inspect(verr, "poster_image", domain.MediaKindImage, "film/posters", *in.PosterImage))
		}
	case domain.CategoryMusic:
		if in.AlbumCover == nil {
			verr.Add("album_cover", "No file was submitted.")
		} else {
			add(s.media.Inspect(verr, "album_cover", domain.MediaKindImage, "music/covers", *in.AlbumCover))
		}
		many("audio_samples", domain.MediaKindAudio, "music/samples", in.AudioSamples)
	case domain.CategoryArt:
		many("artwork_images", domain.MediaKindImage, "art/artworks", in.ArtworkImages)
	}
	return uploads
}

// buildProject assembles the variant row from validated fields and stored media.
func buildProject(c domain.Category, base models.ProjectBase, payload projectPayload, uploads []*mediaUpload, stored []StoredMedia) models.Project {
	switch c {
	case domain.CategoryFilm:
		p := &models.FilmProject{ProjectBase: base, TrailerURL: payload.TrailerURL}
		for i, up := range uploads {
			if up.Field == "poster_image" {
				p.PosterImage, p.PosterPublicID = stored[i].URL, stored[i].Ref
			}
		}
		return p
	case domain.CategoryMusic:
		p := &models.MusicProject{ProjectBase: base, ShortVideoURL: payload.ShortVideoURL}
		for i, up := range uploads {
			switch up.Field {
			case "album_cover":
				p.AlbumCover, p.AlbumCoverPublicID = stored[i].URL, stored[i].Ref
			case "audio_samples":
				p.AudioSamples = append(p.AudioSamples, models.AudioSample{
					File: stored[i].URL, PublicID: stored[i].Ref, Title: up.Title, Format: up.Format,
				})
			}
		}
		return p
	default:
		p := &models.ArtProject{ProjectBase: base, ShortVideoURL: payload.ShortVideoURL}
		for i := range uploads {
			p.ArtworkImages = append(p.ArtworkImages, models.ArtworkImage{Image: stored[i].URL, PublicID: stored[i].Ref})
		}
		return p
	}
}

// Update applies a partial update. Only the owner may update; creator, category,
// raised_amount and created_at are never written.
func (s *CatalogService) Update(ctx context.Context, category string, id uint, in ProjectInput, requesterID uint) (models.Project, error) {
	c, err := domain.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	p, err := s.projects.Get(ctx, c, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !CanMutate(requesterID, p) {
		return nil, domain.ErrForbidden
	}

	base := p.Base()
	payload := projectPayload{
		Title:       base.Title,
		Description: base.Description,
		GoalAmount:  base.GoalAmount,
		RewardTiers: base.RewardTiers,
	}
	switch v := p.(type) {
	case *models.FilmProject:
		payload.TrailerURL = v.TrailerURL
	case *models.MusicProject:
		payload.ShortVideoURL = v.ShortVideoURL
	case *models.ArtProject:
		payload.ShortVideoURL = v.ShortVideoURL
	}

	fields := map[string]interface{}{}
	if in.Title != nil {
		payload.Title = *in.Title
		fields["title"] = *in.Title
	}
	if in.Description != nil {
		payload.Description = *in.Description
		fields["description"] = *in.Description
	}
	if in.GoalAmount != nil {
		payload.GoalAmount = *in.GoalAmount
		fields["goal_amount"] = *in.GoalAmount
	}
	if in.RewardTiers != nil {
		tiers := models.RewardTiers(*in.RewardTiers)
		if tiers == nil {
			tiers = models.RewardTiers{}
		}
		payload.RewardTiers = tiers
		fields["reward_tiers"] = tiers
	}
	if in.TrailerURL != nil && c == domain.CategoryFilm {
		payload.TrailerURL = *in.TrailerURL
		fields["trailer_url"] = *in.TrailerURL
	}
	if in.ShortVideoURL != nil && c != domain.CategoryFilm {
		payload.ShortVideoURL = *in.ShortVideoURL
		fields["short_video_url"] = *in.ShortVideoURL
	}

	verr := domain.NewValidationError()
	validatePayload(verr, payload)

	var replace *mediaUpload
	var oldRef string
	switch v := p.(type) {
	case *models.FilmProject:
		if in.PosterImage != nil {
			replace = s.media.Inspect(verr, "poster_image", domain.MediaKindImage, "film/posters", *in.PosterImage)
			oldRef = v.PosterPublicID
		}
	case *models.MusicProject:
		if in.AlbumCover != nil {
			replace = s.media.Inspect(verr, "album_cover", domain.MediaKindImage, "music/covers", *in.AlbumCover)
			oldRef = v.AlbumCoverPublicID
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	var newRefs []string
	if replace != nil {
		stored, err := s.media.UploadAll(ctx, []*mediaUpload{replace})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMediaUpload, err)
		}
		newRefs = []string{stored[0].Ref}
		switch replace.Field {
		case "poster_image":
			fields["poster_image"], fields["poster_public_id"] = stored[0].URL, stored[0].Ref
		case "album_cover":
			fields["album_cover"], fields["album_cover_public_id"] = stored[0].URL, stored[0].Ref
		}
	}

	if err := s.projects.Update(ctx, p, fields); err != nil {
		s.media.Release(context.WithoutCancel(ctx), newRefs)
		return nil, fmt.Errorf("update %s: %w", domain.UniqueID(c, id), err)
	}
	if replace != nil {
		s.media.Release(context.WithoutCancel(ctx), []string{oldRef})
	}
	s.audit.Record(ctx, requesterID, "project.update", string(c), strconv.FormatUint(uint64(id), 10), nil)
	return s.GetOne(ctx, string(c), id)
}

// Delete removes an owned project and its media rows, then releases the blobs.
func (s *CatalogService) Delete(ctx context.Context, category string, id uint, requesterID uint) error {
	c, err := domain.ParseCategory(category)
	if err != nil {
		return err
	}
	p, err := s.projects.Get(ctx, c, id)
	if err != nil {
		return notFound(err)
	}
	if !CanMutate(requesterID, p) {
		return domain.ErrForbidden
	}
	if err := s.projects.Delete(ctx, p); err != nil {
		return notFound(err)
	}
	s.media.Release(context.WithoutCancel(ctx), p.MediaPublicIDs())
	logger.Infof("[catalog] deleted %s by user %d", domain.UniqueID(c, id), requesterID)
	s.audit.Record(ctx, requesterID, "project.delete", string(c), strconv.FormatUint(uint64(id), 10), nil)
	return nil
}
