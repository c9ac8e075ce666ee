package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/domain"
)

// Project is implemented by every catalog variant. The feed and the ownership checks only
// ever look at the common base.
type Project interface {
	Kind() domain.Category
	Base() *ProjectBase
	// Annotate fills the derived category, unique_id and creator_name fields.
	Annotate()
	// MediaPublicIDs lists the blob ids owned by the project, children included.
	MediaPublicIDs() []string
}

type RewardTiers = datatypes.JSONSlice[RewardTier]

type RewardTier struct {
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
	Reward string          `json:"reward" validate:"required,max=255"`
}

// ProjectBase holds the columns shared by every variant table.
type ProjectBase struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Title        string          `gorm:"size:200;not null" json:"title"`
	Description  string          `gorm:"type:text" json:"description"`
	GoalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"goal_amount"`
	RaisedAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"raised_amount"`
	RewardTiers  RewardTiers     `json:"reward_tiers"`
	CreatorID    uint            `gorm:"not null;index" json:"creator"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Category    domain.Category `gorm:"-" json:"category"`
	UniqueID    string          `gorm:"-" json:"unique_id"`
	CreatorName string          `gorm:"-" json:"creator_name"`
}

func (b *ProjectBase) annotate(kind domain.Category, creator *User) {
	b.Category = kind
	b.UniqueID = domain.UniqueID(kind, b.ID)
	if b.RewardTiers == nil {
		b.RewardTiers = RewardTiers{}
	}
	if creator != nil {
		b.CreatorName = creator.Username
	}
}

type FilmProject struct {
	ProjectBase
	TrailerURL     string `gorm:"size:500" json:"trailer_url"`
	PosterImage    string `gorm:"size:500;not null" json:"poster_image"`
	PosterPublicID string `gorm:"size:255" json:"-"`
	Creator        *User  `gorm:"foreignKey:CreatorID" json:"-"`
}

func (FilmProject) TableName() string { return "film_projects" }

func (p *FilmProject) Kind() domain.Category { return domain.CategoryFilm }
func (p *FilmProject) Base() *ProjectBase    { return &p.ProjectBase }
func (p *FilmProject) Annotate()             { p.annotate(domain.CategoryFilm, p.Creator) }

func (p *FilmProject) MediaPublicIDs() []string {
	return nonEmpty(p.PosterPublicID)
}

type MusicProject struct {
	ProjectBase
	AlbumCover         string        `gorm:"size:500;not null" json:"album_cover"`
	AlbumCoverPublicID string        `gorm:"size:255" json:"-"`
	ShortVideoURL      string        `gorm:"size:500" json:"short_video_url"`
	AudioSamples       []AudioSample `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"audio_samples"`
	Creator            *User         `gorm:"foreignKey:CreatorID" json:"-"`
}

func (MusicProject) TableName() string { return "music_projects" }

func (p *MusicProject) Kind() domain.Category { return domain.CategoryMusic }
func (p *MusicProject) Base() *ProjectBase    { return &p.ProjectBase }
func (p *MusicProject) Annotate() {
	p.annotate(domain.CategoryMusic, p.Creator)
	if p.AudioSamples == nil {
		p.AudioSamples = []AudioSample{}
	}
}

func (p *MusicProject) MediaPublicIDs() []string {
	ids := nonEmpty(p.AlbumCoverPublicID)
	for _, s := range p.AudioSamples {
		ids = append(ids, nonEmpty(s.PublicID)...)
	}
	return ids
}

type AudioSample struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;index" json:"-"`
	File      string    `gorm:"size:500;not null" json:"file"`
	PublicID  string    `gorm:"size:255" json:"-"`
	Title     string    `gorm:"size:200" json:"title"`
	Format    string    `gorm:"size:20" json:"format"`
	CreatedAt time.Time `json:"created_at"`
}

func (AudioSample) TableName() string { return "music_audio_samples" }

type ArtProject struct {
	ProjectBase
	ShortVideoURL string         `gorm:"size:500" json:"short_video_url"`
	ArtworkImages []ArtworkImage `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"artwork_images"`
	Creator       *User          `gorm:"foreignKey:CreatorID" json:"-"`
}

func (ArtProject) TableName() string { return "art_projects" }

func (p *ArtProject) Kind() domain.Category { return domain.CategoryArt }
func (p *ArtProject) Base() *ProjectBase    { return &p.ProjectBase }
func (p *ArtProject) Annotate() {
	p.annotate(domain.CategoryArt, p.Creator)
	if p.ArtworkImages == nil {
		p.ArtworkImages = []ArtworkImage{}
	}
}

func (p *ArtProject) MediaPublicIDs() []string {
	var ids []string
	for _, img := range p.ArtworkImages {
		ids = append(ids, nonEmpty(img.PublicID)...)
	}
	return ids
}

type ArtworkImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;index" json:"-"`
	Image     string    `gorm:"size:500;not null" json:"image"`
	PublicID  string    `gorm:"size:255" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (ArtworkImage) TableName() string { return "art_artwork_images" }

// NewProject returns an empty variant for the category.
func NewProject(c domain.Category) (Project, error) {
	switch c {
	case domain.CategoryFilm:
		return &FilmProject{}, nil
	case domain.CategoryMusic:
		return &MusicProject{}, nil
	case domain.CategoryArt:
		return &ArtProject{}, nil
	}
	return nil, domain.ErrInvalidCategory
}

func nonEmpty(ids ...string) []string {
	var out []string
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// TableFor returns the variant table of a category.
func TableFor(c domain.Category) (string, error) {
	switch c {
	case domain.CategoryFilm:
		return FilmProject{}.TableName(), nil
	case domain.CategoryMusic:
		return MusicProject{}.TableName(), nil
	case domain.CategoryArt:
		return ArtProject{}.TableName(), nil
	}
	return "", domain.ErrInvalidCategory
}
