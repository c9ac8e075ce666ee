package handler

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/domain"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/models"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/service"
)

// requestContext carries the caller's IP and user agent down to the audit trail.
func requestContext(c *gin.Context) context.Context {
	return service.WithRequestInfo(c.Request.Context(), c.ClientIP(), c.Request.UserAgent())
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// looseUint accepts 7, 7.0 and "7". Anything else, including 0, is treated as absent.
func looseUint(v interface{}) *uint {
	var n uint64
	switch t := v.(type) {
	case float64:
		if t <= 0 || t != float64(uint64(t)) {
			return nil
		}
		n = uint64(t)
	case string:
		parsed, err := strconv.ParseUint(t, 10, 64)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	if n == 0 {
		return nil
	}
	u := uint(n)
	return &u
}

// uploads holds the open multipart parts of one request until the handler is done with them.
type uploads struct {
	open []multipart.File
}

func (u *uploads) Close() {
	for _, f := range u.open {
		_ = f.Close()
	}
	u.open = nil
}

func (u *uploads) add(h *multipart.FileHeader) (service.MediaFile, error) {
	f, err := h.Open()
	if err != nil {
		return service.MediaFile{}, err
	}
	u.open = append(u.open, f)
	return service.MediaFile{Name: h.Filename, Size: h.Size, Content: f}, nil
}

func (u *uploads) one(form *multipart.Form, field string, verr *domain.ValidationError) *service.MediaFile {
	headers := form.File[field]
	if len(headers) == 0 {
		return nil
	}
	mf, err := u.add(headers[0])
	if err != nil {
		verr.Add(field, "The submitted file could not be read.")
		return nil
	}
	return &mf
}

func (u *uploads) many(form *multipart.Form, field string, verr *domain.ValidationError) []service.MediaFile {
	var out []service.MediaFile
	for _, h := range form.File[field] {
		mf, err := u.add(h)
		if err != nil {
			verr.Add(field, "The submitted file could not be read.")
			continue
		}
		out = append(out, mf)
	}
	return out
}

type projectJSON struct {
	Title         *string              `json:"title"`
	Description   *string              `json:"description"`
	GoalAmount    *decimal.Decimal     `json:"goal_amount"`
	RewardTiers   *[]models.RewardTier `json:"reward_tiers"`
	TrailerURL    *string              `json:"trailer_url"`
	ShortVideoURL *string              `json:"short_video_url"`
}

// bindProjectInput reads a project payload from either a JSON body or a multipart form.
// Files are only accepted in multipart form; the caller must Close the returned uploads.
func bindProjectInput(c *gin.Context) (service.ProjectInput, *uploads, error) {
	files := &uploads{}
	var in service.ProjectInput

	if c.ContentType() == gin.MIMEJSON {
		var body projectJSON
		if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil && err != io.EOF {
			verr := domain.NewValidationError()
			verr.Add("non_field_errors", "Invalid JSON body.")
			return in, files, verr
		}
		in.Title, in.Description, in.GoalAmount = body.Title, body.Description, body.GoalAmount
		in.RewardTiers, in.TrailerURL, in.ShortVideoURL = body.RewardTiers, body.TrailerURL, body.ShortVideoURL
		return in, files, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		// urlencoded bodies carry no files but still populate PostForm
		form = &multipart.Form{File: map[string][]*multipart.FileHeader{}}
	}

	verr := domain.NewValidationError()
	text := func(field string) *string {
		if v, ok := c.GetPostForm(field); ok {
			return &v
		}
		return nil
	}
	in.Title = text("title")
	in.Description = text("description")
	in.TrailerURL = text("trailer_url")
	in.ShortVideoURL = text("short_video_url")

	if raw := text("goal_amount"); raw != nil {
		d, err := decimal.NewFromString(*raw)
		if err != nil {
			verr.Add("goal_amount", "A valid number is required.")
		} else {
			in.GoalAmount = &d
		}
	}
	if raw := text("reward_tiers"); raw != nil {
		tiers := []models.RewardTier{}
		if *raw != "" {
			if err := json.Unmarshal([]byte(*raw), &tiers); err != nil {
				verr.Add("reward_tiers", "Value must be valid JSON.")
			}
		}
		in.RewardTiers = &tiers
	}

	in.PosterImage = files.one(form, "poster_image", verr)
	in.AlbumCover = files.one(form, "album_cover", verr)
	in.AudioSamples = files.many(form, "audio_samples", verr)
	in.ArtworkImages = files.many(form, "artwork_images", verr)

	return in, files, verr.OrNil()
}
