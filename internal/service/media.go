package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dhowden/tag"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/domain"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/logger"
	"github.com/divyanshu1906/CrowdFunding-Website/pkg/cloudinary"
	"github.com/divyanshu1906/CrowdFunding-Website/pkg/localstore"
)

// MediaFile is an uploaded file as received from the client.
type MediaFile struct {
	Name    string
	Size    int64
	Content io.ReadSeeker
}

// StoredMedia is a blob after upload. Ref is opaque and only meaningful to the store that
// produced it.
type StoredMedia struct {
	URL string
	Ref string
}

// MediaStore is the blob storage collaborator.
type MediaStore interface {
	Save(ctx context.Context, kind, folder string, f MediaFile) (StoredMedia, error)
	Remove(ctx context.Context, ref string) error
}

type cloudinaryStore struct {
	client cloudinary.Client
	root   string
}

// NewCloudinaryStore stores images as Cloudinary images and audio as Cloudinary video resources.
func NewCloudinaryStore(client cloudinary.Client, rootFolder string) MediaStore {
	return &cloudinaryStore{client: client, root: rootFolder}
}

func resourceType(kind string) string {
	if kind == domain.MediaKindAudio {
		return cloudinary.ResourceVideo
	}
	return cloudinary.ResourceImage
}

func (s *cloudinaryStore) Save(ctx context.Context, kind, folder string, f MediaFile) (StoredMedia, error) {
	rt := resourceType(kind)
	res, err := s.client.Upload(ctx, f.Content, rt, strings.Trim(s.root+"/"+folder, "/"), newBlobID(kind))
	if err != nil {
		return StoredMedia{}, err
	}
	return StoredMedia{URL: res.URL, Ref: rt + ":" + res.PublicID}, nil
}

func (s *cloudinaryStore) Remove(ctx context.Context, ref string) error {
	rt, id, ok := strings.Cut(ref, ":")
	if !ok {
		return fmt.Errorf("malformed cloudinary ref %q", ref)
	}
	return s.client.Destroy(ctx, rt, id)
}

type diskStore struct {
	store *localstore.Store
}

// NewDiskStore keeps media on local disk; used when Cloudinary is not configured.
func NewDiskStore(store *localstore.Store) MediaStore {
	return &diskStore{store: store}
}

func (s *diskStore) Save(ctx context.Context, kind, folder string, f MediaFile) (StoredMedia, error) {
	url, ref, err := s.store.Save(ctx, folder, f.Name, f.Content)
	if err != nil {
		return StoredMedia{}, err
	}
	return StoredMedia{URL: url, Ref: ref}, nil
}

func (s *diskStore) Remove(ctx context.Context, ref string) error {
	return s.store.Remove(ctx, ref)
}

func newBlobID(kind string) string {
	return kind + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// mediaUpload is one file queued for upload. Title and Format are only set for audio.
type mediaUpload struct {
	Field  string
	Kind   string
	Folder string
	File   MediaFile
	Title  string
	Format string
}

// MediaUploader validates uploads and pushes them to the store through a bounded pool.
type MediaUploader struct {
	store   MediaStore
	pool    *ants.Pool
	maxSize int64
}

func NewMediaUploader(store MediaStore, workers int, maxSizeBytes int64) (*MediaUploader, error) {
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	return &MediaUploader{store: store, pool: pool, maxSize: maxSizeBytes}, nil
}

func (u *MediaUploader) Close() {
	u.pool.Release()
}

// Inspect checks size and content type of f and, for audio, reads its embedded tags.
// Problems are added to verr under field.
func (u *MediaUploader) Inspect(verr *domain.ValidationError, field, kind, folder string, f MediaFile) *mediaUpload {
	if u.maxSize > 0 && f.Size > u.maxSize {
		verr.Add(field, fmt.Sprintf("%s exceeds the maximum size of %d MB", f.Name, u.maxSize>>20))
		return nil
	}
	mt, err := mimetype.DetectReader(f.Content)
	if _, serr := f.Content.Seek(0, io.SeekStart); err == nil {
		err = serr
	}
	if err != nil {
		verr.Add(field, fmt.Sprintf("could not read %s", f.Name))
		return nil
	}
	up := &mediaUpload{Field: field, Kind: kind, Folder: folder, File: f}
	switch kind {
	case domain.MediaKindImage:
		if !strings.HasPrefix(mt.String(), "image/") {
			verr.Add(field, fmt.Sprintf("%s is not an image", f.Name))
			return nil
		}
	case domain.MediaKindAudio:
		if !strings.HasPrefix(mt.String(), "audio/") && !mt.Is("application/ogg") {
			verr.Add(field, fmt.Sprintf("%s is not an audio file", f.Name))
			return nil
		}
		up.Title, up.Format = audioMeta(f, mt)
	}
	return up
}

func audioMeta(f MediaFile, mt *mimetype.MIME) (title, format string) {
	title = strings.TrimSuffix(filepath.Base(f.Name), filepath.Ext(f.Name))
	format = strings.ToUpper(strings.TrimPrefix(mt.Extension(), "."))
	defer f.Content.Seek(0, io.SeekStart)
	md, err := tag.ReadFrom(f.Content)
	if err != nil {
		return title, format
	}
	if t := strings.TrimSpace(md.Title()); t != "" {
		title = t
	}
	if ft := md.FileType(); ft != "" && ft != tag.UnknownFileType {
		format = string(ft)
	}
	return title, format
}

// UploadAll stores every file concurrently and returns the results in input order. If any
// upload fails, the ones that succeeded are removed and the first error is returned.
func (u *MediaUploader) UploadAll(ctx context.Context, uploads []*mediaUpload) ([]StoredMedia, error) {
	out := make([]StoredMedia, len(uploads))
	errs := make([]error, len(uploads))
	var wg sync.WaitGroup
	for i, up := range uploads {
		wg.Add(1)
		err := u.pool.Submit(func() {
			defer wg.Done()
			out[i], errs[i] = u.store.Save(ctx, up.Kind, up.Folder, up.File)
		})
		if err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()

	var first error
	var saved []string
	for i, err := range errs {
		if err != nil {
			if first == nil {
				first = fmt.Errorf("upload %s: %w", uploads[i].Field, err)
			}
			continue
		}
		saved = append(saved, out[i].Ref)
	}
	if first != nil {
		u.Release(context.WithoutCancel(ctx), saved)
		return nil, first
	}
	return out, nil
}

// Release removes blobs best-effort; failures are only logged.
func (u *MediaUploader) Release(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := u.store.Remove(ctx, ref); err != nil {
			logger.Warnf("[media] release %s: %v", ref, err)
		}
	}
}
