package attachment

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/models"
)

type Service struct {
	DB       *gorm.DB
	Storage  Storage
	MaxBytes int64
	BaseURL  string
	Log      *logrus.Entry
}

func NewService(db *gorm.DB, storage Storage, maxMB int, baseURL string, log *logrus.Entry) *Service {
	return &Service{
		DB:       db,
		Storage:  storage,
		MaxBytes: int64(maxMB) << 20,
		BaseURL:  baseURL,
		Log:      log,
	}
}

// Upload stores files against a project and returns the project with all of
// its files. Only the buyer and the assigned seller may upload.
func (s *Service) Upload(ctx context.Context, user *models.User, projectID uuid.UUID, files []*multipart.FileHeader) (*models.Project, error) {
	db := s.DB.WithContext(ctx)

	var p models.Project
	if err := db.First(&p, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("project not found")
		}
		return nil, apperr.Internal("load project", err)
	}
	if !p.IsOwner(user.ID) && !p.IsAssignedSeller(user.ID) {
		return nil, apperr.Forbidden("only the buyer or the assigned seller can upload files")
	}

	if len(files) == 0 {
		fields := apperr.FieldErrors{}
		fields.Add("files", "at least one file is required")
		return nil, apperr.Validation("No files uploaded", fields)
	}
	if err := s.checkSizes(files); err != nil {
		return nil, err
	}

	records := make([]models.File, 0, len(files))
	for _, fh := range files {
		rec, err := s.store(fh, projectID)
		if err != nil {
			s.discard(records)
			return nil, err
		}
		records = append(records, rec)
	}

	if err := db.Create(&records).Error; err != nil {
		s.discard(records)
		return nil, apperr.Internal("save file records", err)
	}

	s.Log.WithFields(logrus.Fields{
		"project_id": projectID,
		"user_id":    user.ID,
		"count":      len(records),
	}).Info("files uploaded")

	if err := db.Preload("Files", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC") }).
		First(&p, "id = ?", projectID).Error; err != nil {
		return nil, apperr.Internal("reload project", err)
	}
	p.ResolveFileURLs(s.BaseURL)
	return &p, nil
}

func (s *Service) checkSizes(files []*multipart.FileHeader) error {
	fields := apperr.FieldErrors{}
	for _, fh := range files {
		switch {
		case fh.Size <= 0:
			fields.Add("files", fmt.Sprintf("%s is empty", fh.Filename))
		case s.MaxBytes > 0 && fh.Size > s.MaxBytes:
			fields.Add("files", fmt.Sprintf("%s exceeds %dMB limit", fh.Filename, s.MaxBytes>>20))
		}
	}
	if len(fields) > 0 {
		return apperr.Validation("Invalid files", fields)
	}
	return nil
}

func (s *Service) store(fh *multipart.FileHeader, projectID uuid.UUID) (models.File, error) {
	mime, err := sniff(fh)
	if err != nil {
		return models.File{}, apperr.Internal("read upload", err)
	}

	stored := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
	path, err := s.Storage.Save(fh, stored)
	if err != nil {
		return models.File{}, apperr.Internal("save upload", err)
	}

	return models.File{
		Name:       filepath.Base(fh.Filename),
		StoredName: stored,
		Path:       path,
		Size:       fh.Size,
		MimeType:   mime,
		ProjectID:  projectID,
	}, nil
}

// discard removes blobs saved before a later step failed.
func (s *Service) discard(records []models.File) {
	for _, r := range records {
		if err := s.Storage.Remove(r.StoredName); err != nil {
			s.Log.WithError(err).WithField("stored_name", r.StoredName).Warn("remove orphaned upload")
		}
	}
}

// Remove satisfies project.BlobRemover.
func (s *Service) Remove(storedName string) error {
	return s.Storage.Remove(storedName)
}

func sniff(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", err
	}
	return mt.String(), nil
}
