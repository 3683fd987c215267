package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/dbx"
	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/events"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eventhub/internal/server/storage"
)

const (
	maxPageLimit     = 100
	defaultPageLimit = 10
)

type EventInput struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description"`
	Date        string  `json:"date" validate:"required"`
}

// EventPatch carries optional changes; nil fields are left untouched.
type EventPatch struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
}

// EventService manages events and their images. Mutations are scoped to the
// event's creator; other callers see common.ErrorNotFound.
type EventService struct {
	repomanager   repomanager.RepositoryManager
	images        storage.ImageStore
	maxUploadSize int64
	logger        logging.Logger
	now           func() time.Time
}

func NewEventService(m repomanager.RepositoryManager, images storage.ImageStore, maxUploadSize int64, logger logging.Logger) *EventService {
	return &EventService{
		repomanager:   m,
		images:        images,
		maxUploadSize: maxUploadSize,
		logger:        logger.With("module", "events"),
		now:           time.Now,
	}
}

// ParsePage converts the page and limit query values. Both empty means all
// events; a page without a limit uses the default limit.
func ParsePage(pageStr, limitStr string) (models.Page, error) {
	if pageStr == "" && limitStr == "" {
		return models.Page{}, nil
	}

	page := 1
	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p < 1 {
			return models.Page{}, common.NewValidationError("invalid fields", "page")
		}
		page = p
	}

	limit := defaultPageLimit
	if limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 1 || l > maxPageLimit {
			return models.Page{}, common.NewValidationError("invalid fields", "limit")
		}
		limit = l
	}

	return models.Page{Offset: (page - 1) * limit, Limit: limit}, nil
}

func (s *EventService) List(ctx context.Context, page models.Page) ([]models.Event, error) {
	list, err := s.repomanager.Events(s.repomanager.DB()).List(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("error listing events: %w", err)
	}
	return list, nil
}

func (s *EventService) Get(ctx context.Context, id int64) (*models.Event, error) {
	e, err := s.repomanager.Events(s.repomanager.DB()).GetByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound("error loading event", err)
	}
	return e, nil
}

func (s *EventService) Create(ctx context.Context, ownerID int64, in EventInput) (*models.Event, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	date, err := parseEventTime(in.Date)
	if err != nil {
		return nil, err
	}

	e, err := s.repomanager.Events(s.repomanager.DB()).Create(ctx, &models.Event{
		Title:       in.Title,
		Description: in.Description,
		Date:        date,
		CreatedBy:   ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating event: %w", err)
	}

	s.logger.Info(ctx, "event created", "event_id", e.ID, "user_id", ownerID)
	return e, nil
}

func (s *EventService) Update(ctx context.Context, ownerID, id int64, in EventPatch) (*models.Event, error) {
	in.Title = trimPtr(in.Title)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	var date *time.Time
	if in.Date != nil {
		d, err := parseEventTime(*in.Date)
		if err != nil {
			return nil, err
		}
		date = &d
	}

	var updated *models.Event
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Events(tx)

		e, err := ownedEvent(ctx, repo, ownerID, id)
		if err != nil {
			return err
		}
		if in.Title != nil {
			e.Title = *in.Title
		}
		if in.Description != nil {
			e.Description = in.Description
		}
		if date != nil {
			e.Date = *date
		}

		updated, err = repo.Update(ctx, e)
		return err
	})
	if err != nil {
		return nil, wrapNotFound("error updating event", err)
	}
	return updated, nil
}

func (s *EventService) Delete(ctx context.Context, ownerID, id int64) error {
	if err := s.repomanager.Events(s.repomanager.DB()).Delete(ctx, id, ownerID); err != nil {
		return wrapNotFound("error deleting event", err)
	}
	s.logger.Info(ctx, "event deleted", "event_id", id, "user_id", ownerID)
	return nil
}

// UploadImage stores a JPEG or PNG image and points the event at it. The
// previous image, if any, is kept in storage.
func (s *EventService) UploadImage(ctx context.Context, ownerID, id int64, data []byte) (*models.Event, error) {
	repo := s.repomanager.Events(s.repomanager.DB())

	if _, err := ownedEvent(ctx, repo, ownerID, id); err != nil {
		return nil, wrapNotFound("error loading event", err)
	}

	if int64(len(data)) > s.maxUploadSize {
		return nil, common.ErrImageTooLarge
	}
	ext, contentType, err := storage.DetectImage(data)
	if err != nil {
		return nil, err
	}

	url, err := s.images.Save(ctx, storage.ObjectName(s.now(), ext), contentType, data)
	if err != nil {
		return nil, fmt.Errorf("error saving image: %w", err)
	}

	e, err := repo.SetImage(ctx, id, ownerID, url)
	if err != nil {
		return nil, wrapNotFound("error updating event image", err)
	}

	s.logger.Info(ctx, "event image uploaded", "event_id", id, "bytes", len(data))
	return e, nil
}

// MaxUploadSize is the largest accepted image in bytes.
func (s *EventService) MaxUploadSize() int64 {
	return s.maxUploadSize
}

func ownedEvent(ctx context.Context, repo events.Repository, ownerID, id int64) (*models.Event, error) {
	e, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.CreatedBy != ownerID {
		return nil, common.ErrorNotFound
	}
	return e, nil
}

func wrapNotFound(msg string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}
