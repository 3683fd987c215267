package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/services"
)

const (
	imageField = "image"
	// multipartOverhead covers boundaries and part headers around the image.
	multipartOverhead = 64 << 10
)

type EventService interface {
	List(ctx context.Context, page models.Page) ([]models.Event, error)
	Get(ctx context.Context, id int64) (*models.Event, error)
	Create(ctx context.Context, ownerID int64, in services.EventInput) (*models.Event, error)
	Update(ctx context.Context, ownerID, id int64, in services.EventPatch) (*models.Event, error)
	Delete(ctx context.Context, ownerID, id int64) error
	UploadImage(ctx context.Context, ownerID, id int64, data []byte) (*models.Event, error)
	MaxUploadSize() int64
}

type EventsHandler struct {
	events EventService
	log    logging.Logger
}

func NewEventsHandler(events EventService, log logging.Logger) *EventsHandler {
	return &EventsHandler{events: events, log: log}
}

type uploadResponse struct {
	Message  string `json:"message"`
	ImageURL string `json:"image_url"`
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := services.ParsePage(q.Get("page"), q.Get("limit"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	h.writeList(w, r, page)
}

// Public lists every event without authentication.
func (h *EventsHandler) Public(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r, models.Page{})
}

func (h *EventsHandler) writeList(w http.ResponseWriter, r *http.Request, page models.Page) {
	list, err := h.events.List(r.Context(), page)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if list == nil {
		list = []models.Event{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.events.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body services.EventInput
	if !decodeJSON(w, r, &body) {
		return
	}
	e, err := h.events.Create(r.Context(), currentUser(r).ID, body)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body services.EventPatch
	if !decodeJSON(w, r, &body) {
		return
	}
	e, err := h.events.Update(r.Context(), currentUser(r).ID, id, body)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.events.Delete(r.Context(), currentUser(r).ID, id); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Event deleted successfully"})
}

func (h *EventsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	limit := h.events.MaxUploadSize()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	file, _, err := r.FormFile(imageField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeServiceError(w, r, h.log, common.ErrImageTooLarge)
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			writeServiceError(w, r, h.log, common.NewMissingFieldsError(imageField))
		default:
			writeError(w, http.StatusBadRequest, "invalid multipart body")
		}
		return
	}
	defer file.Close()

	// One byte past the limit is enough to reject oversized parts.
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	e, err := h.events.UploadImage(r.Context(), currentUser(r).ID, id, data)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	url := ""
	if e.ImageURL != nil {
		url = *e.ImageURL
	}
	writeJSON(w, http.StatusOK, uploadResponse{Message: "Image uploaded successfully", ImageURL: url})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, msgBadID)
		return 0, false
	}
	return id, true
}
