package memory

import (
	"context"
	"sort"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/dbx"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

// EventsRepository implements events.Repository over a Store.
type EventsRepository struct {
	store *Store
	db    dbx.DBTX
}

func NewEventsRepository(store *Store, db dbx.DBTX) *EventsRepository {
	return &EventsRepository{store: store, db: db}
}

func (r *EventsRepository) Create(_ context.Context, event *models.Event) (*models.Event, error) {
	defer r.store.lock(r.db)()

	r.store.lastEventID++
	now := r.store.now()

	event.ID = r.store.lastEventID
	event.CreatedAt = now
	event.UpdatedAt = now
	r.store.events[event.ID] = cloneEvent(*event)

	return event, nil
}

func (r *EventsRepository) GetByID(_ context.Context, id int64) (*models.Event, error) {
	defer r.store.lock(r.db)()

	e, ok := r.store.events[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := cloneEvent(e)
	return &c, nil
}

func (r *EventsRepository) List(_ context.Context, page models.Page) ([]models.Event, error) {
	defer r.store.lock(r.db)()

	all := make([]models.Event, 0, len(r.store.events))
	for _, e := range r.store.events {
		all = append(all, cloneEvent(e))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.Before(all[j].Date)
		}
		return all[i].ID < all[j].ID
	})

	if page.Offset >= len(all) {
		return []models.Event{}, nil
	}
	all = all[page.Offset:]
	if page.Limit > 0 && page.Limit < len(all) {
		all = all[:page.Limit]
	}
	return all, nil
}

func (r *EventsRepository) Update(_ context.Context, event *models.Event) (*models.Event, error) {
	defer r.store.lock(r.db)()

	e, ok := r.store.owned(event.ID, event.CreatedBy)
	if !ok {
		return nil, common.ErrorNotFound
	}

	e.Title = event.Title
	e.Description = event.Description
	e.Date = event.Date
	e.UpdatedAt = r.store.now()
	r.store.events[e.ID] = cloneEvent(e)

	c := cloneEvent(e)
	return &c, nil
}

func (r *EventsRepository) Delete(_ context.Context, id, ownerID int64) error {
	defer r.store.lock(r.db)()

	if _, ok := r.store.owned(id, ownerID); !ok {
		return common.ErrorNotFound
	}
	delete(r.store.events, id)
	return nil
}

func (r *EventsRepository) SetImage(_ context.Context, id, ownerID int64, imageURL string) (*models.Event, error) {
	defer r.store.lock(r.db)()

	e, ok := r.store.owned(id, ownerID)
	if !ok {
		return nil, common.ErrorNotFound
	}

	e.ImageURL = &imageURL
	e.UpdatedAt = r.store.now()
	r.store.events[id] = cloneEvent(e)

	c := cloneEvent(e)
	return &c, nil
}

func (s *Store) owned(id, ownerID int64) (models.Event, bool) {
	e, ok := s.events[id]
	if !ok || e.CreatedBy != ownerID {
		return models.Event{}, false
	}
	return e, true
}

func cloneEvent(e models.Event) models.Event {
	if e.Description != nil {
		d := *e.Description
		e.Description = &d
	}
	if e.ImageURL != nil {
		u := *e.ImageURL
		e.ImageURL = &u
	}
	return e
}
