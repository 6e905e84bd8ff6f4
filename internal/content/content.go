// Package content serves the public side of the portal: published lists,
// detail pages by slug, and the contact/booking form submissions.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/models"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/notify"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/store"
)

// Feed is one public listing backed by a table.
type Feed struct {
	Name  string
	Table string
	Sort  string
	Where map[string]any
	// Sluggable feeds expose a detail route.
	Sluggable bool
}

var feeds = map[string]Feed{
	"news":     {Name: "news", Table: "news", Sort: "publication_date:desc", Sluggable: true},
	"blog":     {Name: "blog", Table: "blogposts", Sort: "publication_date:desc", Sluggable: true},
	"events":   {Name: "events", Table: "events", Sort: "event_date:asc", Sluggable: true},
	"sponsors": {Name: "sponsors", Table: "sponsors", Sort: "display_order:asc", Where: map[string]any{"is_active": 1}},
	"banners":  {Name: "banners", Table: "banners", Sort: "display_order:asc", Where: map[string]any{"is_active": 1}},
}

// Feeds returns the feed definitions keyed by route name.
func Feeds() map[string]Feed {
	out := make(map[string]Feed, len(feeds))
	for k, v := range feeds {
		out[k] = v
	}
	return out
}

// Queue accepts notifications for background delivery.
type Queue interface {
	Enqueue(n notify.Notification) bool
}

type Service struct {
	store *store.Store
	queue Queue
	now   func() time.Time
}

// NewService builds the public content service. queue may be nil.
func NewService(st *store.Store, queue Queue) *Service {
	return &Service{store: st, queue: queue, now: time.Now}
}

func feed(name string) (Feed, error) {
	f, ok := feeds[name]
	if !ok {
		return Feed{}, errs.NotFound("feed %q not found", name)
	}
	return f, nil
}

// List returns the published rows of a feed. Store failures degrade to an
// empty list.
func (s *Service) List(ctx context.Context, name string) ([]models.TableRow, error) {
	f, err := feed(name)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Query(ctx, f.Table, store.Filter{Where: f.Where, Sort: f.Sort})
	if err != nil {
		if errors.Is(err, errs.ErrStore) {
			log.Printf("Warning: %s feed unavailable: %v", name, err)
			return []models.TableRow{}, nil
		}
		return nil, err
	}
	if rows == nil {
		rows = []models.TableRow{}
	}
	return rows, nil
}

// BySlug returns one row of a sluggable feed.
func (s *Service) BySlug(ctx context.Context, name, slug string) (models.TableRow, error) {
	f, err := feed(name)
	if err != nil {
		return nil, err
	}
	if !f.Sluggable {
		return nil, errs.NotFound("%s has no detail pages", name)
	}
	if slug == "" {
		return nil, errs.NotFound("%s: empty slug", name)
	}
	return s.store.FindOne(ctx, f.Table, "slug", slug)
}

// submissionTables maps form ids to the table that stores them.
var submissionTables = map[string]string{
	models.FormContact:      "contact_submissions",
	models.FormEventBooking: "eventbookings",
}

// Submit persists a public form submission and queues its notification.
// Unknown form ids are acknowledged without being stored; the returned id
// is then zero.
func (s *Service) Submit(ctx context.Context, sub models.Submission) (int64, error) {
	if sub.FormID == "" {
		return 0, errs.BadRequest("Missing formId")
	}
	table, ok := submissionTables[sub.FormID]
	if !ok {
		log.Printf("Warning: submission for unknown form %q ignored", sub.FormID)
		return 0, nil
	}
	data, err := json.Marshal(sub.Data)
	if err != nil {
		return 0, errs.BadRequest("form data: %v", err)
	}
	row := map[string]any{
		"uniqueness_check": sub.Contact(),
		"form_data":        string(data),
	}
	if sub.FormID == models.FormEventBooking {
		if id, ok := sub.EventID(); ok {
			row["event_id"] = id
		}
	}
	id, err := s.store.Create(ctx, table, row)
	if err != nil {
		return 0, err
	}
	if s.queue != nil {
		s.queue.Enqueue(notify.Notification{
			FormID:      sub.FormID,
			Table:       table,
			RowID:       id,
			Contact:     sub.Contact(),
			Data:        sub.Data,
			SubmittedAt: s.now().UTC(),
		})
	}
	return id, nil
}
