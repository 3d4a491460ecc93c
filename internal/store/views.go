package store

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GregMSThompson/crm-dashboard/internal/errs"
	"github.com/GregMSThompson/crm-dashboard/internal/models"
)

const ViewsCollection = "crm_views"

type viewDoc struct {
	ViewID    string      `firestore:"viewId"`
	FolderID  string      `firestore:"folderId"`
	Name      string      `firestore:"name"`
	Theme     string      `firestore:"theme"`
	Widgets   []widgetDoc `firestore:"widgets"`
	CreatedAt time.Time   `firestore:"createdAt"`
}

type viewStore struct {
	client *firestore.Client
}

func NewViewStore(client *firestore.Client) *viewStore {
	return &viewStore{client: client}
}

func (s *viewStore) collection() *firestore.CollectionRef {
	return s.client.Collection(ViewsCollection)
}

func (s *viewStore) SaveView(ctx context.Context, v *models.View) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	d := viewDoc{
		ViewID:    v.ViewID,
		FolderID:  v.FolderID,
		Name:      v.Name,
		Theme:     v.Theme,
		Widgets:   make([]widgetDoc, 0, len(v.Widgets)),
		CreatedAt: v.CreatedAt,
	}
	for _, rec := range v.Widgets {
		wd, err := toDoc(rec)
		if err != nil {
			return errs.NewDatabaseError("create", "failed to encode view widget", err)
		}
		d.Widgets = append(d.Widgets, wd)
	}

	if _, err := s.collection().Doc(v.ViewID).Create(ctx, d); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errs.NewAlreadyExistsError("view already exists")
		}
		return errs.NewDatabaseError("create", "failed to create view", err)
	}
	return nil
}

// ListViews returns the views of one folder, newest first.
func (s *viewStore) ListViews(ctx context.Context, folderID string) ([]*models.View, error) {
	docs, err := s.collection().Where("folderId", "==", folderID).Documents(ctx).GetAll()
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list views", err)
	}
	views := make([]*models.View, 0, len(docs))
	for _, snap := range docs {
		var d viewDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse view data", err)
		}
		v := &models.View{
			ViewID:    d.ViewID,
			FolderID:  d.FolderID,
			Name:      d.Name,
			Theme:     d.Theme,
			Widgets:   make([]models.WidgetRecord, 0, len(d.Widgets)),
			CreatedAt: d.CreatedAt,
		}
		for _, wd := range d.Widgets {
			rec, err := wd.record()
			if err != nil {
				return nil, errs.NewDatabaseError("read", "failed to parse view widget", err)
			}
			v.Widgets = append(v.Widgets, rec)
		}
		views = append(views, v)
	}
	sortNewestFirst(views)
	return views, nil
}

func sortNewestFirst(views []*models.View) {
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
}
