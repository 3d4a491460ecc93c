package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/GregMSThompson/crm-dashboard/internal/errs"
	"github.com/GregMSThompson/crm-dashboard/internal/models"
	"github.com/GregMSThompson/crm-dashboard/pkg/logger"
)

const (
	WidgetsCollection = "crm_widgets"

	// Firestore caps a transaction at 500 writes.
	maxTransactionWrites = 500
)

// widgetDoc is the Firestore shape of a WidgetRecord. The JAQL is held as a
// plain map so its passthrough keys survive.
type widgetDoc struct {
	WidgetID        string             `firestore:"widget_id"`
	Title           string             `firestore:"title"`
	Layout          *models.LayoutItem `firestore:"layout,omitempty"`
	Position        int                `firestore:"position"`
	ChartType       string             `firestore:"chartType,omitempty"`
	DataSourceTitle string             `firestore:"dataSourceTitle,omitempty"`
	JAQL            map[string]any     `firestore:"jaql,omitempty"`
	WidgetOid       string             `firestore:"widgetOid,omitempty"`
	DashboardOid    string             `firestore:"dashboardOid,omitempty"`
	SavedAt         time.Time          `firestore:"savedAt"`
}

func toDoc(rec models.WidgetRecord) (widgetDoc, error) {
	jaql, err := rec.JAQL.AsMap()
	if err != nil {
		return widgetDoc{}, fmt.Errorf("encode jaql of %s: %w", rec.WidgetID, err)
	}
	return widgetDoc{
		WidgetID:        rec.WidgetID,
		Title:           rec.Title,
		Layout:          rec.Layout,
		Position:        rec.Position,
		ChartType:       rec.ChartType,
		DataSourceTitle: rec.DataSourceTitle,
		JAQL:            jaql,
		WidgetOid:       rec.WidgetOid,
		DashboardOid:    rec.DashboardOid,
		SavedAt:         rec.SavedAt,
	}, nil
}

func (d widgetDoc) record() (models.WidgetRecord, error) {
	jaql, err := models.JAQLFromMap(d.JAQL)
	if err != nil {
		return models.WidgetRecord{}, fmt.Errorf("decode jaql of %s: %w", d.WidgetID, err)
	}
	return models.WidgetRecord{
		WidgetID:        d.WidgetID,
		Title:           d.Title,
		Layout:          d.Layout,
		Position:        d.Position,
		ChartType:       d.ChartType,
		DataSourceTitle: d.DataSourceTitle,
		JAQL:            jaql,
		WidgetOid:       d.WidgetOid,
		DashboardOid:    d.DashboardOid,
		SavedAt:         d.SavedAt,
	}, nil
}

type widgetStore struct {
	client *firestore.Client
}

func NewWidgetStore(client *firestore.Client) *widgetStore {
	return &widgetStore{client: client}
}

func (s *widgetStore) collection() *firestore.CollectionRef {
	return s.client.Collection(WidgetsCollection)
}

// ReplaceAll makes the collection hold exactly records. Stale documents are
// deleted and every record is written in one transaction, so readers never
// observe an empty or merged set.
func (s *widgetStore) ReplaceAll(ctx context.Context, records []models.WidgetRecord) error {
	log := logger.FromContext(ctx)

	docs := make(map[string]widgetDoc, len(records))
	for _, rec := range records {
		if rec.WidgetID == "" {
			return errs.NewValidationError("widget record without widget_id")
		}
		d, err := toDoc(rec)
		if err != nil {
			return errs.NewDatabaseError("replace", "failed to encode widget record", err)
		}
		docs[rec.WidgetID] = d
	}

	coll := s.collection()
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var stale []*firestore.DocumentRef
		refs := tx.DocumentRefs(coll)
		for {
			ref, err := refs.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return err
			}
			if _, keep := docs[ref.ID]; !keep {
				stale = append(stale, ref)
			}
		}

		if len(stale)+len(docs) > maxTransactionWrites {
			return errs.NewValidationError(fmt.Sprintf("save exceeds %d writes", maxTransactionWrites))
		}

		for _, ref := range stale {
			if err := tx.Delete(ref); err != nil {
				return err
			}
		}
		for id, d := range docs {
			if err := tx.Set(coll.Doc(id), d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var verr *errs.ValidationError
		if errors.As(err, &verr) {
			return err
		}
		log.Error("widget replace failed", "records", len(records), "error", err)
		return errs.NewDatabaseError("replace", "failed to replace widgets", err)
	}
	return nil
}

// List returns every stored record ordered by position.
func (s *widgetStore) List(ctx context.Context) ([]models.WidgetRecord, error) {
	docs, err := s.collection().Documents(ctx).GetAll()
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list widgets", err)
	}
	records := make([]models.WidgetRecord, 0, len(docs))
	for _, snap := range docs {
		var d widgetDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse widget data", err)
		}
		rec, err := d.record()
		if err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse widget data", err)
		}
		if rec.WidgetID == "" {
			rec.WidgetID = snap.Ref.ID
		}
		records = append(records, rec)
	}
	sortByPosition(records)
	return records, nil
}

func sortByPosition(records []models.WidgetRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Position < records[j].Position
	})
}
