package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GregMSThompson/crm-dashboard/internal/errs"
	"github.com/GregMSThompson/crm-dashboard/internal/models"
	"github.com/GregMSThompson/crm-dashboard/pkg/logger"
)

// pgUniqueViolation is the SQLSTATE of a primary key clash.
const pgUniqueViolation = "23505"

// ConnectPostgres opens and pings a pgx pool.
func ConnectPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.FromContext(ctx).Info("database connection established", "db", "PostgreSQL")
	return pool, nil
}

type pgWidgetStore struct {
	pool *pgxpool.Pool
}

func NewPostgresWidgetStore(pool *pgxpool.Pool) *pgWidgetStore {
	return &pgWidgetStore{pool: pool}
}

const insertWidgetSQL = `
INSERT INTO crm_widgets
    (widget_id, title, layout, position, chart_type, data_source_title, jaql, widget_oid, dashboard_oid, saved_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, NULLIF($8, ''), NULLIF($9, ''), $10)`

const selectWidgetsSQL = `
SELECT widget_id, title, layout, position,
       COALESCE(chart_type, ''), COALESCE(data_source_title, ''), jaql,
       COALESCE(widget_oid, ''), COALESCE(dashboard_oid, ''), saved_at
FROM crm_widgets
ORDER BY position, widget_id`

// ReplaceAll deletes every row and inserts records in one transaction.
func (s *pgWidgetStore) ReplaceAll(ctx context.Context, records []models.WidgetRecord) error {
	batch := &pgx.Batch{}
	for _, rec := range records {
		if rec.WidgetID == "" {
			return errs.NewValidationError("widget record without widget_id")
		}
		args, err := widgetArgs(rec)
		if err != nil {
			return errs.NewDatabaseError("replace", "failed to encode widget record", err)
		}
		batch.Queue(insertWidgetSQL, args...)
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM crm_widgets`); err != nil {
			return err
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		logger.FromContext(ctx).Error("widget replace failed", "records", len(records), "error", err)
		return errs.NewDatabaseError("replace", "failed to replace widgets", err)
	}
	return nil
}

func widgetArgs(rec models.WidgetRecord) ([]any, error) {
	layout, err := nullableJSON(rec.Layout, rec.Layout == nil)
	if err != nil {
		return nil, err
	}
	jaql, err := nullableJSON(rec.JAQL, rec.JAQL == nil)
	if err != nil {
		return nil, err
	}
	savedAt := rec.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}
	return []any{
		rec.WidgetID, rec.Title, layout, rec.Position, rec.ChartType, rec.DataSourceTitle,
		jaql, rec.WidgetOid, rec.DashboardOid, savedAt,
	}, nil
}

func nullableJSON(v any, isNil bool) ([]byte, error) {
	if isNil {
		return nil, nil
	}
	return json.Marshal(v)
}

func (s *pgWidgetStore) List(ctx context.Context) ([]models.WidgetRecord, error) {
	rows, err := s.pool.Query(ctx, selectWidgetsSQL)
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list widgets", err)
	}
	defer rows.Close()

	var records []models.WidgetRecord
	for rows.Next() {
		var (
			rec          models.WidgetRecord
			layout, jaql []byte
		)
		if err := rows.Scan(&rec.WidgetID, &rec.Title, &layout, &rec.Position, &rec.ChartType,
			&rec.DataSourceTitle, &jaql, &rec.WidgetOid, &rec.DashboardOid, &rec.SavedAt); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to scan widget row", err)
		}
		if layout != nil {
			rec.Layout = &models.LayoutItem{}
			if err := json.Unmarshal(layout, rec.Layout); err != nil {
				return nil, errs.NewDatabaseError("read", "failed to parse widget layout", err)
			}
		}
		if jaql != nil {
			rec.JAQL = &models.JAQL{}
			if err := json.Unmarshal(jaql, rec.JAQL); err != nil {
				return nil, errs.NewDatabaseError("read", "failed to parse widget jaql", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list widgets", err)
	}
	return records, nil
}

type pgViewStore struct {
	pool *pgxpool.Pool
}

func NewPostgresViewStore(pool *pgxpool.Pool) *pgViewStore {
	return &pgViewStore{pool: pool}
}

func (s *pgViewStore) SaveView(ctx context.Context, v *models.View) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	widgets, err := json.Marshal(v.Widgets)
	if err != nil {
		return errs.NewDatabaseError("create", "failed to encode view widgets", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO crm_views (view_id, folder_id, name, theme, widgets, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		v.ViewID, v.FolderID, v.Name, v.Theme, widgets, v.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return errs.NewAlreadyExistsError("view already exists")
		}
		return errs.NewDatabaseError("create", "failed to create view", err)
	}
	return nil
}

func (s *pgViewStore) ListViews(ctx context.Context, folderID string) ([]*models.View, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT view_id, folder_id, name, theme, widgets, created_at
		 FROM crm_views WHERE folder_id = $1 ORDER BY created_at DESC`, folderID)
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list views", err)
	}
	defer rows.Close()

	var views []*models.View
	for rows.Next() {
		var (
			v       models.View
			widgets []byte
		)
		if err := rows.Scan(&v.ViewID, &v.FolderID, &v.Name, &v.Theme, &widgets, &v.CreatedAt); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to scan view row", err)
		}
		if err := json.Unmarshal(widgets, &v.Widgets); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse view widgets", err)
		}
		views = append(views, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list views", err)
	}
	return views, nil
}
