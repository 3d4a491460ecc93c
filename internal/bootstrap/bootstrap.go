package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"cloud.google.com/go/firestore"
	"firebase.google.com/go/v4/auth"
	"github.com/jackc/pgx/v5/pgxpool"

	biclient "github.com/GregMSThompson/crm-dashboard/internal/client/bi"
	vertexclient "github.com/GregMSThompson/crm-dashboard/internal/client/vertex"
	"github.com/GregMSThompson/crm-dashboard/internal/config"
	"github.com/GregMSThompson/crm-dashboard/internal/store"
	"github.com/GregMSThompson/crm-dashboard/internal/store/migrations"
	"github.com/GregMSThompson/crm-dashboard/pkg/logger"
)

type Bootstrap struct {
	Log           *slog.Logger
	Firestore     *firestore.Client
	Postgres      *pgxpool.Pool
	Firebase      *auth.Client
	VertexAdapter *vertexclient.Adapter
	BI            *biclient.Client
}

func Run(cfg *config.Config) (*Bootstrap, error) {
	var err error
	bs := new(Bootstrap)

	bs.Log = logger.New(cfg.LogLevel, logger.NewCloudRunHandler)
	applicationCtx := logger.ToContext(context.Background(), bs.Log)

	switch cfg.StoreBackend {
	case config.StorePostgres:
		if err = migrations.Run(applicationCtx, cfg.DatabaseURL); err != nil {
			return bs, err
		}
		bs.Postgres, err = store.ConnectPostgres(applicationCtx, cfg.DatabaseURL)
		if err != nil {
			return bs, err
		}
	default:
		bs.Firestore, err = InitFirestore(applicationCtx, cfg.ProjectID)
		if err != nil {
			return bs, err
		}
	}

	if !cfg.AuthDisabled {
		bs.Firebase, err = InitFirebase(applicationCtx)
		if err != nil {
			return bs, err
		}
	}

	token := cfg.BIToken
	if token == "" {
		token, err = ResolveSecret(applicationCtx, cfg.BITokenSecret)
		if err != nil {
			return bs, err
		}
	}
	bs.BI = biclient.New(cfg.BIURL, token)

	if cfg.ProjectID != "" {
		bs.VertexAdapter, err = vertexclient.NewAdapter(applicationCtx, bs.Log, cfg.ProjectID, cfg.Region, cfg.VertexModel)
		if err != nil {
			return bs, err
		}
	} else {
		bs.Log.Warn("no project configured, widget insights are disabled")
	}

	return bs, nil
}

// Close releases every client Run opened. It is safe on a partially
// initialised Bootstrap.
func (bs *Bootstrap) Close() error {
	var errList []error
	if bs.VertexAdapter != nil {
		errList = append(errList, bs.VertexAdapter.Close())
	}
	if bs.Firestore != nil {
		errList = append(errList, bs.Firestore.Close())
	}
	if bs.Postgres != nil {
		bs.Postgres.Close()
	}
	return errors.Join(errList...)
}
