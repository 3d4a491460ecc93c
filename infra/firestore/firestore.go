package firestore

import (
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/firestore"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/projects"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"
)

// SetupFirestore creates the default native database that holds the
// crm_widgets and crm_views collections. The postgres backend does not need
// it but the stack always provisions it.
func SetupFirestore(ctx *pulumi.Context, prov *gcp.Provider) (*firestore.Database, error) {
	api, err := projects.NewService(ctx, "crmFirestoreApi", &projects.ServiceArgs{
		Service:          pulumi.String("firestore.googleapis.com"),
		DisableOnDestroy: pulumi.Bool(false),
	},
		pulumi.Provider(prov),
	)
	if err != nil {
		return nil, err
	}

	gcpCfg := config.New(ctx, "gcp")
	return firestore.NewDatabase(ctx, "crmDashboardDatabase", &firestore.DatabaseArgs{
		Project:    pulumi.String(gcpCfg.Require("project")),
		Name:       pulumi.String("(default)"),
		LocationId: pulumi.String(gcpCfg.Require("region")),
		Type:       pulumi.String("FIRESTORE_NATIVE"),
		// saved dashboards outlive a stack teardown
		DeletionPolicy: pulumi.String("ABANDON"),
	},
		pulumi.Provider(prov),
		pulumi.DependsOn([]pulumi.Resource{api}),
	)
}
