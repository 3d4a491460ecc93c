package docker

import (
	"fmt"

	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/artifactregistry"
	"github.com/pulumi/pulumi-gcp/sdk/v9/go/gcp/projects"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi/config"
)

// RepositoryID is the Artifact Registry repository holding the dashboard
// API images.
const RepositoryID = "crm-dashboard"

// ImageName is the full registry path of an API image tag.
func ImageName(region, projectID, image, tag string) string {
	return fmt.Sprintf("%s-docker.pkg.dev/%s/%s/%s:%s", region, projectID, RepositoryID, image, tag)
}

func CreateDashboardRepo(ctx *pulumi.Context, prov *gcp.Provider) (*artifactregistry.Repository, error) {
	region := config.New(ctx, "gcp").Require("region")

	api, err := projects.NewService(ctx, "crmArtifactRegistryApi", &projects.ServiceArgs{
		Service:          pulumi.String("artifactregistry.googleapis.com"),
		DisableOnDestroy: pulumi.Bool(false),
	},
		pulumi.Provider(prov),
	)
	if err != nil {
		return nil, err
	}

	return artifactregistry.NewRepository(ctx, "crmDashboardRepository", &artifactregistry.RepositoryArgs{
		Format:       pulumi.String("DOCKER"),
		RepositoryId: pulumi.String(RepositoryID),
		Location:     pulumi.String(region),
		Description:  pulumi.String("Images of the CRM dashboard widget API"),
	},
		pulumi.Provider(prov),
		pulumi.DependsOn([]pulumi.Resource{api}),
	)
}
