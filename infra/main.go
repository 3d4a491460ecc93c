package main

import (
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/GregMSThompson/crm-dashboard/infra/cloudrun"
	"github.com/GregMSThompson/crm-dashboard/infra/docker"
	"github.com/GregMSThompson/crm-dashboard/infra/firestore"
	"github.com/GregMSThompson/crm-dashboard/infra/identity"
	"github.com/GregMSThompson/crm-dashboard/infra/provider"
	"github.com/GregMSThompson/crm-dashboard/infra/vertex"
)

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {
		// set default provider with the correct project
		prov, err := provider.SetupDefaultProvider(ctx)
		if err != nil {
			return err
		}

		// enable identity service to allow using firebase
		ident, err := identity.SetupIdentity(ctx, prov)
		if err != nil {
			return err
		}

		// enable firestore and create a database for the project
		db, err := firestore.SetupFirestore(ctx, prov)
		if err != nil {
			return err
		}

		// enable vertex ai for widget insights
		vx, err := vertex.SetupVertex(ctx, prov)
		if err != nil {
			return err
		}

		// registry for the api images
		repo, err := docker.CreateDashboardRepo(ctx, prov)
		if err != nil {
			return err
		}

		apiSA, err := cloudrun.SetupCloudRun(ctx, prov, ident, db, vx, repo)
		if err != nil {
			return err
		}

		ctx.Export("apiServiceAccount", apiSA.Email)
		ctx.Export("imageRepository", repo.Name)

		return nil
	})
}
