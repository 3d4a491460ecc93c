package bootstrap

import (
	"context"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"

	"github.com/GregMSThompson/crm-dashboard/internal/errs"
)

// ResolveSecret reads a Secret Manager version, given as
// projects/*/secrets/*/versions/*.
func ResolveSecret(ctx context.Context, name string) (string, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", errs.NewExternalServiceError("secretmanager", "client init failed", false, err)
	}
	defer client.Close()

	res, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return "", errs.NewExternalServiceError("secretmanager", "access "+name+" failed", false, err)
	}
	return string(res.Payload.GetData()), nil
}
