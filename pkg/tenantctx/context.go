package tenantctx

import "context"

type keyType string

const (
	// OrgIDKey carries the tenant (firm) identifier for the request.
	OrgIDKey keyType = "org_id"
)

func OrgID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(OrgIDKey).(int64)
	return id, ok
}

func WithOrgID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, OrgIDKey, id)
}
