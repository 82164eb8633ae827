package httpapi

import (
	"context"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
)

type subjectKey struct{}

func WithSubject(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subjectID)
}

func SubjectFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectKey{}).(string)
	return v, ok && v != ""
}

// callerFrom returns the member acting on the request. Guests map to the empty MemberID.
func callerFrom(ctx context.Context) domain.MemberID {
	sub, ok := SubjectFromContext(ctx)
	if !ok {
		return ""
	}
	return domain.MemberFromSubject(domain.SubjectID(sub))
}
