package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"organizer/internal/ai"
	"organizer/internal/auth"
	"organizer/internal/service"
	"organizer/internal/store"
)

const rlsRemediation = `-- Allow authenticated users to read and write %[1]s
alter table public.%[1]s enable row level security;
create policy "%[1]s_authenticated_all" on public.%[1]s
  for all to authenticated
  using (true)
  with check (true);`

const bucketRemediation = `Create the storage bucket %[1]q in the hosted backend dashboard
(Storage > New bucket), mark it public, then retry the upload.
SQL alternative:
insert into storage.buckets (id, name, public) values ('%[1]s', '%[1]s', true);`

// respondError writes err as {"error": message} with the status its kind
// maps to. Storage and policy errors carry setup instructions under
// "remediation".
func respondError(c *gin.Context, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, body)
}

func errorBody(err error) (int, gin.H) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, gin.H{"error": err.Error()}
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, gin.H{"error": err.Error()}
	case errors.Is(err, service.ErrNoCouple), errors.Is(err, service.ErrCoupleFull):
		return http.StatusConflict, gin.H{"error": err.Error()}
	case errors.Is(err, service.ErrAIDisabled):
		return http.StatusServiceUnavailable, gin.H{"error": err.Error()}
	case errors.Is(err, service.ErrNotAnImage):
		return http.StatusUnsupportedMediaType, gin.H{"error": err.Error()}
	case errors.Is(err, service.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()}
	}

	var aiErr *ai.Error
	if errors.As(err, &aiErr) {
		return http.StatusBadGateway, gin.H{"error": aiErr.Message, "overloaded": aiErr.Overloaded}
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		body := gin.H{"error": storeErr.Error(), "kind": storeErr.Kind.String()}
		switch storeErr.Kind {
		case store.KindNotFound:
			return http.StatusNotFound, body
		case store.KindConflict:
			return http.StatusConflict, body
		case store.KindRowLevelSecurity:
			body["remediation"] = fmt.Sprintf(rlsRemediation, storeErr.Table)
			return http.StatusForbidden, body
		case store.KindBucketNotFound:
			body["remediation"] = fmt.Sprintf(bucketRemediation, storeErr.Table)
			return http.StatusServiceUnavailable, body
		case store.KindInvalidInput:
			return http.StatusBadRequest, body
		case store.KindUnavailable:
			return http.StatusServiceUnavailable, body
		}
		return http.StatusInternalServerError, body
	}

	return http.StatusInternalServerError, gin.H{"error": "Internal server error"}
}
