package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dermafill/storefront-backend/api/responses"
	"github.com/dermafill/storefront-backend/api/validators"
	"github.com/dermafill/storefront-backend/internal/approvals"
	"github.com/dermafill/storefront-backend/internal/users"
	"github.com/dermafill/storefront-backend/pkg/enums"
	pkgerrors "github.com/dermafill/storefront-backend/pkg/errors"
	"github.com/dermafill/storefront-backend/pkg/logger"
	"github.com/dermafill/storefront-backend/pkg/pagination"
)

type approvalsService interface {
	ListPending(ctx context.Context, params pagination.Params) (*pagination.Page[users.UserDTO], error)
	ListCustomers(ctx context.Context, filter users.ListFilter, params pagination.Params) (*pagination.Page[users.UserDTO], error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*users.UserDTO, error)
	Summary(ctx context.Context) (*approvals.Summary, error)
	Approve(ctx context.Context, adminID, userID uuid.UUID) (*users.UserDTO, error)
	Reject(ctx context.Context, adminID, userID uuid.UUID, reason string) (*users.UserDTO, error)
}

// AdminPendingApprovals lists the review queue, oldest first.
func AdminPendingApprovals(svc approvalsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approvals service unavailable"))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListPending(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// AdminCustomers lists customers filtered by ?status=, ?location= and ?q=.
func AdminCustomers(svc approvalsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approvals service unavailable"))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		filter := users.ListFilter{Search: validators.SanitizeString(query.Get("q"), 100)}
		if raw := strings.TrimSpace(query.Get("status")); raw != "" {
			status, err := enums.ParseApprovalStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
					WithDetails(map[string]any{"field": "status"}))
				return
			}
			filter.Status = &status
		}
		if raw := strings.TrimSpace(query.Get("location")); raw != "" {
			loc, err := enums.ParseLocation(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid location").
					WithDetails(map[string]any{"field": "location"}))
				return
			}
			filter.Location = &loc
		}

		page, err := svc.ListCustomers(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminCustomerDetail(svc approvalsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approvals service unavailable"))
			return
		}
		userID, err := validators.ParseURLUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.GetCustomer(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// AdminApprovalSummary counts customers per approval state for the dashboard.
func AdminApprovalSummary(svc approvalsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approvals service unavailable"))
			return
		}
		summary, err := svc.Summary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func AdminApprove(svc approvalsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approvals service unavailable"))
			return
		}
		adminID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.ParseURLUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Approve(r.Context(), adminID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// AdminReject records a rejection. A reason is mandatory so the customer can
// be told why.
func AdminReject(svc approvalsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approvals service unavailable"))
			return
		}
		adminID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.ParseURLUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body approvals.RejectRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.Reject(r.Context(), adminID, userID, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
