package controllers

import (
	"net/http"
	"time"

	"github.com/bastianns/tubes-lasti-t08/api/responses"
	"github.com/bastianns/tubes-lasti-t08/api/validators"
	"github.com/bastianns/tubes-lasti-t08/internal/reports"
	pkgerrors "github.com/bastianns/tubes-lasti-t08/pkg/errors"
	"github.com/bastianns/tubes-lasti-t08/pkg/logger"
)

// ReportMonthlySales sums completed sales for one calendar month. The period
// defaults to the current UTC month when the query omits it.
func ReportMonthlySales(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "report service unavailable"))
			return
		}

		now := time.Now().UTC()
		year, err := validators.ParseQueryInt(r, "year", now.Year(), 1, 9999)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		month, err := validators.ParseQueryInt(r, "month", int(now.Month()), 1, 12)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.MonthlySales(r.Context(), year, month)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

// ReportLowStock mirrors the inventory low-stock view for reporting clients.
func ReportLowStock(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "report service unavailable"))
			return
		}

		items, err := svc.LowStock(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, items)
	}
}
