package http

import (
	"net/http"
	"strings"

	"nosam/internal/core"
	"nosam/internal/log"
)

type currencyView struct {
	Code   string  `json:"code"`
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Flag   string  `json:"flag"`
	Rate   float64 `json:"rate"`
}

func handleCurrencies(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rates := deps.Table.Rates()
		list := deps.Table.Currencies()
		out := make([]currencyView, 0, len(list))
		for _, c := range list {
			out = append(out, currencyView{
				Code:   c.Code,
				Symbol: c.Symbol,
				Name:   c.Name,
				Flag:   c.Flag,
				Rate:   rates[c.Code],
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"base":       deps.Table.Base(),
			"currencies": out,
		})
	}
}

func handleConvert(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		amount, err := core.ParseAmount(q.Get("amount"))
		if err != nil {
			httpError(w, http.StatusBadRequest, log.ErrorTypeInvalidRequest, "amount must be a non-negative decimal number")
			return
		}
		from := strings.ToUpper(strings.TrimSpace(q.Get("from")))
		to := strings.ToUpper(strings.TrimSpace(q.Get("to")))
		if from == "" || to == "" {
			httpError(w, http.StatusBadRequest, log.ErrorTypeInvalidRequest, "from and to are required")
			return
		}

		result, err := deps.Table.Convert(amount, from, to)
		if err != nil {
			fail(w, r, "convert", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"amount":    amount,
			"from":      from,
			"to":        to,
			"result":    result,
			"formatted": deps.Table.Format(result, to, true),
		})
	}
}

func handleGetDisplayCurrency(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := deps.Settings.DisplayCurrency(r.Context())
		if err != nil {
			fail(w, r, log.OpRead, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"currency": code})
	}
}

func handleSetDisplayCurrency(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Currency string `json:"currency"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		code := strings.ToUpper(strings.TrimSpace(body.Currency))
		if err := deps.Settings.SetDisplayCurrency(r.Context(), code); err != nil {
			fail(w, r, log.OpUpdate, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"currency": code})
	}
}

func handleRefreshRates(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := deps.Refresher.Refresh(r.Context())
		if err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rates refresh failed",
				log.FieldOperation, log.OpRefresh,
				log.FieldError, err)
			httpError(w, http.StatusBadGateway, log.ErrorTypeUpstream, "refresh rates: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
