package orders

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lv-paperledger/internal/httputil"
	"lv-paperledger/internal/model"
	"lv-paperledger/internal/store"
	"lv-paperledger/internal/tradeerr"
	"lv-paperledger/internal/types"
)

type Handler struct {
	exec  *Executor
	store store.Store
}

func NewHandler(exec *Executor, st store.Store) *Handler {
	return &Handler{exec: exec, store: st}
}

type placeOrderRequest struct {
	InstrumentID string      `json:"instrument_id"`
	Side         string      `json:"side"`
	Kind         string      `json:"kind"`
	Qty          json.Number `json:"qty"`
}

func (h *Handler) Place(w http.ResponseWriter, r *http.Request, accountID string) {
	var req placeOrderRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error(), Kind: string(tradeerr.KindInvalidOrder)})
		return
	}
	qty, err := strconv.ParseInt(req.Qty.String(), 10, 64)
	if err != nil {
		writeError(w, tradeerr.Newf(tradeerr.KindInvalidQuantity, "quantity must be a positive integer, got %q", req.Qty.String()))
		return
	}
	tr, err := h.exec.Execute(r.Context(), PlaceOrderRequest{
		AccountID:    accountID,
		InstrumentID: strings.TrimSpace(req.InstrumentID),
		Side:         types.OrderSide(strings.ToUpper(strings.TrimSpace(req.Side))),
		Kind:         types.OrderKind(strings.ToUpper(strings.TrimSpace(req.Kind))),
		Qty:          qty,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tr)
}

func (h *Handler) Account(w http.ResponseWriter, r *http.Request, accountID string) {
	acct, err := h.store.GetAccount(r.Context(), accountID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, tradeerr.Newf(tradeerr.KindAccountNotFound, "account %s does not exist", accountID))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, acct)
}

type positionsResponse struct {
	Equity  []model.EquityPosition  `json:"equity"`
	Futures []model.FuturesPosition `json:"futures"`
	Options []model.OptionsPosition `json:"options"`
}

func (h *Handler) Positions(w http.ResponseWriter, r *http.Request, accountID string) {
	ctx := r.Context()
	out := positionsResponse{
		Equity:  []model.EquityPosition{},
		Futures: []model.FuturesPosition{},
		Options: []model.OptionsPosition{},
	}
	eq, err := h.store.ListEquityPositions(ctx, accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	fut, err := h.store.ListFuturesPositions(ctx, accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	opt, err := h.store.ListOptionsPositions(ctx, accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	out.Equity = append(out.Equity, eq...)
	out.Futures = append(out.Futures, fut...)
	out.Options = append(out.Options, opt...)
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request, accountID string) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}
	var before *time.Time
	if v := q.Get("before"); v != "" {
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid before, want RFC3339"})
			return
		}
		before = &ts
	}
	items, err := h.store.ListTransactions(r.Context(), accountID, before, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []model.Transaction{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

// StatusFor maps an order error to the HTTP status it is reported with.
func StatusFor(err error) int {
	kind, ok := tradeerr.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case tradeerr.KindInvalidQuantity, tradeerr.KindInvalidOrder:
		return http.StatusBadRequest
	case tradeerr.KindInstrumentNotFound, tradeerr.KindAccountNotFound:
		return http.StatusNotFound
	case tradeerr.KindContractExpired, tradeerr.KindCannotSellUnownedOption:
		return http.StatusConflict
	case tradeerr.KindInsufficientFunds, tradeerr.KindInsufficientHoldings:
		return http.StatusUnprocessableEntity
	case tradeerr.KindConcurrencyConflict, tradeerr.KindPersistenceFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind, _ := tradeerr.KindOf(err)
	resp := httputil.ErrorResponse{Error: tradeerr.Reason(err), Kind: string(kind), Retryable: tradeerr.IsRetryable(err)}
	if kind == "" {
		resp.Error = "internal error"
	}
	httputil.WriteJSON(w, StatusFor(err), resp)
}
