package portalhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/b2b-portal/internal/bulkorder"
	"github.com/odyssey-erp/b2b-portal/internal/cart"
	"github.com/odyssey-erp/b2b-portal/internal/catalog"
	"github.com/odyssey-erp/b2b-portal/internal/catalog/facets"
	"github.com/odyssey-erp/b2b-portal/internal/catalog/lookup"
	"github.com/odyssey-erp/b2b-portal/internal/catalog/query"
	"github.com/odyssey-erp/b2b-portal/internal/platform/httpx"
	"github.com/odyssey-erp/b2b-portal/internal/portal"
	"github.com/odyssey-erp/b2b-portal/jobs"
)

// CartHeader carries the draft cart identifier.
const CartHeader = "X-Cart-ID"

const filterParamPrefix = "f."

// Service is the portal contract used by the handler.
type Service interface {
	ListProducts(ctx context.Context, q portal.ProductQuery) (portal.ProductPage, error)
	Categories(ctx context.Context) ([]string, error)
	Facets(ctx context.Context, category string) ([]facets.ResolvedFilter, error)
	Search(ctx context.Context, q string, limit int) ([]lookup.SearchResult, error)
	FindByCode(ctx context.Context, code string) (lookup.Match, bool, error)
	Reload(ctx context.Context) (catalog.Snapshot, error)
	NewEditor(opts ...bulkorder.EditorOption) *bulkorder.Editor
	SubmitEditor(ctx context.Context, cartID string, editor *bulkorder.Editor) (bulkorder.Outcome, bulkorder.EditorView, error)
	Cart(ctx context.Context, cartID string) (cart.Draft, error)
	ClearCart(ctx context.Context, cartID string) error
}

// ReindexQueue schedules a background catalog reindex.
type ReindexQueue interface {
	EnqueueCatalogReindex(ctx context.Context, payload jobs.CatalogReindexPayload) (*asynq.TaskInfo, error)
}

// Handler serves catalog and bulk order endpoints.
type Handler struct {
	logger   *slog.Logger
	service  Service
	queue    ReindexQueue
	validate *validator.Validate
}

// HandlerOption customises the handler.
type HandlerOption func(*Handler)

// WithReindexQueue enables POST /catalog/reload?async=true.
func WithReindexQueue(queue ReindexQueue) HandlerOption {
	return func(h *Handler) { h.queue = queue }
}

// NewHandler constructs the portal HTTP handler.
func NewHandler(logger *slog.Logger, service Service, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type listParams struct {
	Category string `validate:"max=64"`
	Sort     string
	Page     int `validate:"gte=0,lte=1000000"`
	PageSize int `validate:"gte=0,lte=200"`
}

type searchParams struct {
	Query string `validate:"required,max=200"`
	Limit int    `validate:"gte=0,lte=100"`
}

type bulkRequest struct {
	Text    *string                `json:"text"`
	Entries []bulkorder.OrderEntry `json:"entries" validate:"max=500"`
}

type codeResponse struct {
	Code    string           `json:"code"`
	Product *catalog.Product `json:"product"`
	Variant *catalog.Variant `json:"variant,omitempty"`
}

type parseResponse struct {
	Entries []bulkorder.OrderEntry `json:"entries"`
	Text    string                 `json:"text"`
}

type validateResponse struct {
	bulkorder.Validation
	TextError *bulkorder.LineError `json:"textError,omitempty"`
}

// submitResponse carries the outcome plus the editor surfaces after
// submission: emptied on full success, intact otherwise.
type submitResponse struct {
	bulkorder.Outcome
	Editor bulkorder.EditorView `json:"editor"`
}

type reloadResponse struct {
	Version  int64 `json:"version"`
	Products int   `json:"products"`
}

type reindexResponse struct {
	Status string `json:"status"`
	TaskID string `json:"taskId,omitempty"`
}

func (h *Handler) handleProducts(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	params := listParams{
		Category: strings.TrimSpace(values.Get("category")),
		Sort:     values.Get("sort"),
	}
	var err error
	if params.Page, err = intParam(values.Get("page")); err != nil {
		h.badRequest(w, err)
		return
	}
	if params.PageSize, err = intParam(values.Get("page_size")); err != nil {
		h.badRequest(w, err)
		return
	}
	if err := h.validate.Struct(params); err != nil {
		h.badRequest(w, err)
		return
	}
	sortKey, err := query.ParseSortKey(params.Sort)
	if err != nil {
		h.badRequest(w, err)
		return
	}
	price, err := priceParam(values.Get("price_min"), values.Get("price_max"))
	if err != nil {
		h.badRequest(w, err)
		return
	}

	// Page is applied last; every other mutation resets it to 1.
	state := query.NewListState()
	for name, selected := range values {
		key, ok := strings.CutPrefix(name, filterParamPrefix)
		if !ok {
			continue
		}
		for _, v := range selected {
			if v = strings.TrimSpace(v); v != "" {
				state.AddFilter(key, v)
			}
		}
	}
	state.SetPrice(price)
	state.SetSort(sortKey)
	state.SetPage(params.Page)

	page, err := h.service.ListProducts(r.Context(), portal.ProductQuery{
		Category: params.Category,
		Request:  state.Request(params.PageSize),
	})
	if err != nil {
		h.respondError(w, "list products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) handleFacets(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.service.Facets(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.respondError(w, "resolve facets", err)
		return
	}
	if resolved == nil {
		resolved = []facets.ResolvedFilter{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"filters": resolved})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := searchParams{Query: strings.TrimSpace(r.URL.Query().Get("q"))}
	var err error
	if params.Limit, err = intParam(r.URL.Query().Get("limit")); err != nil {
		h.badRequest(w, err)
		return
	}
	if params.Query == "" {
		httpx.JSON(w, http.StatusOK, map[string]any{"results": []lookup.SearchResult{}})
		return
	}
	if err := h.validate.Struct(params); err != nil {
		h.badRequest(w, err)
		return
	}
	results, err := h.service.Search(r.Context(), params.Query, params.Limit)
	if err != nil {
		h.respondError(w, "search", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) handleCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	match, ok, err := h.service.FindByCode(r.Context(), code)
	if err != nil {
		h.respondError(w, "find code", err)
		return
	}
	if !ok {
		httpx.RespondError(w, fmt.Errorf("%w: code %s", httpx.ErrNotFound, catalog.NormalizeCode(code)))
		return
	}
	httpx.JSON(w, http.StatusOK, codeResponse{
		Code:    catalog.NormalizeCode(code),
		Product: match.Product,
		Variant: match.Variant,
	})
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		h.enqueueReload(w, r)
		return
	}
	snap, err := h.service.Reload(r.Context())
	if err != nil {
		h.respondError(w, "reload catalog", err)
		return
	}
	httpx.JSON(w, http.StatusOK, reloadResponse{Version: snap.Version, Products: len(snap.Products)})
}

func (h *Handler) enqueueReload(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		httpx.RespondError(w, fmt.Errorf("%w: background reindex is not configured", httpx.ErrUnavailable))
		return
	}
	info, err := h.queue.EnqueueCatalogReindex(r.Context(), jobs.CatalogReindexPayload{Reason: "api"})
	if errors.Is(err, asynq.ErrDuplicateTask) {
		httpx.JSON(w, http.StatusAccepted, reindexResponse{Status: "already-queued"})
		return
	}
	if err != nil {
		h.respondError(w, "enqueue reindex", err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, reindexResponse{Status: "queued", TaskID: info.ID})
}

func (h *Handler) handleBulkParse(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBulk(w, r)
	if !ok {
		return
	}
	if req.Text != nil {
		entries := bulkorder.TextToEntries(*req.Text)
		if entries == nil {
			entries = []bulkorder.OrderEntry{}
		}
		httpx.JSON(w, http.StatusOK, parseResponse{Entries: entries, Text: bulkorder.EntriesToText(entries)})
		return
	}
	httpx.JSON(w, http.StatusOK, parseResponse{Entries: req.Entries, Text: bulkorder.EntriesToText(req.Entries)})
}

func (h *Handler) handleBulkValidate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBulk(w, r)
	if !ok {
		return
	}
	if req.Text != nil {
		resp := validateResponse{TextError: bulkorder.ValidatePasteText(*req.Text)}
		if resp.TextError == nil {
			resp.Validation = bulkorder.ValidateEntries(bulkorder.TextToEntries(*req.Text))
		} else {
			resp.Validation = bulkorder.Validation{Errors: []bulkorder.EntryError{}}
		}
		httpx.JSON(w, http.StatusOK, resp)
		return
	}
	httpx.JSON(w, http.StatusOK, validateResponse{Validation: bulkorder.ValidateEntries(req.Entries)})
}

func (h *Handler) handleBulkSubmit(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBulk(w, r)
	if !ok {
		return
	}
	cartID := strings.TrimSpace(r.Header.Get(CartHeader))
	if cartID == "" {
		cartID = cart.NewID()
	}
	cartID, err := cart.ParseID(cartID)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	editor := h.service.NewEditor()
	defer editor.Close()
	if req.Text != nil {
		if lineErr := bulkorder.ValidatePasteText(*req.Text); lineErr != nil {
			httpx.JSON(w, http.StatusUnprocessableEntity, validateResponse{
				Validation: bulkorder.Validation{Errors: []bulkorder.EntryError{}},
				TextError:  lineErr,
			})
			return
		}
		editor.EditText(*req.Text)
	} else {
		editor.EditRows(req.Entries)
	}

	out, view, err := h.service.SubmitEditor(r.Context(), cartID, editor)
	if err != nil {
		h.respondError(w, "submit bulk order", err)
		return
	}
	if view.Entries == nil {
		view.Entries = []bulkorder.OrderEntry{}
	}
	w.Header().Set(CartHeader, cartID)
	status := http.StatusOK
	if out.Validation.HasErrors() {
		status = http.StatusUnprocessableEntity
	}
	httpx.JSON(w, status, submitResponse{Outcome: out, Editor: view})
}

func (h *Handler) handleCart(w http.ResponseWriter, r *http.Request) {
	cartID, err := cart.ParseID(strings.TrimSpace(r.Header.Get(CartHeader)))
	if err != nil {
		h.badRequest(w, err)
		return
	}
	draft, err := h.service.Cart(r.Context(), cartID)
	if err != nil {
		h.respondError(w, "load cart", err)
		return
	}
	httpx.JSON(w, http.StatusOK, draft)
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	cartID, err := cart.ParseID(strings.TrimSpace(r.Header.Get(CartHeader)))
	if err != nil {
		h.badRequest(w, err)
		return
	}
	if err := h.service.ClearCart(r.Context(), cartID); err != nil {
		h.respondError(w, "clear cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		h.respondError(w, "list categories", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *Handler) decodeBulk(w http.ResponseWriter, r *http.Request) (bulkRequest, bool) {
	var req bulkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.badRequest(w, fmt.Errorf("decode body: %w", err))
		return req, false
	}
	if req.Text == nil && req.Entries == nil {
		h.badRequest(w, errors.New("either text or entries is required"))
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, err)
		return req, false
	}
	return req, true
}

func (h *Handler) badRequest(w http.ResponseWriter, err error) {
	httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, query.ErrUnknownFilter), errors.Is(err, query.ErrUnknownSort), errors.Is(err, cart.ErrCartID):
		h.badRequest(w, err)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpx.RespondError(w, fmt.Errorf("%w: request cancelled", httpx.ErrUnavailable))
		return
	case catalog.IsRejected(err):
		h.logger.Warn("catalog rejected", slog.String("op", op), slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUnprocessable, err))
		return
	}
	h.logger.Error("portal request failed", slog.String("op", op), slog.Any("error", err))
	httpx.RespondError(w, err)
}

func intParam(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return v, nil
}

func priceParam(rawMin, rawMax string) (*query.PriceRange, error) {
	rawMin, rawMax = strings.TrimSpace(rawMin), strings.TrimSpace(rawMax)
	if rawMin == "" && rawMax == "" {
		return nil, nil
	}
	pr := query.PriceRange{Min: 0, Max: math.MaxFloat64}
	if rawMin != "" {
		v, err := strconv.ParseFloat(rawMin, 64)
		if err != nil || math.IsNaN(v) {
			return nil, fmt.Errorf("invalid price_min %q", rawMin)
		}
		pr.Min = v
	}
	if rawMax != "" {
		v, err := strconv.ParseFloat(rawMax, 64)
		if err != nil || math.IsNaN(v) {
			return nil, fmt.Errorf("invalid price_max %q", rawMax)
		}
		pr.Max = v
	}
	if pr.Min > pr.Max {
		return nil, fmt.Errorf("price_min %v exceeds price_max %v", pr.Min, pr.Max)
	}
	return &pr, nil
}
