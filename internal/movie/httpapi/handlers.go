package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
	"github.com/romariotrain/streaming-platform/internal/movie/service"
	"github.com/romariotrain/streaming-platform/internal/videohost/bunny"
)

const DefaultMaxUploadBytes = 2 << 30

type Handler struct {
	svc            *service.Service
	logger         zerolog.Logger
	maxUploadBytes int64
}

func New(svc *service.Service, logger zerolog.Logger, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		svc:            svc,
		logger:         logger.With().Str("component", "http_api").Logger(),
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VideoUpdates receives state changes from the video host. It always
// answers 200: the host retries anything else, and a retry will not fix an
// unknown video or a malformed body.
func (h *Handler) VideoUpdates(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	defer writeJSON(w, http.StatusOK, struct{}{})

	var req WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn().Err(err).Msg("invalid webhook body")
		return
	}
	log := h.logger.With().Str("external_id", req.VideoGUID).Logger()
	if req.Status == nil {
		log.Warn().Msg("webhook without status")
		return
	}
	status, ok := bunny.MapWebhookStatus(*req.Status)
	if !ok {
		log.Warn().Int("code", *req.Status).Msg("unknown webhook status")
		return
	}

	if err := h.svc.OnVideoStatusNotification(r.Context(), req.VideoGUID, status); err != nil {
		log.Error().Err(err).Str("status", string(status)).Msg("failed to apply video status")
	}
}

// creator

func (h *Handler) CreateMovie(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	in, files, cleanup, err := parseMovieForm(w, r, h.maxUploadBytes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer cleanup()

	res, err := h.svc.Submit(r.Context(), p.UserID, in, files)
	h.writeSubmit(w, r, http.StatusCreated, res, err)
}

func (h *Handler) UpdateMovie(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	in, files, cleanup, err := parseMovieForm(w, r, h.maxUploadBytes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer cleanup()

	res, err := h.svc.UpdateMovie(r.Context(), p.UserID, id, in, files)
	h.writeSubmit(w, r, http.StatusOK, res, err)
}

// writeSubmit answers a submission. When the record exists but an upload
// failed the client still gets the record, so it can retry the upload.
func (h *Handler) writeSubmit(w http.ResponseWriter, r *http.Request, okStatus int, res *service.SubmitResult, err error) {
	if err == nil {
		writeJSON(w, okStatus, toSubmitResponse(res))
		return
	}
	if res == nil || res.Movie == nil {
		h.writeError(w, r, err)
		return
	}

	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, status, struct {
		Error string `json:"error"`
		SubmitResponse
	}{msg, toSubmitResponse(res)})
}

func (h *Handler) MarkUploads(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req MarkUploadedRequest
	if !h.decode(w, r, &req) {
		return
	}

	m, err := h.svc.MarkUploaded(r.Context(), p.UserID, id, req.MovieUploaded, req.TrailerUploaded)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMovieResponse(m))
}

func (h *Handler) UploadCredentials(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	asset := r.URL.Query().Get("asset")
	if asset == "" {
		asset = string(models.AssetBody)
	}
	kind, err := models.ParseAssetKind(asset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	creds, err := h.svc.UploadCredentials(r.Context(), p.UserID, id, kind)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCredentialsResponse(creds))
}

func (h *Handler) UploadProgress(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	prog, err := h.svc.UploadProgress(r.Context(), p.UserID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]ProgressResponse{
		"movie":   toProgressResponse(prog.Body),
		"trailer": toProgressResponse(prog.Trailer),
	})
}

func (h *Handler) ListOwnMovies(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	q, ok := h.pageQuery(w, r)
	if !ok {
		return
	}

	page, err := h.svc.ListOwn(r.Context(), p.UserID, q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PageResponse[MovieResponse]{
		Items:      mapItems(page.Items, toMovieResponse),
		TotalCount: page.TotalCount,
	})
}

func (h *Handler) GetOwnMovie(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	m, err := h.svc.GetOwn(r.Context(), p.UserID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMovieResponse(m))
}

// admin

func (h *Handler) ListAllMovies(w http.ResponseWriter, r *http.Request) {
	q, ok := h.pageQuery(w, r)
	if !ok {
		return
	}

	page, err := h.svc.ListAll(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PageResponse[MovieResponse]{
		Items:      mapItems(page.Items, toMovieResponse),
		TotalCount: page.TotalCount,
	})
}

func (h *Handler) SetMovieStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req SetStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Status == nil {
		h.writeError(w, r, models.NewValidationError("status", "status is required"))
		return
	}

	m, err := h.svc.SetMovieStatus(r.Context(), id, *req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMovieResponse(m))
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	q, ok := h.pageQuery(w, r)
	if !ok {
		return
	}

	page, err := h.svc.ListCategories(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PageResponse[CategoryResponse]{
		Items:      mapItems(page.Items, toCategoryResponse),
		TotalCount: page.TotalCount,
	})
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.svc.CreateCategory(r.Context(), service.CategoryInput{Name: req.Name, Status: req.Status})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(*c))
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req CategoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.svc.UpdateCategory(r.Context(), id, service.CategoryInput{Name: req.Name, Status: req.Status})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(*c))
}

// end user

func (h *Handler) ListPublished(w http.ResponseWriter, r *http.Request) {
	pq, ok := h.pageQuery(w, r)
	if !ok {
		return
	}
	ids, err := parseIDs("categoryIds", r.URL.Query()["categoryIds"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var page models.Page[*models.Movie]
	if typ := service.ListType(r.URL.Query().Get("type")); typ == service.ListRecommended {
		p, _ := PrincipalFrom(r.Context())
		page, err = h.svc.ListRecommended(r.Context(), p.UserID, pq)
	} else {
		page, err = h.svc.ListPublished(r.Context(), service.ListQuery{PageQuery: pq, Type: typ, CategoryIDs: ids})
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PageResponse[PublicMovieResponse]{
		Items:      mapItems(page.Items, toPublicMovieResponse),
		TotalCount: page.TotalCount,
	})
}

func (h *Handler) GetPublished(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	m, err := h.svc.GetPublished(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPublicMovieResponse(m))
}

func (h *Handler) ActiveCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.ActiveCategories(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapItems(cs, toCategoryResponse))
}

func (h *Handler) FavouriteCategories(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	cs, err := h.svc.FavouriteCategories(r.Context(), p.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FavouriteCategoriesResponse{FavouriteCategories: mapItems(cs, toCategoryResponse)})
}

func (h *Handler) SetFavouriteCategories(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	var req FavouriteCategoriesRequest
	if !h.decode(w, r, &req) {
		return
	}

	cs, err := h.svc.SetFavouriteCategories(r.Context(), p.UserID, req.CategoryIDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FavouriteCategoriesResponse{FavouriteCategories: mapItems(cs, toCategoryResponse)})
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	q, ok := h.pageQuery(w, r)
	if !ok {
		return
	}

	d, err := h.svc.Dashboard(r.Context(), p.UserID, q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardResponse(d))
}

// helpers

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func (h *Handler) pageQuery(w http.ResponseWriter, r *http.Request) (service.PageQuery, bool) {
	q := service.PageQuery{Query: r.URL.Query().Get("q")}
	for _, f := range []struct {
		key string
		dst *int
	}{{"page", &q.Page}, {"limit", &q.Limit}} {
		key, dst := f.key, f.dst
		v := r.URL.Query().Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, r, models.NewValidationError(key, "must be a non-negative number"))
			return service.PageQuery{}, false
		}
		*dst = n
	}
	return q, true
}
