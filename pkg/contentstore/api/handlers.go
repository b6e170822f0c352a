// Package api exposes the content store over HTTP. Route handlers stay
// thin: parse the request, call one service operation, render JSON.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/duolang/contentstore/pkg/contentstore"
	"github.com/duolang/contentstore/pkg/contentstore/language"
)

// Handler serves the public and admin content routes.
type Handler struct {
	service contentstore.Service
	auth    *jwtauth.JWTAuth
}

// NewHandler creates a handler. An empty jwtSecret disables the admin
// guard, which is only acceptable for local development.
func NewHandler(service contentstore.Service, jwtSecret string) *Handler {
	h := &Handler{service: service}
	if jwtSecret != "" {
		h.auth = jwtauth.New("HS256", []byte(jwtSecret), nil)
	}
	return h
}

// catalogRoutes lists the record kinds exposed through generic CRUD routes.
var catalogRoutes = []struct {
	path string
	kind contentstore.RecordKind
}{
	{"tech", contentstore.KindTech},
	{"tags", contentstore.KindTag},
	{"custom-fields", contentstore.KindCustomField},
	{"resume-sections", contentstore.KindResumeSection},
}

// Routes builds the full route tree.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(ContentLanguage)

	r.Route("/api", func(r chi.Router) {
		r.Get("/profile", h.GetProfile)
		r.Get("/website-settings", h.GetSettings)
		r.Get("/projects/{key}", h.GetProject)
		r.Get("/attachments", h.ListAttachments)
		r.Get("/assets/presign", h.PresignAsset)
		r.Get("/assets/download", h.DownloadAsset)
		for _, cr := range catalogRoutes {
			r.Get("/"+cr.path, h.listKind(cr.kind))
		}

		r.Route("/admin", func(r chi.Router) {
			if h.auth != nil {
				r.Use(jwtauth.Verifier(h.auth))
				r.Use(jwtauth.Authenticator)
			}
			r.Put("/profile", h.UpdateProfile)
			r.Post("/avatar", h.UploadAvatar)
			r.Post("/background", h.UploadBackground)
			r.Delete("/avatar", h.ClearAvatar)
			r.Post("/favicon", h.UploadFavicon)
			r.Put("/website-settings", h.UpdateSettings)
			r.Post("/tech/icon", h.UploadTechIcon)
			r.Post("/projects", h.CreateProject)
			r.Put("/projects/{key}", h.UpdateProject)
			r.Delete("/projects/{key}", h.DeleteProject)
			r.Post("/projects/{key}/image", h.UploadProjectImage)
			r.Post("/projects/{key}/detail", h.UploadProjectDetail)
			r.Post("/attachments", h.UploadAttachment)
			r.Delete("/attachments/{key}", h.DeleteAttachment)
			for _, cr := range catalogRoutes {
				r.Post("/"+cr.path, h.createKind(cr.kind))
				r.Put("/"+cr.path+"/{key}", h.updateKind(cr.kind))
				r.Delete("/"+cr.path+"/{key}", h.deleteKind(cr.kind))
			}
		})
	})

	return r
}

// recordResponse is the JSON shape of a localized record.
type recordResponse struct {
	Kind       contentstore.RecordKind          `json:"kind"`
	NaturalKey string                           `json:"natural_key"`
	Language   contentstore.Language            `json:"language"`
	Fields     map[string]any                   `json:"fields"`
	Assets     map[contentstore.SlotName]string `json:"assets,omitempty"`
}

func toRecordResponse(rec *contentstore.Record) recordResponse {
	return recordResponse{
		Kind:       rec.Kind,
		NaturalKey: rec.NaturalKey,
		Language:   rec.Language,
		Fields:     rec.Fields,
		Assets:     rec.Assets,
	}
}

// Profile

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	lang := language.FromContext(r.Context())

	rec, err := h.service.GetRecord(r.Context(), contentstore.KindProfile, contentstore.ProfileKey, lang)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Custom fields follow the language the profile actually resolved to,
	// so a fallback response stays internally consistent.
	customFields, err := h.service.ListRecords(r.Context(), contentstore.KindCustomField, rec.Language)
	if err != nil {
		writeError(w, r, err)
		return
	}
	fieldResponses := make([]recordResponse, 0, len(customFields))
	for _, cf := range customFields {
		fieldResponses = append(fieldResponses, toRecordResponse(cf))
	}

	render.JSON(w, r, map[string]any{
		"contentLanguage": rec.Language,
		"profile":         toRecordResponse(rec),
		"customFields":    fieldResponses,
	})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	h.upsertRecord(w, r, contentstore.KindProfile, contentstore.ProfileKey)
}

func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceSlot(w, r, contentstore.KindProfile, contentstore.ProfileKey, contentstore.SlotAvatar)
}

func (h *Handler) UploadBackground(w http.ResponseWriter, r *http.Request) {
	h.replaceSlot(w, r, contentstore.KindProfile, contentstore.ProfileKey, contentstore.SlotBackground)
}

func (h *Handler) ClearAvatar(w http.ResponseWriter, r *http.Request) {
	lang := language.FromContext(r.Context())
	rec, err := h.service.ClearAsset(r.Context(), contentstore.KindProfile, contentstore.ProfileKey, lang, contentstore.SlotAvatar)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, toRecordResponse(rec))
}

// Website settings

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	lang := language.FromContext(r.Context())
	rec, err := h.service.GetRecord(r.Context(), contentstore.KindSettings, contentstore.SettingsKey, lang)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, toRecordResponse(rec))
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	h.upsertRecord(w, r, contentstore.KindSettings, contentstore.SettingsKey)
}

func (h *Handler) UploadFavicon(w http.ResponseWriter, r *http.Request) {
	lang := language.FromContext(r.Context())

	file, header, err := formFile(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	// Validate before touching the record so a rejected upload creates no
	// settings row.
	if err := h.service.ValidateUpload(contentstore.SlotFavicon, header.Filename, header.Header.Get("Content-Type"), header.Size); err != nil {
		writeError(w, r, err)
		return
	}

	// The settings row may not exist yet; create it so the replace has a
	// record to hang the reference on.
	_, err = h.service.UpsertRecord(r.Context(), contentstore.UpsertRecordRequest{
		Kind:       contentstore.KindSettings,
		NaturalKey: contentstore.SettingsKey,
		Language:   lang,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.service.ReplaceAsset(r.Context(), contentstore.ReplaceAssetRequest{
		Kind:       contentstore.KindSettings,
		NaturalKey: contentstore.SettingsKey,
		Language:   lang,
		Slot:       contentstore.SlotFavicon,
		FileName:   header.Filename,
		MimeType:   header.Header.Get("Content-Type"),
		Size:       header.Size,
		Reader:     file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{string(contentstore.SlotFavicon): rec.Assets[contentstore.SlotFavicon]})
}

// Tech stack

func (h *Handler) UploadTechIcon(w http.ResponseWriter, r *http.Request) {
	file, header, err := formFile(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	url, err := h.service.UploadAsset(r.Context(), contentstore.UploadAssetRequest{
		Slot:     contentstore.SlotIcon,
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Reader:   file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"iconUrl": url})
}

// Projects

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	h.upsertRecord(w, r, contentstore.KindProject, uuid.NewString())
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	lang := language.FromContext(r.Context())
	rec, err := h.service.GetRecord(r.Context(), contentstore.KindProject, chi.URLParam(r, "key"), lang)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, toRecordResponse(rec))
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	h.upsertRecord(w, r, contentstore.KindProject, chi.URLParam(r, "key"))
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRecord(r.Context(), contentstore.KindProject, chi.URLParam(r, "key")); err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]bool{"deleted": true})
}

func (h *Handler) UploadProjectImage(w http.ResponseWriter, r *http.Request) {
	h.replaceSlot(w, r, contentstore.KindProject, chi.URLParam(r, "key"), contentstore.SlotImage)
}

func (h *Handler) UploadProjectDetail(w http.ResponseWriter, r *http.Request) {
	h.replaceSlot(w, r, contentstore.KindProject, chi.URLParam(r, "key"), contentstore.SlotDetailDocument)
}

// Attachments

func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	lang := language.FromContext(r.Context())

	file, header, err := formFile(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	// Validate before persisting anything: a rejected upload must leave no
	// orphaned file record behind.
	if err := h.service.ValidateUpload(contentstore.SlotAttachment, header.Filename, header.Header.Get("Content-Type"), header.Size); err != nil {
		writeError(w, r, err)
		return
	}

	fields := map[string]any{
		"name": header.Filename,
		"type": header.Header.Get("Content-Type"),
		"size": header.Size,
	}
	if tags := r.FormValue("tags"); tags != "" {
		var parsed []string
		if err := json.Unmarshal([]byte(tags), &parsed); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "tags must be a JSON string array"})
			return
		}
		fields["tags"] = parsed
	}

	rec, err := h.service.UpsertRecord(r.Context(), contentstore.UpsertRecordRequest{
		Kind:       contentstore.KindFile,
		NaturalKey: uuid.NewString(),
		Language:   lang,
		Fields:     fields,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err = h.service.ReplaceAsset(r.Context(), contentstore.ReplaceAssetRequest{
		Kind:       contentstore.KindFile,
		NaturalKey: rec.NaturalKey,
		Language:   rec.Language,
		Slot:       contentstore.SlotAttachment,
		FileName:   header.Filename,
		MimeType:   header.Header.Get("Content-Type"),
		Size:       header.Size,
		Reader:     file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toRecordResponse(rec))
}

func (h *Handler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	lang := language.FromContext(r.Context())
	records, err := h.service.ListRecords(r.Context(), contentstore.KindFile, lang)
	if err != nil {
		writeError(w, r, err)
		return
	}
	responses := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		responses = append(responses, toRecordResponse(rec))
	}
	render.JSON(w, r, responses)
}

func (h *Handler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRecord(r.Context(), contentstore.KindFile, chi.URLParam(r, "key")); err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]bool{"deleted": true})
}

// Catalog kinds (tech entries, tags, custom fields, resume sections)

func (h *Handler) listKind(kind contentstore.RecordKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := language.FromContext(r.Context())
		records, err := h.service.ListRecords(r.Context(), kind, lang)
		if err != nil {
			writeError(w, r, err)
			return
		}
		responses := make([]recordResponse, 0, len(records))
		for _, rec := range records {
			responses = append(responses, toRecordResponse(rec))
		}
		render.JSON(w, r, responses)
	}
}

func (h *Handler) createKind(kind contentstore.RecordKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.upsertRecord(w, r, kind, uuid.NewString())
	}
}

func (h *Handler) updateKind(kind contentstore.RecordKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.upsertRecord(w, r, kind, chi.URLParam(r, "key"))
	}
}

func (h *Handler) deleteKind(kind contentstore.RecordKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.service.DeleteRecord(r.Context(), kind, chi.URLParam(r, "key")); err != nil {
			writeError(w, r, err)
			return
		}
		render.JSON(w, r, map[string]bool{"deleted": true})
	}
}

// Assets

func (h *Handler) PresignAsset(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		key = r.URL.Query().Get("url")
	}
	if key == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "key is required"})
		return
	}
	url, err := h.service.PresignAsset(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"url": url})
}

func (h *Handler) DownloadAsset(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		key = r.URL.Query().Get("url")
	}
	if key == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "key is required"})
		return
	}
	reader, err := h.service.DownloadAsset(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, reader); err != nil {
		slog.Error("asset download stream failed", "key", key, "err", err)
	}
}

// Helpers

func (h *Handler) upsertRecord(w http.ResponseWriter, r *http.Request, kind contentstore.RecordKind, naturalKey string) {
	lang := language.FromContext(r.Context())

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		slog.Error("failed to decode record payload", "kind", kind, "err", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid JSON payload"})
		return
	}

	rec, err := h.service.UpsertRecord(r.Context(), contentstore.UpsertRecordRequest{
		Kind:       kind,
		NaturalKey: naturalKey,
		Language:   lang,
		Fields:     fields,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, toRecordResponse(rec))
}

// replaceSlot runs the asset replace protocol for one slot of one record
// and responds with the slot's new URL.
func (h *Handler) replaceSlot(w http.ResponseWriter, r *http.Request, kind contentstore.RecordKind, naturalKey string, slot contentstore.SlotName) {
	lang := language.FromContext(r.Context())

	file, header, err := formFile(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	rec, err := h.service.ReplaceAsset(r.Context(), contentstore.ReplaceAssetRequest{
		Kind:       kind,
		NaturalKey: naturalKey,
		Language:   lang,
		Slot:       slot,
		FileName:   header.Filename,
		MimeType:   header.Header.Get("Content-Type"),
		Size:       header.Size,
		Reader:     file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]string{string(slot): rec.Assets[slot]})
}

func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, &contentstore.ValidationError{Err: contentstore.ErrMissingFile}
	}
	return file, header, nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *contentstore.ValidationError
	switch {
	case errors.As(err, &validation):
		render.Status(r, http.StatusBadRequest)
	case errors.Is(err, contentstore.ErrRecordNotFound), errors.Is(err, contentstore.ErrObjectNotFound):
		render.Status(r, http.StatusNotFound)
	default:
		slog.Error("request failed", "path", r.URL.Path, "err", err)
		render.Status(r, http.StatusInternalServerError)
	}
	render.JSON(w, r, map[string]string{"error": err.Error()})
}
