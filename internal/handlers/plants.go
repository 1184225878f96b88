package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/plant-journal-backend/internal/services"
)

const (
	// ImageField is the multipart field carrying the photo.
	ImageField = "image"
	// IdempotencyHeader lets clients retry a create without duplicating it.
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	readTimeout   = 5 * time.Second
	uploadTimeout = 30 * time.Second
)

// PlantHandler serves the journal entry and comment routes.
type PlantHandler struct {
	plants         *services.PlantService
	maxUploadBytes int64
}

func NewPlantHandler(plants *services.PlantService, maxUploadBytes int64) *PlantHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &PlantHandler{plants: plants, maxUploadBytes: maxUploadBytes}
}

// ListPlants returns every entry, newest first.
func (h *PlantHandler) ListPlants(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	plants, err := h.plants.List(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plants)
}

// CreatePlant accepts multipart title, description and image.
func (h *PlantHandler) CreatePlant(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	upload, closeFile, err := formImage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer closeFile()

	ctx, cancel := context.WithTimeout(r.Context(), uploadTimeout)
	defer cancel()

	plant, replayed, err := h.plants.Create(ctx, services.CreatePlantInput{
		Title:          r.FormValue("title"),
		Description:    r.FormValue("description"),
		Image:          upload,
		IdempotencyKey: strings.TrimSpace(r.Header.Get(IdempotencyHeader)),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if replayed {
		w.Header().Set(ReplayedHeader, "true")
	}
	writeJSON(w, http.StatusCreated, plant)
}

// UpdatePlant changes any of title, description, date and image.
func (h *PlantHandler) UpdatePlant(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	in := services.UpdatePlantInput{
		Title:       formField(r, "title"),
		Description: formField(r, "description"),
	}
	if raw := formField(r, "date"); raw != nil && strings.TrimSpace(*raw) != "" {
		d, ok := parseDate(*raw)
		if !ok {
			writeMessage(w, http.StatusBadRequest, MsgInvalidDate)
			return
		}
		in.Date = &d
	}

	upload, closeFile, err := formImage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer closeFile()
	in.Image = upload

	ctx, cancel := context.WithTimeout(r.Context(), uploadTimeout)
	defer cancel()

	plant, err := h.plants.Update(ctx, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plant)
}

func (h *PlantHandler) DeletePlant(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	if err := h.plants.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, MsgPlantRemoved)
}

// parseForm reads a multipart or urlencoded body within the upload limit.
// It writes the error response and returns false when the body is unusable.
func (h *PlantHandler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	err := r.ParseMultipartForm(h.maxUploadBytes)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeMessage(w, http.StatusBadRequest, MsgImageTooLarge)
		return false
	}
	writeMessage(w, http.StatusBadRequest, MsgInvalidBody)
	return false
}

// formImage returns the uploaded image or nil when the field is absent.
func formImage(r *http.Request) (*services.Upload, func(), error) {
	noop := func() {}
	if r.MultipartForm == nil {
		return nil, noop, nil
	}
	file, header, err := r.FormFile(ImageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, noop, nil
		}
		return nil, noop, err
	}
	return uploadFrom(file, header), func() { file.Close() }, nil
}

func uploadFrom(file multipart.File, header *multipart.FileHeader) *services.Upload {
	return &services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
}

// formField returns a pointer to the submitted value, or nil when the field
// was not sent at all.
func formField(r *http.Request, key string) *string {
	vals, ok := r.PostForm[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
