package images

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/codingvibe/go-live-api/golive"
	"github.com/codingvibe/go-live-api/internal/algorithms"
	"github.com/codingvibe/go-live-api/internal/httpx"
	"github.com/codingvibe/go-live-api/internal/snowflake"
	"github.com/codingvibe/go-live-api/internal/to"
	"github.com/codingvibe/go-live-api/models"
	"github.com/go-chi/chi/v5"
)

// imageJSON is the wire form of an image. IDs travel as strings; they are
// 64 bit and JSON numbers are not.
type imageJSON struct {
	ID      string `json:"id,omitempty"`
	URL     string `json:"url"`
	AltText string `json:"altText,omitempty"`
}

func toWire(img models.Image) imageJSON {
	return imageJSON{
		ID:      strconv.FormatUint(uint64(img.ID), 10),
		URL:     img.URL,
		AltText: img.AltText,
	}
}

func fromWire(w imageJSON) (models.Image, error) {
	img := models.Image{URL: w.URL, AltText: w.AltText}
	if w.ID != "" {
		id, err := strconv.ParseUint(w.ID, 10, 64)
		if err != nil {
			return models.Image{}, fmt.Errorf("malformed image id %q: %w", w.ID, err)
		}
		img.ID = snowflake.ID(id)
	}
	return img, nil
}

// checkURLs rejects the batch if any image fails validation, naming every
// offending URL so the client can fix them all in one go.
func checkURLs(env *golive.Env, r *http.Request, imgs []models.Image) error {
	for _, img := range imgs {
		if img.URL == "" {
			return httpx.Error(http.StatusBadRequest, fmt.Errorf("image url is required"))
		}
	}
	urls := algorithms.Map(imgs, func(img models.Image) string { return img.URL })
	if invalid := env.Validator.Check(r.Context(), urls); len(invalid) > 0 {
		return httpx.Error(http.StatusBadRequest, fmt.Errorf("invalid images: %s", strings.Join(invalid, ", ")))
	}
	return nil
}

// Index returns the authenticated user's images.
func Index(env *golive.Env, w http.ResponseWriter, r *http.Request) error {
	user, err := env.Authenticate(r)
	if err != nil {
		return err
	}
	imgs, err := models.NewImages(env.DB).ForUser(user.TwitchID)
	if err != nil {
		return err
	}
	return to.JSON(w, algorithms.Map(imgs, toWire))
}

// Create appends new images to the user's set. Submitted images carry no
// IDs; the store mints them.
func Create(env *golive.Env, w http.ResponseWriter, r *http.Request) error {
	user, err := env.Authenticate(r)
	if err != nil {
		return err
	}
	var body []imageJSON
	if err := httpx.Params(r, &body); err != nil {
		return err
	}
	if len(body) == 0 {
		return httpx.Error(http.StatusBadRequest, fmt.Errorf("no images submitted"))
	}
	imgs := make([]models.Image, 0, len(body))
	for _, in := range body {
		if in.ID != "" {
			return httpx.Error(http.StatusBadRequest, fmt.Errorf("new images cannot carry an id"))
		}
		imgs = append(imgs, models.Image{URL: in.URL, AltText: in.AltText})
	}
	if err := checkURLs(env, r, imgs); err != nil {
		return err
	}
	if err := models.NewImages(env.DB).Add(user.TwitchID, imgs); err != nil {
		return err
	}
	w.WriteHeader(http.StatusCreated)
	return to.JSON(w, algorithms.Map(imgs, toWire))
}

// Update replaces the user's image set with the submitted one, reconciling
// against what is stored so unchanged images are left alone. Nothing is
// written unless the whole submission validates.
func Update(env *golive.Env, rw http.ResponseWriter, r *http.Request) error {
	user, err := env.Authenticate(r)
	if err != nil {
		return err
	}
	var body []imageJSON
	if err := httpx.Params(r, &body); err != nil {
		return err
	}
	if len(body) == 0 {
		return httpx.Error(http.StatusBadRequest, fmt.Errorf("no images submitted"))
	}
	submitted := make([]models.Image, 0, len(body))
	for _, in := range body {
		img, err := fromWire(in)
		if err != nil {
			return httpx.Error(http.StatusBadRequest, err)
		}
		submitted = append(submitted, img)
	}

	store := models.NewImages(env.DB)
	persisted, err := store.ForUser(user.TwitchID)
	if err != nil {
		return err
	}
	changes := Reconcile(persisted, submitted)
	if err := checkURLs(env, r, append(changes.Add, changes.Update...)); err != nil {
		return err
	}
	if err := Apply(env.DB, user.TwitchID, changes); err != nil {
		return err
	}

	imgs, err := store.ForUser(user.TwitchID)
	if err != nil {
		return err
	}
	rw.WriteHeader(http.StatusCreated)
	return to.JSON(rw, algorithms.Map(imgs, toWire))
}

// Destroy removes a single image by id. Deleting an image the user does
// not own is a no-op.
func Destroy(env *golive.Env, w http.ResponseWriter, r *http.Request) error {
	user, err := env.Authenticate(r)
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, fmt.Errorf("malformed image id: %w", err))
	}
	if err := models.NewImages(env.DB).Remove(user.TwitchID, snowflake.ID(id)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
