package plantclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DefaultTitle is shown for entries that were stored without a title.
const DefaultTitle = "Growth Update"

type Plant struct {
	ID          string    `json:"id"`
	Title       string    `json:"title,omitempty"`
	Image       string    `json:"image"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Comments    []Comment `json:"comments"`
}

type Comment struct {
	ID   string    `json:"id"`
	Text string    `json:"text"`
	Date time.Time `json:"date"`
}

// DisplayTitle returns the title or the fallback for untitled entries.
func (p Plant) DisplayTitle() string {
	if strings.TrimSpace(p.Title) == "" {
		return DefaultTitle
	}
	return p.Title
}

// Image is a photo to upload. Body is read once and buffered so the
// request can be resent.
type Image struct {
	Filename string
	Body     io.Reader
}

type NewPlant struct {
	Title       string
	Description string
	Image       Image
}

// PlantChanges lists the fields to update. Nil fields are left unchanged.
type PlantChanges struct {
	Title       *string
	Description *string
	Date        *time.Time
	Image       *Image
}

// Login exchanges admin credentials for a token and stores it in the session.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}
	var res struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, call{
		method:      http.MethodPost,
		path:        "/api/admin/login",
		body:        body,
		contentType: "application/json",
		retry:       true,
	}, &res); err != nil {
		return err
	}
	return c.session.SetToken(res.Token)
}

// Logout forgets the local token. The server keeps no session state.
func (c *Client) Logout() error {
	return c.session.Clear()
}

// ListPlants returns the timeline, newest first.
func (c *Client) ListPlants(ctx context.Context) ([]Plant, error) {
	var plants []Plant
	err := c.do(ctx, call{method: http.MethodGet, path: "/api/plants", retry: true}, &plants)
	return plants, err
}

// CreatePlant uploads a new entry. All attempts share one Idempotency-Key,
// so a retry after a lost response returns the stored entry instead of a
// duplicate.
func (c *Client) CreatePlant(ctx context.Context, in NewPlant) (*Plant, error) {
	fields := [][2]string{{"title", in.Title}, {"description", in.Description}}
	body, contentType, err := encodeForm(fields, &in.Image)
	if err != nil {
		return nil, err
	}
	var plant Plant
	if err := c.do(ctx, call{
		method:      http.MethodPost,
		path:        "/api/plants",
		body:        body,
		contentType: contentType,
		header:      map[string]string{idempotencyHeader: c.newKey()},
		retry:       true,
	}, &plant); err != nil {
		return nil, err
	}
	return &plant, nil
}

// UpdatePlant changes the given fields of an entry.
func (c *Client) UpdatePlant(ctx context.Context, id string, ch PlantChanges) (*Plant, error) {
	var fields [][2]string
	if ch.Title != nil {
		fields = append(fields, [2]string{"title", *ch.Title})
	}
	if ch.Description != nil {
		fields = append(fields, [2]string{"description", *ch.Description})
	}
	if ch.Date != nil {
		fields = append(fields, [2]string{"date", ch.Date.UTC().Format(time.RFC3339)})
	}
	body, contentType, err := encodeForm(fields, ch.Image)
	if err != nil {
		return nil, err
	}
	var plant Plant
	if err := c.do(ctx, call{
		method:      http.MethodPut,
		path:        "/api/plants/" + url.PathEscape(id),
		body:        body,
		contentType: contentType,
		retry:       true,
	}, &plant); err != nil {
		return nil, err
	}
	return &plant, nil
}

func (c *Client) DeletePlant(ctx context.Context, id string) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		path:   "/api/plants/" + url.PathEscape(id),
		retry:  true,
	}, nil)
}

// AddComment posts a visitor comment. It is sent once: a resend could
// append the same comment twice.
func (c *Client) AddComment(ctx context.Context, id, text string) (*Plant, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	var plant Plant
	if err := c.do(ctx, call{
		method:      http.MethodPost,
		path:        "/api/plants/" + url.PathEscape(id) + "/comments",
		body:        body,
		contentType: "application/json",
	}, &plant); err != nil {
		return nil, err
	}
	return &plant, nil
}

func (c *Client) DeleteComment(ctx context.Context, id, commentID string) (*Plant, error) {
	var plant Plant
	if err := c.do(ctx, call{
		method: http.MethodDelete,
		path:   "/api/plants/" + url.PathEscape(id) + "/comments/" + url.PathEscape(commentID),
		retry:  true,
	}, &plant); err != nil {
		return nil, err
	}
	return &plant, nil
}

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// encodeForm builds a multipart body. The image part is skipped when img is nil.
func encodeForm(fields [][2]string, img *Image) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if img != nil && img.Body != nil {
		data, err := io.ReadAll(img.Body)
		if err != nil {
			return nil, "", fmt.Errorf("plantclient: read image: %w", err)
		}
		name := filepath.Base(img.Filename)
		ct, ok := imageTypes[strings.ToLower(filepath.Ext(name))]
		if !ok {
			ct = http.DetectContentType(data)
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, name))
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
