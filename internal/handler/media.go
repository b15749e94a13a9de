package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/planetarium-reservation/internal/utils"
)

// Media knows where uploads are written and how they are served.
type Media struct {
	Root string
	URL  string
}

// link turns a stored relative path into a public URL.
func (m Media) link(rel *string) *string {
	if rel == nil {
		return nil
	}
	s := m.URL + *rel
	return &s
}

// receive stores the multipart "image" field under kind and returns its
// relative path. On failure it has already written the error response
// and returns ok=false.
func (m Media) receive(c echo.Context, kind string) (string, bool, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return "", false, fieldErrors(c, map[string]string{"image": "no file was submitted"})
	}
	if fh.Size > utils.MaxImageBytes {
		return "", false, errorJSON(c, http.StatusRequestEntityTooLarge, utils.ErrImageTooLarge.Error())
	}
	f, err := fh.Open()
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	rel, err := utils.SaveImage(m.Root, kind, f)
	switch {
	case errors.Is(err, utils.ErrImageTooLarge):
		return "", false, errorJSON(c, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, utils.ErrUnsupportedType):
		return "", false, fieldErrors(c, map[string]string{"image": "upload a valid image (jpeg, png, gif or webp)"})
	case err != nil:
		return "", false, err
	}
	return rel, true, nil
}
