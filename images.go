package pubsite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/eringen/pubsite/blocks"
)

// ErrInvalidImage is returned when an upload cannot be decoded as an image.
var ErrInvalidImage = errors.New("pubsite: invalid image")

const (
	maxImageWidth = 800
	jpegQuality   = 80
	maxUploadSize = 10 << 20 // 10MB
)

// processImage decodes an image from src, resizes it to at most
// maxImageWidth and re-encodes it as JPEG.
func processImage(src io.Reader, originalName string) (Image, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return Image{}, nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = maxImageWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Image{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}

	base := Slugify(strings.TrimSuffix(originalName, filepath.Ext(originalName)))
	if base == "" {
		base = "image"
	}
	return Image{
		Title:        strings.TrimSuffix(originalName, filepath.Ext(originalName)),
		Filename:     base + ".jpg",
		OriginalName: originalName,
		Width:        w,
		Height:       h,
		Size:         buf.Len(),
		UploadedAt:   time.Now().UTC(),
	}, buf.Bytes(), nil
}

// uniqueFilename appends a counter until the name is free in both the
// database and the image storage.
func (a *App) uniqueFilename(ctx context.Context, filename string) (string, error) {
	base := strings.TrimSuffix(filename, ".jpg")
	candidate := filename
	for n := 2; ; n++ {
		taken, err := a.Store.FilenameTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			exists, err := a.images.Exists(ctx, candidate)
			if err != nil {
				return "", err
			}
			if !exists {
				return candidate, nil
			}
		}
		candidate = fmt.Sprintf("%s-%d.jpg", base, n)
	}
}

// UploadImage processes, stores and records an image.
func (a *App) UploadImage(ctx context.Context, src io.Reader, originalName, title string) (Image, error) {
	img, data, err := processImage(src, originalName)
	if err != nil {
		return Image{}, err
	}
	if t := strings.TrimSpace(title); t != "" {
		img.Title = t
	}
	img.Filename, err = a.uniqueFilename(ctx, img.Filename)
	if err != nil {
		return Image{}, err
	}
	if err := a.images.Put(ctx, img.Filename, data); err != nil {
		return Image{}, err
	}
	if err := a.Store.SaveImage(ctx, &img); err != nil {
		_ = a.images.Delete(ctx, img.Filename)
		return Image{}, err
	}
	a.Log.Info().Int64("image_id", img.ID).Str("filename", img.Filename).Msg("image uploaded")
	return img, nil
}

// ResolveImage implements blocks.ImageResolver.
func (a *App) ResolveImage(ctx context.Context, ref blocks.ImageRef) (blocks.Rendition, error) {
	if ref.IsZero() {
		return blocks.Rendition{}, ErrImageNotFound
	}
	img, err := a.Store.GetImage(ctx, ref.ID)
	if err != nil {
		return blocks.Rendition{}, err
	}
	return blocks.Rendition{
		URL:    a.images.URL(img.Filename),
		Alt:    img.Title,
		Width:  img.Width,
		Height: img.Height,
	}, nil
}

// ImageURL implements richtext.ImageLookup.
func (a *App) ImageURL(ctx context.Context, id int64) (string, error) {
	r, err := a.ResolveImage(ctx, blocks.ImageRef{ID: id})
	return r.URL, err
}

// imageRendition resolves an optional image for templates, logging failures.
func (a *App) imageRendition(ctx context.Context, id int64) *blocks.Rendition {
	if id == 0 {
		return nil
	}
	r, err := a.ResolveImage(ctx, blocks.ImageRef{ID: id})
	if err != nil {
		a.Log.Warn().Err(err).Int64("image_id", id).Msg("image unavailable")
		return nil
	}
	return &r
}

func (a *App) handleImageUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.String(http.StatusBadRequest, "No image file provided")
	}
	if file.Size > maxUploadSize {
		return c.String(http.StatusBadRequest, "File too large (max 10MB)")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	if _, err := a.UploadImage(c.Request().Context(), src, file.Filename, c.FormValue("title")); err != nil {
		if errors.Is(err, ErrInvalidImage) {
			return c.String(http.StatusBadRequest, err.Error())
		}
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/images/")
}

func (a *App) handleImageDelete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid image id")
	}
	ctx := c.Request().Context()
	img, err := a.Store.DeleteImage(ctx, id)
	if errors.Is(err, ErrImageNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := a.images.Delete(ctx, img.Filename); err != nil {
		a.Log.Warn().Err(err).Str("filename", img.Filename).Msg("remove image file")
	}
	a.Cache.Invalidate()
	return c.Redirect(http.StatusSeeOther, "/admin/images/")
}

func (a *App) handleImageList(c echo.Context) error {
	images, err := a.Store.ListImages(c.Request().Context())
	if err != nil {
		return err
	}
	views := make([]ImageView, 0, len(images))
	for _, img := range images {
		views = append(views, ImageView{Image: img, URL: a.images.URL(img.Filename)})
	}
	return Render(c, a.Views.AdminImages(AdminImagesView{Site: a.site(c), Images: views}))
}
