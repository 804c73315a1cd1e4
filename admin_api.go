package pubsite

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubsite/blocks"
)

const maxStreamBody = 1 << 20

type apiError struct {
	Block  string `json:"block"`
	Index  int    `json:"index"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

// validationResponse maps block errors to the JSON the editor consumes.
// ok is false for errors that are not about submitted content.
func validationResponse(err error) (int, map[string]any, bool) {
	var ves blocks.ValidationErrors
	var unknown *blocks.UnknownVariantError
	var malformed *blocks.MalformedStreamError
	switch {
	case errors.As(err, &ves):
		out := make([]apiError, len(ves))
		for i, ve := range ves {
			out[i] = apiError{Block: ve.Block, Index: ve.Index, Field: ve.Field, Reason: ve.Reason}
		}
		return http.StatusUnprocessableEntity, map[string]any{"errors": out}, true
	case errors.As(err, &unknown):
		return http.StatusUnprocessableEntity, map[string]any{"errors": []apiError{{
			Block: unknown.Tag, Index: unknown.Index, Reason: unknown.Error(),
		}}}, true
	case errors.As(err, &malformed):
		return http.StatusBadRequest, map[string]any{"error": malformed.Error()}, true
	}
	return 0, nil, false
}

func readBody(c echo.Context) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxStreamBody+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxStreamBody {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "stream too large")
	}
	return data, nil
}

func (a *App) handleAPIPolicies(c echo.Context) error {
	out := make([]blocks.Policy, 0)
	for _, name := range a.Catalog.Policies() {
		p, err := a.Catalog.Policy(name)
		if err != nil {
			return err
		}
		out = append(out, p)
	}
	return c.JSON(http.StatusOK, map[string]any{"policies": out})
}

func (a *App) handleAPIDescribePolicy(c echo.Context) error {
	desc, err := a.Catalog.Describe(c.Param("name"))
	if errors.Is(err, blocks.ErrUnknownPolicy) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"policy": c.Param("name"), "variants": desc})
}

// handleAPIValidate checks a whole stream against a policy and returns the
// normalized stream with block ids filled in.
func (a *App) handleAPIValidate(c echo.Context) error {
	reg, err := a.Catalog.Registry(c.Param("name"))
	if errors.Is(err, blocks.ErrUnknownPolicy) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	if err != nil {
		return err
	}
	data, err := readBody(c)
	if err != nil {
		return err
	}
	stream, err := reg.WithImageChecker(a.Store).ValidateStream(c.Request().Context(), data)
	if err != nil {
		if code, body, ok := validationResponse(err); ok {
			return c.JSON(code, body)
		}
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"stream": stream})
}

func (a *App) handleAPIValidateBlock(c echo.Context) error {
	reg, err := a.Catalog.Registry(c.Param("policy"))
	if errors.Is(err, blocks.ErrUnknownPolicy) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	if err != nil {
		return err
	}
	data, err := readBody(c)
	if err != nil {
		return err
	}
	if !json.Valid(data) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "value is not valid JSON"})
	}
	b, err := reg.WithImageChecker(a.Store).Validate(c.Request().Context(), c.Param("type"), json.RawMessage(data))
	if err != nil {
		if code, body, ok := validationResponse(err); ok {
			return c.JSON(code, body)
		}
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"stream": blocks.Stream{b}})
}
