package handler

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/storage"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

const MsgBadRequest = "Invalid request data"

// Bind decodes the JSON, form or multipart body into req. An empty body
// leaves req zero-valued so the services report the missing fields. Validation
// failures are left in c.Errors for middleware.Validation to render.
func Bind(c *gin.Context, req interface{}) bool {
	err := c.ShouldBind(req)
	if err == nil || stderrors.Is(err, io.EOF) {
		return true
	}

	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return false
	}
	_ = c.Error(err).SetType(gin.ErrorTypeBind)
	httputil.RespondWithMessage(c, MsgBadRequest)
	return false
}

// Principal returns the authenticated caller. Routes reach handlers only
// through the auth middleware, so a miss is answered like an invalid token.
func Principal(c *gin.Context) (*model.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		httputil.Abort(c, middleware.MsgNotAuthorized)
		return nil, false
	}
	return p, true
}

// FormFile reads an uploaded image. A missing field, or a request that is not
// multipart, yields nil.
func FormFile(c *gin.Context, field string) (*storage.File, error) {
	fh, err := c.FormFile(field)
	if stderrors.Is(err, http.ErrMissingFile) || stderrors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", field, err)
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	return &storage.File{Name: fh.Filename, Body: bytes.NewReader(body)}, nil
}

// Origin is the browser origin used to build payment redirect URLs.
func Origin(c *gin.Context) string {
	return c.GetHeader("Origin")
}
