package httpHandler

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"users-service/usecases"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templatesFS embed.FS

const indexTemplate = "index.html"

// LoadTemplates parses the embedded HTML templates for gin's renderer.
func LoadTemplates() (*template.Template, error) {
	return template.ParseFS(templatesFS, "templates/*.html")
}

type IndexHandler struct {
	useCase *usecases.UserUseCase
}

func NewIndexHandler(useCase *usecases.UserUseCase) *IndexHandler {
	return &IndexHandler{useCase: useCase}
}

// Index handles GET /
func (h *IndexHandler) Index(c *gin.Context) {
	h.render(c, http.StatusOK, "")
}

// AddUser handles POST / from the index form
func (h *IndexHandler) AddUser(c *gin.Context) {
	_, err := h.useCase.CreateUser(c.Request.Context(), c.PostForm("username"), c.PostForm("email"))
	if err != nil {
		switch {
		case errors.Is(err, usecases.ErrInvalidPayload):
			h.render(c, http.StatusBadRequest, msgInvalidPayload)
		case errors.Is(err, usecases.ErrDuplicateEmail):
			h.render(c, http.StatusBadRequest, msgDuplicateEmail)
		default:
			_ = c.Error(err)
			logrus.WithError(err).Error("failed to add user from form")
			h.render(c, http.StatusInternalServerError, msgInternalError)
		}
		return
	}

	c.Redirect(http.StatusFound, "/")
}

func (h *IndexHandler) render(c *gin.Context, status int, errMsg string) {
	users, err := h.useCase.ListUsers(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		logrus.WithError(err).Error("failed to list users for index")
		c.String(http.StatusInternalServerError, msgInternalError)
		return
	}

	c.HTML(status, indexTemplate, gin.H{
		"users": users,
		"error": errMsg,
	})
}
