package server

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/threader/internal/pipeline"
	"github.com/mohammad-safakhou/threader/models"
)

type ThreadsHandler struct {
	Runner Runner
	Logger *log.Logger
	Pages  *template.Template
}

func (h *ThreadsHandler) Register(e *echo.Echo, api *echo.Group) {
	e.GET("/", h.page)
	e.POST("/", h.page)
	api.POST("/threads", h.create)
}

// page renders the form and, when a topic was submitted, the five result panels.
func (h *ThreadsHandler) page(c echo.Context) error {
	topic := c.QueryParam("topic")
	if c.Request().Method == http.MethodPost {
		topic = c.FormValue("topic")
	}
	if strings.TrimSpace(topic) == "" {
		return h.render(c, http.StatusOK, pageData{})
	}

	run, err := h.Runner.Run(c.Request().Context(), topic)
	data := newPageData(run)
	if err != nil && run == nil {
		data.Error = &models.RunError{Kind: string(pipeline.Classify(err)), Message: err.Error()}
	}
	return h.render(c, http.StatusOK, data)
}

func (h *ThreadsHandler) render(c echo.Context, status int, data pageData) error {
	var b strings.Builder
	if err := h.Pages.ExecuteTemplate(&b, "index.html", data); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.HTML(status, b.String())
}

type createRequest struct {
	Topic string `json:"topic"`
}

// create runs the pipeline and answers with the run. Failed runs still carry every
// artifact produced before the failing stage.
func (h *ThreadsHandler) create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Topic) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "topic required")
	}
	run, err := h.Runner.Run(c.Request().Context(), req.Topic)
	if err != nil {
		if run == nil {
			return echo.NewHTTPError(statusFor(err), err.Error())
		}
		return c.JSON(statusFor(err), run)
	}
	return c.JSON(http.StatusOK, run)
}

func statusFor(err error) int {
	var se *pipeline.StageError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError
	}
	switch se.Kind {
	case pipeline.KindInput:
		return http.StatusBadRequest
	case pipeline.KindParse:
		return http.StatusUnprocessableEntity
	case pipeline.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
