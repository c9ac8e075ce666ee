package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/domain"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/middleware"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/service"
)

type ProjectHandler struct {
	svc *service.CatalogService
}

func NewProjectHandler(svc *service.CatalogService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// List returns the merged feed of all categories.
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.svc.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) Mine(c *gin.Context) {
	projects, err := h.svc.ListMine(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		respondError(c, domain.ErrNotFound)
		return
	}
	p, err := h.svc.GetOne(c.Request.Context(), c.Param("category"), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Create returns a handler bound to one category so each variant gets its own route.
func (h *ProjectHandler) Create(category domain.Category) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, files, err := bindProjectInput(c)
		defer files.Close()
		if err != nil {
			respondError(c, err)
			return
		}
		p, err := h.svc.Create(requestContext(c), string(category), in, middleware.GetUserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		respondError(c, domain.ErrNotFound)
		return
	}
	in, files, err := bindProjectInput(c)
	defer files.Close()
	if err != nil {
		respondError(c, err)
		return
	}
	p, err := h.svc.Update(requestContext(c), c.Param("category"), id, in, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		respondError(c, domain.ErrNotFound)
		return
	}
	if err := h.svc.Delete(requestContext(c), c.Param("category"), id, middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
