package server

import (
	"net/http"
	"strings"

	catalogdomain "github.com/clinicore/ledger/internal/catalog/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) SearchProcedureCodes(c *gin.Context) {
	req, ok := bindCatalogSearch(c)
	if !ok {
		return
	}

	codes, err := s.catalogSvc.SearchProcedureCodes(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": codes})
}

func (s *Server) SearchDiagnosisCodes(c *gin.Context) {
	req, ok := bindCatalogSearch(c)
	if !ok {
		return
	}

	codes, err := s.catalogSvc.SearchDiagnosisCodes(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": codes})
}

func bindCatalogSearch(c *gin.Context) (catalogdomain.SearchRequest, bool) {
	var query struct {
		Search   string `form:"search"`
		Category string `form:"category"`
		Limit    int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return catalogdomain.SearchRequest{}, false
	}

	return catalogdomain.SearchRequest{
		Search:   strings.TrimSpace(query.Search),
		Category: strings.TrimSpace(query.Category),
		Limit:    query.Limit,
	}, true
}
