package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	contentdomain "github.com/megahub-io/megahub/internal/content/domain"
)

type createWebsiteRequest struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

func (s *Server) CreateWebsite(c *gin.Context) {
	var req createWebsiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	site, err := s.contentSvc.CreateWebsite(c.Request.Context(), contentdomain.CreateWebsiteRequest{
		Name:   strings.TrimSpace(req.Name),
		Domain: strings.TrimSpace(req.Domain),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": site})
}

func (s *Server) ListWebsites(c *gin.Context) {
	sites, err := s.contentSvc.ListWebsites(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sites})
}

type createPageRequest struct {
	WebsiteID string `json:"website_id"`
	Title     string `json:"title"`
}

func (s *Server) CreatePage(c *gin.Context) {
	var req createPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	page, err := s.contentSvc.CreatePage(c.Request.Context(), contentdomain.CreatePageRequest{
		WebsiteID: strings.TrimSpace(req.WebsiteID),
		Title:     strings.TrimSpace(req.Title),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": page})
}

func (s *Server) ListPages(c *gin.Context) {
	var query struct {
		WebsiteID string `form:"website_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	websiteID, err := snowflakeFromString(strings.TrimSpace(query.WebsiteID), "website_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pages, err := s.contentSvc.ListPages(c.Request.Context(), websiteID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": pages})
}

type createArticleRequest struct {
	PageID string `json:"page_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

func (s *Server) CreateArticle(c *gin.Context) {
	var req createArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	article, err := s.contentSvc.CreateArticle(c.Request.Context(), contentdomain.CreateArticleRequest{
		PageID: strings.TrimSpace(req.PageID),
		Title:  strings.TrimSpace(req.Title),
		Body:   req.Body,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": article})
}

func (s *Server) GetArticle(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	article, err := s.contentSvc.GetArticle(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": article})
}

func (s *Server) DeleteArticle(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.contentSvc.DeleteArticle(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) ListArticles(c *gin.Context) {
	articles, err := s.contentSvc.ListArticles(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": articles})
}

type createCollectionRequest struct {
	Name string `json:"name"`
}

func (s *Server) CreateCollection(c *gin.Context) {
	var req createCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	collection, err := s.contentSvc.CreateCollection(c.Request.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": collection})
}

type addToCollectionRequest struct {
	ArticleID string `json:"article_id"`
}

func (s *Server) AddToCollection(c *gin.Context) {
	collectionID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req addToCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	articleID, err := snowflakeFromString(strings.TrimSpace(req.ArticleID), "article_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.contentSvc.AddToCollection(c.Request.Context(), collectionID, articleID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"added": true}})
}

func (s *Server) ListCollections(c *gin.Context) {
	collections, err := s.contentSvc.ListCollections(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": collections})
}
