package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/models"
	"github.com/quartier-aromes/shop/internal/util"
)

type BlogHandler struct {
	DB *gorm.DB
}

func (h *BlogHandler) GetPosts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	if page < 1 {
		page = 1
	}
	limit := parseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)

	query := h.DB.Model(&models.BlogPost{}).Where("is_published = ?", true)
	if category := c.QueryParam("category"); category != "" {
		query = query.Where("blog_category = ?", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var posts []models.BlogPost
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&posts).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"posts": posts,
		"meta": map[string]any{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetPost resolves a published post by slug and bumps its view counter.
func (h *BlogHandler) GetPost(c echo.Context) error {
	var post models.BlogPost
	err := h.DB.Where("slug = ? AND is_published = ?", c.Param("slug"), true).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.DB.Model(&post).UpdateColumn("views", gorm.Expr("views + 1"))
	post.Views++

	var related []models.BlogPost
	h.DB.Where("blog_category = ? AND id != ? AND is_published = ?",
		post.BlogCategory, post.ID, true).
		Order("created_at DESC").Limit(3).Find(&related)

	return c.JSON(http.StatusOK, map[string]any{
		"post":    post,
		"related": related,
	})
}

type blogPostRequest struct {
	Title        string `json:"title"`
	Slug         string `json:"slug"`
	Content      string `json:"content"`
	Excerpt      string `json:"excerpt"`
	Author       string `json:"author"`
	BlogCategory string `json:"blog_category"`
	IsPublished  bool   `json:"is_published"`
}

func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// AdminGetPosts lists every post, drafts included.
func (h *BlogHandler) AdminGetPosts(c echo.Context) error {
	var posts []models.BlogPost
	if err := h.DB.Order("created_at DESC").Find(&posts).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, posts)
}

func (h *BlogHandler) CreatePost(c echo.Context) error {
	var req blogPostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if req.Title == "" || req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title and content are required")
	}
	if req.Slug == "" {
		req.Slug = slugify(req.Title)
	}
	if req.Author == "" {
		req.Author = "Admin"
	}

	post := models.BlogPost{
		Title:        req.Title,
		Slug:         req.Slug,
		Content:      req.Content,
		Excerpt:      req.Excerpt,
		Author:       req.Author,
		BlogCategory: req.BlogCategory,
		IsPublished:  req.IsPublished,
	}
	if err := h.DB.Create(&post).Error; err != nil {
		return echo.NewHTTPError(http.StatusConflict, "slug already exists")
	}
	return c.JSON(http.StatusCreated, post)
}

func (h *BlogHandler) UpdatePost(c echo.Context) error {
	var post models.BlogPost
	if err := h.DB.First(&post, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var req blogPostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if req.Title == "" || req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title and content are required")
	}
	if req.Slug == "" {
		req.Slug = slugify(req.Title)
	}

	post.Title = req.Title
	post.Slug = req.Slug
	post.Content = req.Content
	post.Excerpt = req.Excerpt
	if req.Author != "" {
		post.Author = req.Author
	}
	post.BlogCategory = req.BlogCategory
	post.IsPublished = req.IsPublished
	if err := h.DB.Save(&post).Error; err != nil {
		return echo.NewHTTPError(http.StatusConflict, "slug already exists")
	}
	return c.JSON(http.StatusOK, post)
}

func (h *BlogHandler) DeletePost(c echo.Context) error {
	res := h.DB.Delete(&models.BlogPost{}, c.Param("id"))
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "post not found")
	}
	return c.NoContent(http.StatusNoContent)
}
