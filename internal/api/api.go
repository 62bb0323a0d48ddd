package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"pcbuilder/internal/builds"
	"pcbuilder/internal/catalog"
	"pcbuilder/internal/export"
	"pcbuilder/internal/models"
	"pcbuilder/internal/notify"
	"pcbuilder/internal/pricedrop"
	"pcbuilder/internal/recommend"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// recentLimit bounds how many unsaved recommendations are kept for POST /builds.
const recentLimit = 256

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Deps is everything the handlers need. Hub may be nil.
type Deps struct {
	Catalog       *catalog.Repository
	Snapshots     *catalog.Cache
	Builds        *builds.Store
	Notifier      pricedrop.Notifier
	Hub           *notify.Hub
	AllocatorOpts []recommend.Option
	DetectorOpts  []pricedrop.Option
	Logger        *log.Logger
}

type APIHandler struct {
	deps   Deps
	logger *log.Logger

	// recommendations not yet saved, keyed by result ID
	recentMu sync.Mutex
	recent   map[uuid.UUID]*recommend.BuildResult
	order    []uuid.UUID

	// one detector pass at a time per process
	runMu sync.Mutex
}

func SetupRoutes(r *gin.RouterGroup, deps Deps) *APIHandler {
	handler := &APIHandler{
		deps:   deps,
		logger: deps.Logger,
		recent: make(map[uuid.UUID]*recommend.BuildResult),
	}
	if handler.logger == nil {
		handler.logger = log.New(os.Stdout, "[API] ", log.LstdFlags)
	}

	r.POST("/recommend", handler.Recommend)

	buildGroup := r.Group("/builds")
	{
		buildGroup.POST("", handler.SaveBuild)
		buildGroup.GET("/:id", handler.GetBuild)
		buildGroup.GET("/:id/sheet", handler.GetBuildSheet)
	}

	products := r.Group("/products")
	{
		products.GET("", handler.ListProducts)
		products.GET("/:id/price", handler.GetProductPrice)
		products.GET("/:id/prices", handler.GetPriceHistory)
	}

	r.POST("/price-drops/run", handler.RunPriceDrops)

	if deps.Hub != nil {
		r.GET("/alerts/ws", gin.WrapH(deps.Hub))
	}

	return handler
}

// Recommend runs the allocator against the current catalog snapshot.
func (h *APIHandler) Recommend(c *gin.Context) {
	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}
	prefs, err := recommend.ParsePreferences(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": "invalid_preferences"})
		return
	}

	snap, err := h.deps.Snapshots.Get(c.Request.Context())
	if err != nil {
		h.logger.Printf("Failed to load catalog: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load catalog"})
		return
	}

	result, err := recommend.New(snap, h.allocatorOpts()...).Recommend(prefs)
	if err != nil {
		h.writeRecommendError(c, err)
		return
	}
	h.remember(result)

	c.JSON(http.StatusOK, gin.H{
		"build":   result,
		"summary": result.Summary(),
	})
}

func (h *APIHandler) allocatorOpts() []recommend.Option {
	opts := make([]recommend.Option, 0, len(h.deps.AllocatorOpts)+1)
	opts = append(opts, recommend.WithLogger(h.logger))
	return append(opts, h.deps.AllocatorOpts...)
}

func (h *APIHandler) writeRecommendError(c *gin.Context, err error) {
	var infeasible *recommend.InfeasibleError
	switch {
	case errors.Is(err, recommend.ErrNoBudget):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": "no_budget"})
	case errors.As(err, &infeasible):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     err.Error(),
			"reason":    "infeasible",
			"category":  infeasible.Category,
			"committed": infeasible.Committed,
		})
	case errors.Is(err, recommend.ErrInfeasible):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "reason": "infeasible"})
	default:
		h.logger.Printf("Recommendation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "recommendation failed"})
	}
}

func (h *APIHandler) remember(result *recommend.BuildResult) {
	h.recentMu.Lock()
	defer h.recentMu.Unlock()
	h.recent[result.ID] = result
	h.order = append(h.order, result.ID)
	for len(h.order) > recentLimit {
		delete(h.recent, h.order[0])
		h.order = h.order[1:]
	}
}

func (h *APIHandler) lookup(id uuid.UUID) (*recommend.BuildResult, bool) {
	h.recentMu.Lock()
	defer h.recentMu.Unlock()
	result, ok := h.recent[id]
	return result, ok
}

type saveBuildRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name"`
	ResultID string `json:"result_id" binding:"required"`
}

// SaveBuild persists a recommendation returned by /recommend so it is watched
// for price drops.
func (h *APIHandler) SaveBuild(c *gin.Context) {
	var req saveBuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !strings.Contains(req.Email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}
	id, err := uuid.Parse(req.ResultID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid result_id"})
		return
	}
	result, ok := h.lookup(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "recommendation not found or expired"})
		return
	}

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("%s build", result.Preferences.UseCase)
	}
	saved, err := h.deps.Builds.Save(c.Request.Context(), req.Email, name, result)
	if err != nil {
		h.logger.Printf("Failed to save build: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save build"})
		return
	}
	h.logger.Printf("Saved build %d for %s", saved.ID, saved.User.Email)
	c.JSON(http.StatusCreated, gin.H{"build": saved})
}

func (h *APIHandler) GetBuild(c *gin.Context) {
	build, ok := h.loadBuild(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"build": build})
}

// GetBuildSheet exports a saved build as an xlsx workbook.
func (h *APIHandler) GetBuildSheet(c *gin.Context) {
	build, ok := h.loadBuild(c)
	if !ok {
		return
	}
	f, err := export.SavedBuildSheet(build)
	if err != nil {
		h.logger.Printf("Failed to render build %d: %v", build.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render sheet"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="build-%d.xlsx"`, build.ID))
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)
	if err := export.Write(c.Writer, f); err != nil {
		h.logger.Printf("Failed to stream sheet for build %d: %v", build.ID, err)
	}
}

func (h *APIHandler) loadBuild(c *gin.Context) (*models.SavedBuild, bool) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid build id"})
		return nil, false
	}
	build, err := h.deps.Builds.Get(c.Request.Context(), id)
	if errors.Is(err, builds.ErrBuildNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	if err != nil {
		h.logger.Printf("Failed to load build %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load build"})
		return nil, false
	}
	return build, true
}

func (h *APIHandler) ListProducts(c *gin.Context) {
	var category models.Category
	if raw := c.Query("category"); raw != "" {
		parsed, ok := models.ParseCategory(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown category %q", raw)})
			return
		}
		category = parsed
	}
	products, err := h.deps.Catalog.Products(c.Request.Context(), category)
	if err != nil {
		h.logger.Printf("Failed to list products: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

// GetProductPrice returns the resolved current price of one product.
func (h *APIHandler) GetProductPrice(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	entry, err := h.deps.Catalog.PriceFor(c.Request.Context(), id)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, catalog.ErrNoPrice):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Printf("Failed to resolve price for %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve price"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"price": entry})
}

// GetPriceHistory lists a product's price observations, newest first.
// ?limit= caps the list (default 50, at most 500).
func (h *APIHandler) GetPriceHistory(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	if _, err := h.deps.Catalog.Product(ctx, id); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Printf("Failed to load product %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load product"})
		return
	}
	entries, err := h.deps.Catalog.PriceHistory(ctx, id, limit)
	if err != nil {
		h.logger.Printf("Failed to load price history for %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load price history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"prices": entries, "count": len(entries)})
}

// RunPriceDrops triggers one detector pass synchronously.
func (h *APIHandler) RunPriceDrops(c *gin.Context) {
	if !h.runMu.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": "price-drop run already in progress"})
		return
	}
	defer h.runMu.Unlock()

	ctx := c.Request.Context()
	h.deps.Snapshots.Invalidate()
	snap, err := h.deps.Snapshots.Get(ctx)
	if err != nil {
		h.logger.Printf("Failed to load catalog: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load catalog"})
		return
	}

	start := time.Now()
	detector := pricedrop.New(h.deps.Builds, snap, h.deps.Notifier, h.deps.DetectorOpts...)
	report, err := detector.Run(ctx)
	if err != nil {
		h.logger.Printf("Price-drop run failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report, "elapsed_ms": time.Since(start).Milliseconds()})
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}
