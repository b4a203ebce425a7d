package api

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"dealer-service/internal/apperrors"
	"dealer-service/internal/models"
	"dealer-service/internal/service"
	"dealer-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	vehicles *service.VehicleService
	images   *service.ImageService
	sales    *service.SaleService

	jwtSecret     []byte
	opTimeout     time.Duration
	uploadTimeout time.Duration
}

// NewHandler creates a new HTTP handler
func NewHandler(
	vehicles *service.VehicleService,
	images *service.ImageService,
	sales *service.SaleService,
	jwtSecret []byte,
	opTimeout, uploadTimeout time.Duration,
) *Handler {
	return &Handler{
		vehicles:      vehicles,
		images:        images,
		sales:         sales,
		jwtSecret:     jwtSecret,
		opTimeout:     opTimeout,
		uploadTimeout: uploadTimeout,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(RequireAuth(h.jwtSecret))
	{
		v1.GET("/vehicles", h.listVehicles)
		v1.GET("/vehicles/available", h.listAvailable)
		v1.GET("/vehicles/all", h.listAll)
		v1.GET("/vehicles/trade", h.listTradeStock)
		v1.GET("/vehicles/featured", h.listFeatured)
		v1.GET("/vehicles/:id", h.getVehicle)
		v1.POST("/vehicles", h.addVehicle)
		v1.PUT("/vehicles/:id", h.updateVehicle)
		v1.PATCH("/vehicles/:id/status", h.updateVehicleStatus)
		v1.PATCH("/vehicles/:id/featured", h.setVehicleFeatured)
		v1.DELETE("/vehicles/:id", h.deleteVehicle)
		v1.PUT("/vehicles/:id/features", h.upsertFeatures)

		v1.GET("/vehicles/:id/images", h.getImages)
		v1.POST("/vehicles/:id/images", h.uploadImage)
		v1.POST("/vehicles/:id/images/batch", h.uploadImages)
		v1.POST("/vehicles/:id/images/dedupe", h.removeDuplicateImages)
		v1.PUT("/vehicles/:id/images/:imageId/primary", h.setPrimaryImage)
		v1.DELETE("/vehicles/:id/images", h.deleteImageByURL)
		v1.DELETE("/images/:imageId", h.deleteImage)

		v1.GET("/vehicles/:id/sales", h.listVehicleSales)
		v1.POST("/sales", h.createSale)
		v1.GET("/sales/:id", h.getSale)
		v1.PUT("/sales/:id", h.updateSale)
		v1.DELETE("/sales/:id", h.deleteSale)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// opContext imposes the per-operation timeout budget on store and blob calls
func (h *Handler) opContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.opTimeout)
}

func respondError(c *gin.Context, err error) {
	var batchErr *apperrors.PartialBatchFailure
	if errors.As(err, &batchErr) {
		c.JSON(http.StatusMultiStatus, gin.H{
			"error":    batchErr.Error(),
			"uploaded": batchErr.Uploaded,
		})
		return
	}
	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

func (h *Handler) listVehicles(c *gin.Context) {
	ctx, cancel := h.opContext(c)
	defer cancel()

	var filter store.VehicleFilter
	filter.BrandID, _ = strconv.ParseInt(c.Query("brand_id"), 10, 64)
	filter.YearMin, _ = strconv.Atoi(c.Query("year_min"))
	filter.YearMax, _ = strconv.Atoi(c.Query("year_max"))
	filter.PriceMin, _ = strconv.ParseInt(c.Query("price_min"), 10, 64)
	filter.PriceMax, _ = strconv.ParseInt(c.Query("price_max"), 10, 64)
	filter.FuelType = c.Query("fuel_type")
	filter.Transmission = c.Query("transmission")
	filter.City = c.Query("city")
	filter.State = c.Query("state")

	vehicles, err := h.vehicles.List(ctx, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

func (h *Handler) listAvailable(c *gin.Context) {
	ctx, cancel := h.opContext(c)
	defer cancel()

	vehicles, err := h.vehicles.ListAvailable(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

func (h *Handler) listAll(c *gin.Context) {
	ctx, cancel := h.opContext(c)
	defer cancel()

	vehicles, err := h.vehicles.ListAll(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

func (h *Handler) listTradeStock(c *gin.Context) {
	ctx, cancel := h.opContext(c)
	defer cancel()

	vehicles, err := h.vehicles.ListTradeStock(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

func (h *Handler) listFeatured(c *gin.Context) {
	ctx, cancel := h.opContext(c)
	defer cancel()

	vehicles, err := h.vehicles.ListFeatured(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

func (h *Handler) getVehicle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	vehicle, err := h.vehicles.GetByID(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

func (h *Handler) addVehicle(c *gin.Context) {
	var req service.AddVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	vehicle, err := h.vehicles.Add(ctx, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, vehicle)
}

func (h *Handler) updateVehicle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.AddVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	vehicle, err := h.vehicles.Update(ctx, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

func (h *Handler) updateVehicleStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status models.VehicleStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	vehicle, err := h.vehicles.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

func (h *Handler) setVehicleFeatured(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Featured *bool `json:"featured" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	if err := h.vehicles.SetFeatured(ctx, id, *req.Featured); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle_id": id, "featured": *req.Featured})
}

func (h *Handler) deleteVehicle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	if err := h.vehicles.Delete(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) upsertFeatures(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Features []string `json:"features"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	if err := h.vehicles.UpsertFeatures(ctx, id, req.Features); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle_id": id, "features": req.Features})
}

func (h *Handler) getImages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	images, err := h.images.GetImagesByVehicle(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

func readUpload(fh *multipart.FileHeader) (service.UploadInput, error) {
	f, err := fh.Open()
	if err != nil {
		return service.UploadInput{}, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return service.UploadInput{}, err
	}

	return service.UploadInput{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

func (h *Handler) uploadImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing image file"})
		return
	}

	in, err := readUpload(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image file"})
		return
	}
	in.AltText = c.PostForm("alt_text")
	isPrimary, _ := strconv.ParseBool(c.PostForm("is_primary"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.uploadTimeout)
	defer cancel()

	img, err := h.images.Upload(ctx, id, in, isPrimary)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, img)
}

func (h *Handler) uploadImages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}

	var files []service.UploadInput
	for _, fh := range form.File["images"] {
		in, err := readUpload(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image file: " + fh.Filename})
			return
		}
		files = append(files, in)
	}
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image files supplied"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.uploadTimeout)
	defer cancel()

	urls, err := h.images.UploadMultiple(ctx, id, files)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"urls": urls})
}

func (h *Handler) removeDuplicateImages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	removed, err := h.images.RemoveDuplicateImages(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle_id": id, "removed": removed})
}

func (h *Handler) setPrimaryImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	imageID, ok := pathID(c, "imageId")
	if !ok {
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	if err := h.images.SetPrimaryImage(ctx, id, imageID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle_id": id, "image_id": imageID})
}

func (h *Handler) deleteImage(c *gin.Context) {
	imageID, ok := pathID(c, "imageId")
	if !ok {
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	if err := h.images.DeleteImage(ctx, imageID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteImageByURL(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url parameter"})
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	if err := h.images.DeleteImageByURL(ctx, id, url); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listVehicleSales(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	sales, err := h.sales.ListSalesByVehicle(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": sales})
}

func (h *Handler) createSale(c *gin.Context) {
	var req service.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	result, err := h.sales.CreateSale(ctx, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) getSale(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	sale, err := h.sales.GetSaleByID(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *Handler) updateSale(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	sale, err := h.sales.UpdateSale(ctx, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *Handler) deleteSale(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := h.opContext(c)
	defer cancel()

	if err := h.sales.DeleteSale(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
