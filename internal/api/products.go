package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/product"
)

// StatusClientClosedRequest is returned for scans aborted by the caller.
const StatusClientClosedRequest = 499

// BarcodeRequest is the body of POST /scan/barcode and barcode avoid saves.
type BarcodeRequest struct {
	Barcode string `json:"barcode"`
}

// AvoidRequest is the body of POST /avoid. A barcode alone is resolved
// through the lookup chain; otherwise Product is stored as entered.
type AvoidRequest struct {
	Barcode string                  `json:"barcode,omitempty"`
	Product *product.PartialProduct `json:"product,omitempty"`
}

// EvaluationResponse is the result of re-evaluating a stored product.
type EvaluationResponse struct {
	ProductID          string                      `json:"productId"`
	Verdict            product.Verdict             `json:"verdict"`
	FlaggedIngredients []product.FlaggedIngredient `json:"flaggedIngredients"`
	Categories         []string                    `json:"categories"`
}

// statusFor maps a pipeline error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, product.ErrScanInProgress):
		return http.StatusConflict
	case errors.Is(err, product.ErrAborted):
		return StatusClientClosedRequest
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, product.ErrPersistenceFailure):
		return http.StatusServiceUnavailable
	case errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) pipelineError(ctx echo.Context, err error, message string) error {
	return s.HandleError(ctx, err, message, statusFor(err))
}

// ScanBarcode handles POST /scan/barcode.
func (s *Server) ScanBarcode(ctx echo.Context) error {
	var req BarcodeRequest
	if err := ctx.Bind(&req); err != nil {
		return s.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	code := strings.TrimSpace(req.Barcode)
	if code == "" {
		return s.HandleError(ctx, nil, "Barcode is required", http.StatusBadRequest)
	}

	p, err := workspaceFrom(ctx).Scanner.ScanBarcode(ctx.Request().Context(), code)
	if err != nil {
		return s.pipelineError(ctx, err, "Barcode scan failed")
	}
	return ctx.JSON(http.StatusCreated, p)
}

// ScanLabel handles POST /scan/label with a multipart "image" field.
func (s *Server) ScanLabel(ctx echo.Context) error {
	fh, err := ctx.FormFile("image")
	if err != nil {
		return s.HandleError(ctx, err, "Image upload is required", http.StatusBadRequest)
	}
	f, err := fh.Open()
	if err != nil {
		return s.HandleError(ctx, err, "Failed to read image", http.StatusBadRequest)
	}
	defer f.Close()

	image, err := io.ReadAll(f)
	if err != nil {
		return s.HandleError(ctx, err, "Failed to read image", http.StatusBadRequest)
	}
	if len(image) == 0 {
		return s.HandleError(ctx, nil, "Image is empty", http.StatusBadRequest)
	}
	contentType := fh.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = http.DetectContentType(image)
	}

	p, err := workspaceFrom(ctx).Scanner.ScanLabel(ctx.Request().Context(), image, contentType)
	if err != nil {
		return s.pipelineError(ctx, err, "Label scan failed")
	}
	return ctx.JSON(http.StatusCreated, p)
}

// Avoid handles POST /avoid.
func (s *Server) Avoid(ctx echo.Context) error {
	var req AvoidRequest
	if err := ctx.Bind(&req); err != nil {
		return s.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	scanner := workspaceFrom(ctx).Scanner
	var (
		p   *product.Product
		err error
	)
	switch {
	case req.Product != nil:
		p, err = scanner.AddToAvoidList(ctx.Request().Context(), req.Product)
	case strings.TrimSpace(req.Barcode) != "":
		p, err = scanner.AvoidBarcode(ctx.Request().Context(), strings.TrimSpace(req.Barcode))
	default:
		return s.HandleError(ctx, nil, "Barcode or product is required", http.StatusBadRequest)
	}
	if err != nil {
		return s.pipelineError(ctx, err, "Failed to add product to avoid list")
	}
	return ctx.JSON(http.StatusCreated, p)
}

// ListProducts handles GET /products?list=history|avoided&limit=N.
func (s *Server) ListProducts(ctx echo.Context) error {
	var filter product.Filter
	switch ctx.QueryParam("list") {
	case "", "all":
	case "history":
		filter.Avoided = new(bool)
	case "avoided":
		avoided := true
		filter.Avoided = &avoided
	default:
		return s.HandleError(ctx, nil, "list must be history or avoided", http.StatusBadRequest)
	}
	if v := ctx.QueryParam("barcode"); v != "" {
		filter.Barcode = v
	}
	if v := ctx.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return s.HandleError(ctx, err, "limit must be a non-negative integer", http.StatusBadRequest)
		}
		filter.Limit = limit
	}

	products, err := workspaceFrom(ctx).Store.ListProducts(ctx.Request().Context(), filter)
	if err != nil {
		return s.pipelineError(ctx, err, "Failed to list products")
	}
	if products == nil {
		products = []*product.Product{}
	}
	return ctx.JSON(http.StatusOK, products)
}

// GetProduct handles GET /products/:id.
func (s *Server) GetProduct(ctx echo.Context) error {
	p, err := workspaceFrom(ctx).Store.GetProductByClientSideID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return s.pipelineError(ctx, err, "Product not found")
	}
	return ctx.JSON(http.StatusOK, p)
}

// DeleteProduct handles DELETE /products/:id.
func (s *Server) DeleteProduct(ctx echo.Context) error {
	if err := workspaceFrom(ctx).Store.RemoveProduct(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return s.pipelineError(ctx, err, "Failed to delete product")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ClearProducts handles DELETE /products.
func (s *Server) ClearProducts(ctx echo.Context) error {
	if err := workspaceFrom(ctx).Store.ClearAll(ctx.Request().Context()); err != nil {
		return s.pipelineError(ctx, err, "Failed to clear products")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// GetEvaluation handles GET /products/:id/evaluation. The stored record is
// evaluated against the current preferences and left unchanged.
func (s *Server) GetEvaluation(ctx echo.Context) error {
	id := ctx.Param("id")
	eval, categories, err := workspaceFrom(ctx).Scanner.Reevaluate(ctx.Request().Context(), id)
	if err != nil {
		return s.pipelineError(ctx, err, "Product not found")
	}
	flagged := eval.Flagged
	if flagged == nil {
		flagged = []product.FlaggedIngredient{}
	}
	return ctx.JSON(http.StatusOK, EvaluationResponse{
		ProductID:          id,
		Verdict:            eval.Verdict,
		FlaggedIngredients: flagged,
		Categories:         categories,
	})
}
