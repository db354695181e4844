package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"inventory/database"
	"inventory/httperr"
	"inventory/middleware"
	"inventory/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const MaxImageBytes = 5 << 20

var imageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpg":  ".jpg",
	"image/jpeg": ".jpg",
}

type ProductController struct {
	products     ProductStore
	uploadDir    string
	uploadPrefix string
	now          func() time.Time
}

func NewProductController(products ProductStore, uploadDir, uploadPrefix string) *ProductController {
	return &ProductController{
		products:     products,
		uploadDir:    uploadDir,
		uploadPrefix: "/" + strings.Trim(uploadPrefix, "/"),
		now:          time.Now,
	}
}

type productInput struct {
	Name        *string  `json:"name" form:"name"`
	SKU         *string  `json:"sku" form:"sku"`
	Category    *string  `json:"category" form:"category"`
	Quantity    *int     `json:"quantity" form:"quantity" binding:"omitempty,min=0"`
	Price       *float64 `json:"price" form:"price" binding:"omitempty,min=0"`
	Description *string  `json:"description" form:"description"`
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func (pc *ProductController) CreateProduct(c *gin.Context) error {
	user := middleware.CurrentUser(c)

	var input productInput
	if err := bind(c, &input); err != nil {
		return err
	}
	if blank(input.Name) || blank(input.Category) || blank(input.Description) ||
		input.Quantity == nil || input.Price == nil {
		return httperr.BadRequest("Please fill in all fields")
	}

	image, err := pc.saveImage(c)
	if err != nil {
		return err
	}

	now := pc.now()
	product := &models.Product{
		User:        user.ID,
		Name:        strings.TrimSpace(*input.Name),
		Category:    strings.TrimSpace(*input.Category),
		Quantity:    *input.Quantity,
		Price:       *input.Price,
		Description: strings.TrimSpace(*input.Description),
		Image:       image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.SKU != nil {
		product.SKU = strings.TrimSpace(*input.SKU)
	}

	ctx, cancel := queryContext(c)
	defer cancel()

	if err := pc.products.CreateProduct(ctx, product); err != nil {
		pc.removeImage(image)
		return httperr.Internal("Failed to create product", err)
	}

	c.JSON(http.StatusCreated, product)
	return nil
}

func (pc *ProductController) GetProducts(c *gin.Context) error {
	user := middleware.CurrentUser(c)

	ctx, cancel := queryContext(c)
	defer cancel()

	products, err := pc.products.ListProducts(ctx, user.ID)
	if err != nil {
		return httperr.Internal("Failed to fetch products", err)
	}

	c.JSON(http.StatusOK, products)
	return nil
}

func (pc *ProductController) GetProduct(c *gin.Context) error {
	product, err := pc.ownedProduct(c)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, product)
	return nil
}

func (pc *ProductController) DeleteProduct(c *gin.Context) error {
	product, err := pc.ownedProduct(c)
	if err != nil {
		return err
	}

	ctx, cancel := queryContext(c)
	defer cancel()

	err = pc.products.DeleteProduct(ctx, product.ID)
	if errors.Is(err, database.ErrNotFound) {
		return httperr.NotFound("Product not found")
	}
	if err != nil {
		return httperr.Internal("Failed to delete product", err)
	}
	pc.removeImage(product.Image)

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted."})
	return nil
}

func (pc *ProductController) UpdateProduct(c *gin.Context) error {
	product, err := pc.ownedProduct(c)
	if err != nil {
		return err
	}

	var input productInput
	if err := bind(c, &input); err != nil {
		return err
	}
	if input.Name != nil && blank(input.Name) {
		return httperr.BadRequest("Product name cannot be empty")
	}

	image, err := pc.saveImage(c)
	if err != nil {
		return err
	}

	ctx, cancel := queryContext(c)
	defer cancel()

	updated, err := pc.products.UpdateProduct(ctx, product.ID, models.ProductUpdate{
		Name:        input.Name,
		SKU:         input.SKU,
		Category:    input.Category,
		Quantity:    input.Quantity,
		Price:       input.Price,
		Description: input.Description,
		Image:       image,
	})
	if err != nil {
		pc.removeImage(image)
		if errors.Is(err, database.ErrNotFound) {
			return httperr.NotFound("Product not found")
		}
		return httperr.Internal("Failed to update product", err)
	}
	if image != nil {
		pc.removeImage(product.Image)
	}

	c.JSON(http.StatusOK, updated)
	return nil
}

// ownedProduct loads the product named by :id and checks it belongs to the
// current user.
func (pc *ProductController) ownedProduct(c *gin.Context) (*models.Product, error) {
	id, err := bindID(c)
	if err != nil {
		return nil, err
	}

	ctx, cancel := queryContext(c)
	defer cancel()

	product, err := pc.products.FindProduct(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, httperr.NotFound("Product not found")
	}
	if err != nil {
		return nil, httperr.Internal("Failed to fetch product", err)
	}

	user := middleware.CurrentUser(c)
	if product.User != user.ID {
		return nil, httperr.Unauthorized("User not authorized")
	}
	return product, nil
}

// saveImage stores the optional "image" form file under the upload directory.
// It returns nil when the request carries no image.
func (pc *ProductController) saveImage(c *gin.Context) (*models.FileData, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return nil, nil
	}

	file, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, httperr.Wrap(http.StatusBadRequest, "Invalid image upload", err)
	}

	ext, err := imageExt(file)
	if err != nil {
		return nil, err
	}
	if file.Size > MaxImageBytes {
		return nil, httperr.BadRequest("Image must be 5MB or smaller")
	}

	if err := os.MkdirAll(pc.uploadDir, 0o755); err != nil {
		return nil, httperr.Internal("Image could not be uploaded", err)
	}

	name := uuid.NewString() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(pc.uploadDir, name)); err != nil {
		return nil, httperr.Internal("Image could not be uploaded", err)
	}

	return &models.FileData{
		FileName: file.Filename,
		FilePath: path.Join(pc.uploadPrefix, name),
		FileType: file.Header.Get("Content-Type"),
		FileSize: FormatFileSize(file.Size, 2),
	}, nil
}

func (pc *ProductController) removeImage(image *models.FileData) {
	if image == nil || !strings.HasPrefix(image.FilePath, pc.uploadPrefix+"/") {
		return
	}
	_ = os.Remove(filepath.Join(pc.uploadDir, path.Base(image.FilePath)))
}

func imageExt(file *multipart.FileHeader) (string, error) {
	ext, ok := imageTypes[strings.ToLower(file.Header.Get("Content-Type"))]
	if !ok {
		return "", httperr.BadRequest("Only .png, .jpg and .jpeg format allowed")
	}
	if orig := strings.ToLower(filepath.Ext(file.Filename)); orig == ".png" || orig == ".jpg" || orig == ".jpeg" {
		ext = orig
	}
	return ext, nil
}

// FormatFileSize renders n bytes with the largest fitting unit, e.g. "1.5 KB".
func FormatFileSize(n int64, decimals int) string {
	if n == 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB", "TB"}
	size := float64(n)
	i := 0
	for size >= 1000 && i < len(units)-1 {
		size /= 1000
		i++
	}
	s := fmt.Sprintf("%.*f", decimals, size)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s + " " + units[i]
}
