package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/stockflow/core"
	"github.com/layer-3/stockflow/devapi"
	"github.com/sirupsen/logrus"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	log          logrus.FieldLogger
	issuer       *devapi.Issuer
	secureCookie bool
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(log logrus.FieldLogger, issuer *devapi.Issuer, secureCookie bool) *AuthHandlers {
	return &AuthHandlers{
		log:          log,
		issuer:       issuer,
		secureCookie: secureCookie,
	}
}

// Login handles the OAuth2 password form
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		Username string `form:"username" binding:"required"`
		Password string `form:"password" binding:"required"`
	}

	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "username and password are required"})
		return
	}

	token, err := h.issuer.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Incorrect username or password"})
			return
		}

		h.log.WithError(err).Error("Login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Authentication failed"})
		return
	}

	h.setSessionCookies(c, token)
	c.JSON(http.StatusOK, token)
}

// Refresh rotates the session. The refresh token comes from the session
// cookie, or from a JSON body for bearer clients.
func (h *AuthHandlers) Refresh(c *gin.Context) {
	refreshToken := h.refreshToken(c)
	if refreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Refresh token missing"})
		return
	}

	token, err := h.issuer.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrTokenExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Refresh token expired"})
		case errors.Is(err, core.ErrTokenInvalidated):
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Refresh token has been invalidated"})
		case errors.Is(err, core.ErrInvalidToken):
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid refresh token"})
		default:
			h.log.WithError(err).Error("Refresh failed")
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to refresh tokens"})
		}
		return
	}

	h.setSessionCookies(c, token)
	c.JSON(http.StatusOK, token)
}

// Logout ends the session. It always succeeds for the caller and clears the cookies.
func (h *AuthHandlers) Logout(c *gin.Context) {
	if refreshToken := h.refreshToken(c); refreshToken != "" {
		refreshID, err := h.issuer.RefreshID(refreshToken)
		if err == nil {
			err = h.issuer.Logout(c.Request.Context(), refreshID)
		}
		if err != nil && !errors.Is(err, core.ErrTokenExpired) {
			h.log.WithError(err).Debug("Logout without a valid session")
		}
	}

	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	user, ok := h.issuer.User(c.GetString(subjectKey))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *AuthHandlers) refreshToken(c *gin.Context) string {
	if token, err := c.Cookie(refreshTokenCookie); err == nil && token != "" {
		return token
	}

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if c.Request.ContentLength == 0 {
		return ""
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return ""
	}
	return req.RefreshToken
}

func (h *AuthHandlers) setSessionCookies(c *gin.Context, token core.Token) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessTokenCookie, token.AccessToken, seconds(h.issuer.AccessTTL()), "/", "", h.secureCookie, true)
	c.SetCookie(refreshTokenCookie, token.RefreshToken, seconds(h.issuer.RefreshTTL()), "/", "", h.secureCookie, true)
}

func (h *AuthHandlers) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessTokenCookie, "", -1, "/", "", h.secureCookie, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/", "", h.secureCookie, true)
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}

// InventoryHandlers serves the inventory resources
type InventoryHandlers struct {
	inventory *devapi.Inventory
}

// NewInventoryHandlers creates new inventory handlers
func NewInventoryHandlers(inventory *devapi.Inventory) *InventoryHandlers {
	return &InventoryHandlers{inventory: inventory}
}

func (h *InventoryHandlers) ListProducts(c *gin.Context) {
	products := h.inventory.Products(c.Query("category"), c.Query("status"), c.Query("search"))
	c.JSON(http.StatusOK, core.List[core.Product]{Items: products, Total: len(products)})
}

func (h *InventoryHandlers) GetProduct(c *gin.Context) {
	product, err := h.inventory.Product(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *InventoryHandlers) ListPurchaseOrders(c *gin.Context) {
	orders := h.inventory.PurchaseOrders(c.Query("status"))
	c.JSON(http.StatusOK, core.List[core.PurchaseOrder]{Items: orders, Total: len(orders)})
}

func (h *InventoryHandlers) CreatePurchaseOrder(c *gin.Context) {
	var po core.PurchaseOrder
	if err := c.ShouldBindJSON(&po); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Invalid purchase order"})
		return
	}

	created, err := h.inventory.AddPurchaseOrder(po)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *InventoryHandlers) CreateOrder(c *gin.Context) {
	var order core.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Invalid order"})
		return
	}

	created, err := h.inventory.AddOrder(order)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, core.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *InventoryHandlers) ListVendors(c *gin.Context) {
	vendors := h.inventory.Vendors()
	c.JSON(http.StatusOK, core.List[core.Vendor]{Items: vendors, Total: len(vendors)})
}

func (h *InventoryHandlers) ListOrganizations(c *gin.Context) {
	orgs := h.inventory.Organizations()
	c.JSON(http.StatusOK, core.List[core.Organization]{Items: orgs, Total: len(orgs)})
}

func (h *InventoryHandlers) ListAlerts(c *gin.Context) {
	alerts := h.inventory.Alerts()
	c.JSON(http.StatusOK, core.List[core.Alert]{Items: alerts, Total: len(alerts)})
}

func (h *InventoryHandlers) MarkAlertRead(c *gin.Context) {
	if err := h.inventory.MarkAlertRead(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Alert not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Alert marked as read"})
}
