package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mmdatafocus/orders_backend/middlewares"
	"github.com/mmdatafocus/orders_backend/models"
	"github.com/mmdatafocus/orders_backend/utils"
	"github.com/mmdatafocus/orders_backend/workflow"
)

// requireAction gates a route on the role capability table.
func requireAction(action models.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !models.CanActorPerform(c.Request.Context(), action) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// writeCommandError maps domain error types onto transport codes.
func writeCommandError(c *gin.Context, err error) {
	var transitionErr *workflow.TransitionError
	var shortfallErr *models.StockShortfallError
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &shortfallErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "shortfalls": shortfallErr.Shortfalls})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func registerRoutes(r *gin.Engine) {
	r.POST("/login", loginHandler)

	authed := r.Group("/", middlewares.RequireActor())

	authed.POST("/device-token", deviceTokenHandler)

	orders := authed.Group("/orders")
	orders.GET("", requireAction(models.ActionViewOrders), listOrdersHandler)
	orders.GET("/:id", requireAction(models.ActionViewOrders), getOrderHandler)
	orders.POST("", requireAction(models.ActionCreateOrder), createOrderHandler)
	orders.PUT("/:id", requireAction(models.ActionUpdateOrder), updateOrderHandler)
	orders.DELETE("/:id", requireAction(models.ActionDeleteOrder), deleteOrderHandler)
	orders.POST("/:id/status", requireAction(models.ActionChangeStatus), changeOrderStatusHandler)
	orders.POST("/:id/dispatch", requireAction(models.ActionDispatchOrder), dispatchOrderHandler)
	orders.POST("/:id/complete", requireAction(models.ActionCompleteOrder), completeOrderHandler)
	orders.POST("/:id/cancel", requireAction(models.ActionCancelOrder), cancelOrderHandler)

	products := authed.Group("/products")
	products.GET("", listProductsHandler)
	products.GET("/:id", getProductHandler)
	products.POST("", requireAction(models.ActionCreateProduct), createProductHandler)
	products.PUT("/:id", requireAction(models.ActionUpdateProduct), updateProductHandler)
	products.DELETE("/:id", requireAction(models.ActionDeleteProduct), deleteProductHandler)
	products.POST("/:id/adjust-stock", requireAction(models.ActionAdjustStock), adjustStockHandler)
	products.POST("/import", requireAction(models.ActionImportProducts), importProductsHandler)

	staff := authed.Group("/staff", requireAction(models.ActionManageStaff))
	staff.GET("", listStaffHandler)
	staff.POST("", createStaffHandler)
	staff.PUT("/:id", updateStaffHandler)
	staff.DELETE("/:id", deleteStaffHandler)
}

func loginHandler(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and password are required"})
		return
	}

	token, user, err := models.Login(c.Request.Context(), input.Name, input.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func deviceTokenHandler(c *gin.Context) {
	var input struct {
		DeviceToken string `json:"device_token"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	userId, _ := utils.GetUserIdFromContext(c.Request.Context())
	if err := models.UpdateDeviceToken(c.Request.Context(), userId, input.DeviceToken); err != nil {
		writeCommandError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func listOrdersHandler(c *gin.Context) {
	var status *models.Status
	var orderStatus *models.OrderStatus
	var assigneeId *int
	var customerName *string

	if v := c.Query("status"); v != "" {
		s := models.Status(v)
		status = &s
	}
	if v := c.Query("order_status"); v != "" {
		s := models.OrderStatus(v)
		orderStatus = &s
	}
	if v := c.Query("assignee_id"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			assigneeId = &n
		}
	}
	if v := strings.TrimSpace(c.Query("customer")); v != "" {
		customerName = &v
	}

	orders, err := models.GetOrders(c.Request.Context(), status, orderStatus, assigneeId, customerName)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func getOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := models.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func createOrderHandler(c *gin.Context) {
	var input models.NewOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := fulfillment.CreateOrder(c.Request.Context(), &input)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func updateOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := fulfillment.UpdateOrder(c.Request.Context(), id, &input)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func deleteOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := fulfillment.DeleteOrder(c.Request.Context(), id)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "order_number": order.OrderNumber})
}

func changeOrderStatusHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input struct {
		NewStatus       models.OrderStatus            `json:"new_status" binding:"required"`
		DeliveryPartner string                        `json:"delivery_partner"`
		DispatchItems   []workflow.DeliveredItemInput `json:"dispatch_items"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := fulfillment.ChangeOrderStatus(c.Request.Context(), id, input.NewStatus, input.DeliveryPartner, input.DispatchItems)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func dispatchOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input struct {
		DeliveryPartner string                        `json:"delivery_partner" binding:"required"`
		DeliveredItems  []workflow.DeliveredItemInput `json:"delivered_items"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := fulfillment.DispatchOrder(c.Request.Context(), id, input.DeliveryPartner, input.DeliveredItems)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func completeOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	order, err := fulfillment.CompleteOrder(c.Request.Context(), id)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func cancelOrderHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input struct {
		Reason string `json:"reason"`
	}
	// The body is optional on cancel.
	_ = c.ShouldBindJSON(&input)

	order, err := fulfillment.CancelOrder(c.Request.Context(), id, input.Reason)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func listProductsHandler(c *gin.Context) {
	var name *string
	if v := strings.TrimSpace(c.Query("name")); v != "" {
		name = &v
	}
	products, err := models.GetProducts(c.Request.Context(), name)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func getProductHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	product, err := models.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func createProductHandler(c *gin.Context) {
	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	product, err := models.CreateProduct(c.Request.Context(), &input)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

func updateProductHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	product, err := models.UpdateProduct(c.Request.Context(), id, &input)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func notifyProductEvent(c *gin.Context, eventType string, product *models.Product) {
	actorId, _ := utils.GetUserIdFromContext(c.Request.Context())
	fulfillment.Notifier.Notify(c.Request.Context(), eventType, workflow.FanoutContext{
		ActorId:       actorId,
		ProductName:   product.Name,
		StockQuantity: product.StockQuantity,
	})
}

func deleteProductHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	product, err := models.DeleteProduct(c.Request.Context(), id)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	notifyProductEvent(c, models.EventProductDeleted, product)
	c.JSON(http.StatusOK, gin.H{"deleted": true, "product": product.Name})
}

func adjustStockHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input struct {
		Delta int `json:"delta" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "non-zero delta is required"})
		return
	}
	product, err := fulfillment.AdjustStock(c.Request.Context(), id, input.Delta)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func importProductsHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if !strings.HasSuffix(fileHeader.Filename, ".xlsx") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file type: only .xlsx files are allowed"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	summary, err := models.ImportProductsFromXlsx(c.Request.Context(), file)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func listStaffHandler(c *gin.Context) {
	users, err := models.GetUsers(c.Request.Context())
	if err != nil {
		writeCommandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": users})
}

func notifyStaffEvent(c *gin.Context, eventType string, user *models.User) {
	actorId, _ := utils.GetUserIdFromContext(c.Request.Context())
	fulfillment.Notifier.Notify(c.Request.Context(), eventType, workflow.FanoutContext{
		ActorId:   actorId,
		StaffName: user.Name,
	})
}

func createStaffHandler(c *gin.Context) {
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := models.CreateUser(c.Request.Context(), &input)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	notifyStaffEvent(c, models.EventStaffCreated, user)
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func updateStaffHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := models.UpdateUser(c.Request.Context(), id, &input)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	notifyStaffEvent(c, models.EventStaffUpdated, user)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func deleteStaffHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	user, err := models.DeleteUser(c.Request.Context(), id)
	if err != nil {
		writeCommandError(c, err)
		return
	}
	notifyStaffEvent(c, models.EventStaffDeleted, user)
	c.JSON(http.StatusOK, gin.H{"deleted": true, "user": user.Name})
}
