package v1

import (
	"net/http"
	"strconv"

	"go-freelance-backend/internal/delivery/http/middleware"
	"go-freelance-backend/internal/delivery/http/response"
	"go-freelance-backend/internal/domain"
	"go-freelance-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type MilestoneHandler struct {
	milestoneUC domain.MilestoneUsecase
}

type AdvanceMilestoneRequest struct {
	Status domain.MilestoneStatus `json:"status" binding:"required"`
}

type PayMilestoneRequest struct {
	Amount domain.Amount `json:"amount"`
}

type DepositRequest struct {
	Amount domain.Amount `json:"amount"`
}

func NewMilestoneHandler(protected *gin.RouterGroup, paymentLimit gin.HandlerFunc, milestoneUC domain.MilestoneUsecase) {
	handler := &MilestoneHandler{milestoneUC: milestoneUC}

	contracts := protected.Group("/contracts/:id/:uid/milestones/:index")
	{
		contracts.PATCH("", middleware.RequireRole(domain.RoleFreelancer), handler.Advance)
		contracts.POST("/pay", middleware.RequireRole(domain.RoleClient), paymentLimit, handler.Pay)
	}

	wallet := protected.Group("/wallet")
	{
		wallet.GET("", handler.GetWallet)
		wallet.POST("/deposit", middleware.RequireRole(domain.RoleClient), paymentLimit, handler.Deposit)
	}
}

func milestoneIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.Error(apperror.BadRequest("Invalid milestone index"))
		return 0, false
	}
	return index, true
}

// AdvanceMilestone godoc
// @Summary      Update milestone status
// @Description  The contracted freelancer moves a milestone to In Progress or Done
// @Tags         milestones
// @Accept       json
// @Produce      json
// @Param        id      path      string                   true  "Job ID"
// @Param        uid     path      string                   true  "Freelancer UID"
// @Param        index   path      int                      true  "Milestone index"
// @Param        status  body      AdvanceMilestoneRequest  true  "New status"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /contracts/{id}/{uid}/milestones/{index} [patch]
// @Security     BearerAuth
func (h *MilestoneHandler) Advance(c *gin.Context) {
	index, ok := milestoneIndex(c)
	if !ok {
		return
	}
	var req AdvanceMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body: " + err.Error()))
		return
	}

	app, err := h.milestoneUC.AdvanceMilestone(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), c.Param("uid"), index, req.Status)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Milestone updated", app)
}

// PayMilestone godoc
// @Summary      Pay a milestone
// @Description  The job owner pays a Done milestone from their wallet to the freelancer's
// @Tags         milestones
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Job ID"
// @Param        uid      path      string               true  "Freelancer UID"
// @Param        index    path      int                  true  "Milestone index"
// @Param        payment  body      PayMilestoneRequest  true  "Amount"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /contracts/{id}/{uid}/milestones/{index}/pay [post]
// @Security     BearerAuth
func (h *MilestoneHandler) Pay(c *gin.Context) {
	index, ok := milestoneIndex(c)
	if !ok {
		return
	}
	var req PayMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body: " + err.Error()))
		return
	}

	receipt, err := h.milestoneUC.PayMilestone(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), c.Param("uid"), index, req.Amount.Float())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Milestone paid", receipt)
}

// GetWallet godoc
// @Summary      Get my wallet
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /wallet [get]
// @Security     BearerAuth
func (h *MilestoneHandler) GetWallet(c *gin.Context) {
	wallet, err := h.milestoneUC.GetWallet(c.Request.Context(), middleware.ActorFrom(c).UID)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Wallet", wallet)
}

// Deposit godoc
// @Summary      Deposit funds
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        deposit  body      DepositRequest  true  "Amount"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /wallet/deposit [post]
// @Security     BearerAuth
func (h *MilestoneHandler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body: " + err.Error()))
		return
	}

	wallet, err := h.milestoneUC.Deposit(c.Request.Context(), middleware.ActorFrom(c).UID, req.Amount.Float())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Deposit recorded", wallet)
}
