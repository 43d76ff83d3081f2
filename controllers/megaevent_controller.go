package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"unidos-api/documents"
	"unidos-api/services"
	"unidos-api/utils"
)

type MegaEventController struct {
	svc *services.MegaEventService
}

func NewMegaEventController(svc *services.MegaEventService) *MegaEventController {
	return &MegaEventController{svc: svc}
}

type createMegaEventRequest struct {
	Title            string             `json:"title" binding:"required"`
	Description      string             `json:"description"`
	Category         string             `json:"category"`
	Location         documents.Location `json:"location"`
	StartDate        *time.Time         `json:"start_date"`
	EndDate          *time.Time         `json:"end_date"`
	Capacity         int                `json:"capacity"`
	RequiresApproval bool               `json:"requires_approval"`
}

type updateMegaEventRequest struct {
	Title            *string             `json:"title"`
	Description      *string             `json:"description"`
	Category         *string             `json:"category"`
	Location         *documents.Location `json:"location"`
	StartDate        *time.Time          `json:"start_date"`
	EndDate          *time.Time          `json:"end_date"`
	Capacity         *int                `json:"capacity"`
	RequiresApproval *bool               `json:"requires_approval"`
}

type organizerRequest struct {
	NGOID int    `json:"ngo_id" binding:"required"`
	Role  string `json:"role"`
}

type pledgeRequest struct {
	Tier   string  `json:"tier"`
	Amount float64 `json:"amount"`
	Note   string  `json:"note"`
}

type pledgeStateRequest struct {
	CompanyID int    `json:"company_id" binding:"required"`
	State     string `json:"state" binding:"required"`
}

func (mc *MegaEventController) Create(c *gin.Context) {
	var req createMegaEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	doc, err := mc.svc.Create(c.Request.Context(), actorFrom(c), services.CreateMegaEventInput{
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		Location:         req.Location,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		Capacity:         req.Capacity,
		RequiresApproval: req.RequiresApproval,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendCreated(c, doc.SafeProjection())
}

func (mc *MegaEventController) List(c *gin.Context) {
	filter := services.MegaEventFilter{
		Status:       c.Query("status"),
		Category:     c.Query("category"),
		Search:       utils.NormalizeSearch(c.Query("search")),
		UpcomingOnly: c.Query("upcoming") == "true",
		PublicOnly:   true,
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	mc.list(c, filter)
}

// ListMine serves the mega-events where the acting NGO is an active
// organizer.
func (mc *MegaEventController) ListMine(c *gin.Context) {
	actor := actorFrom(c)
	if actor.NGOID == 0 {
		utils.SendError(c, http.StatusForbidden, "no NGO profile on this account")
		return
	}
	filter := services.MegaEventFilter{
		OrganizerNGOID: actor.NGOID,
		Status:         c.Query("status"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	mc.list(c, filter)
}

func (mc *MegaEventController) list(c *gin.Context, filter services.MegaEventFilter) {
	docs, err := mc.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	out := make([]map[string]interface{}, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].SafeProjection())
	}
	utils.SendPaginated(c, out, filter.Page, filter.PageSize, len(out))
}

func (mc *MegaEventController) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := mc.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, doc.SafeProjection())
}

func (mc *MegaEventController) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateMegaEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	doc, err := mc.svc.Update(c.Request.Context(), actorFrom(c), id, services.UpdateMegaEventInput{
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		Location:         req.Location,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		Capacity:         req.Capacity,
		RequiresApproval: req.RequiresApproval,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, doc.SafeProjection())
}

func (mc *MegaEventController) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := mc.svc.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"deleted": id})
}

func (mc *MegaEventController) ChangeStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}
	doc, err := mc.svc.ChangeStatus(c.Request.Context(), actorFrom(c), id, req.Status, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, doc.SafeProjection())
}

func (mc *MegaEventController) Register(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req registerRequestBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendValidationError(c, err.Error())
			return
		}
	}
	doc, err := mc.svc.Register(c.Request.Context(), actorFrom(c), id, req.Comments)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendCreated(c, doc.SafeProjection())
}

func (mc *MegaEventController) CancelRegistration(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor := actorFrom(c)
	userID := actor.UserID
	if v := c.Query("user_id"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			userID = parsed
		}
	}
	doc, err := mc.svc.CancelRegistration(c.Request.Context(), actor, id, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, doc.SafeProjection())
}

func (mc *MegaEventController) Approve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req participantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}
	doc, err := mc.svc.Approve(c.Request.Context(), actorFrom(c), id, req.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, doc.SafeProjection())
}

func (mc *MegaEventController) MarkAttendance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req attendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}
	doc, err := mc.svc.MarkAttendance(c.Request.Context(), actorFrom(c), id, req.UserID, req.Attended)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, doc.SafeProjection())
}

func (mc *MegaEventController) AddOrganizer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req organizerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}
	doc, err := mc.svc.AddOrganizer(c.Request.Context(), actorFrom(c), id, req.NGOID, req.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendCreated(c, doc.SafeProjection())
}

func (mc *MegaEventController) RemoveOrganizer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ngoID, ok := pathID(c, "ngoId")
	if !ok {
		return
	}
	doc, err := mc.svc.RemoveOrganizer(c.Request.Context(), actorFrom(c), id, ngoID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, doc.SafeProjection())
}

func (mc *MegaEventController) AddPledge(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req pledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}
	doc, err := mc.svc.AddPledge(c.Request.Context(), actorFrom(c), id, req.Tier, req.Amount, req.Note)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendCreated(c, doc.SafeProjection())
}

func (mc *MegaEventController) SetPledgeState(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req pledgeStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}
	doc, err := mc.svc.SetPledgeState(c.Request.Context(), actorFrom(c), id, req.CompanyID, req.State)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, doc.SafeProjection())
}

// Transitions returns the statuses reachable from the mega-event's
// current state.
func (mc *MegaEventController) Transitions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := mc.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	allowed := services.MegaTransitionsFrom(doc.Status)
	if allowed == nil {
		allowed = []string{}
	}
	utils.SendSuccess(c, gin.H{"status": doc.Status, "allowed": allowed})
}

// Participants returns the registration list of a mega-event.
func (mc *MegaEventController) Participants(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := mc.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	regs := doc.Participants
	if regs == nil {
		regs = []documents.Registration{}
	}
	utils.SendSuccess(c, regs)
}

// Stats returns the denormalized snapshot of a mega-event.
func (mc *MegaEventController) Stats(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := mc.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, doc.Metrics)
}

// History returns the lifecycle trail of a mega-event.
func (mc *MegaEventController) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := mc.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	history := doc.History
	if history == nil {
		history = []documents.StatusChange{}
	}
	utils.SendSuccess(c, history)
}

func (mc *MegaEventController) UploadImages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "expected a multipart form")
		return
	}
	images, err := utils.ReadImages(form, "images", utils.MegaEventImageLimits, time.Now())
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := mc.svc.AttachImages(c.Request.Context(), actorFrom(c), id, images)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendCreated(c, gin.H{"images": len(doc.Images)})
}

func (mc *MegaEventController) RemoveImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		utils.SendError(c, http.StatusBadRequest, "invalid image index")
		return
	}
	doc, err := mc.svc.RemoveImage(c.Request.Context(), actorFrom(c), id, index)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"images": len(doc.Images)})
}
