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

type EventController struct {
	svc *services.EventService
}

func NewEventController(svc *services.EventService) *EventController {
	return &EventController{svc: svc}
}

type createEventRequest struct {
	Title              string              `json:"title" binding:"required"`
	Description        string              `json:"description"`
	EventType          string              `json:"event_type"`
	Category           string              `json:"category"`
	Location           documents.Location  `json:"location"`
	StartDate          *time.Time          `json:"start_date"`
	EndDate            *time.Time          `json:"end_date"`
	Capacity           int                 `json:"capacity"`
	RequiresApproval   bool                `json:"requires_approval"`
	EnrollmentDeadline *time.Time          `json:"enrollment_deadline"`
}

type updateEventRequest struct {
	Title              *string             `json:"title"`
	Description        *string             `json:"description"`
	EventType          *string             `json:"event_type"`
	Category           *string             `json:"category"`
	Location           *documents.Location `json:"location"`
	StartDate          *time.Time          `json:"start_date"`
	EndDate            *time.Time          `json:"end_date"`
	Capacity           *int                `json:"capacity"`
	RequiresApproval   *bool               `json:"requires_approval"`
	EnrollmentDeadline *time.Time          `json:"enrollment_deadline"`
}

type changeStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

type registerRequestBody struct {
	Comments string `json:"comments"`
}

type participantRequest struct {
	UserID int `json:"user_id" binding:"required"`
}

type attendanceRequest struct {
	UserID   int  `json:"user_id" binding:"required"`
	Attended bool `json:"attended"`
}

type sponsorRequest struct {
	Tier string `json:"tier"`
}

func (ec *EventController) Create(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	doc, err := ec.svc.Create(c.Request.Context(), actorFrom(c), services.CreateEventInput{
		Title:              req.Title,
		Description:        req.Description,
		EventType:          req.EventType,
		Category:           req.Category,
		Location:           req.Location,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		Capacity:           req.Capacity,
		RequiresApproval:   req.RequiresApproval,
		EnrollmentDeadline: req.EnrollmentDeadline,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendCreated(c, doc.SafeProjection())
}

// List serves the public catalog.
func (ec *EventController) List(c *gin.Context) {
	filter := services.EventFilter{
		Status:       c.Query("status"),
		EventType:    c.Query("event_type"),
		Category:     c.Query("category"),
		Search:       utils.NormalizeSearch(c.Query("search")),
		UpcomingOnly: c.Query("upcoming") == "true",
		PublicOnly:   true,
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	ec.list(c, filter)
}

// ListMine serves the authenticated NGO's own events in every status.
func (ec *EventController) ListMine(c *gin.Context) {
	actor := actorFrom(c)
	if actor.NGOID == 0 {
		utils.SendError(c, http.StatusForbidden, "no NGO profile on this account")
		return
	}
	filter := services.EventFilter{
		NGOID:  actor.NGOID,
		Status: c.Query("status"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	ec.list(c, filter)
}

func (ec *EventController) list(c *gin.Context, filter services.EventFilter) {
	docs, err := ec.svc.List(c.Request.Context(), filter)
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

func (ec *EventController) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := ec.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, doc.SafeProjection())
}

func (ec *EventController) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	doc, err := ec.svc.Update(c.Request.Context(), actorFrom(c), id, services.UpdateEventInput{
		Title:              req.Title,
		Description:        req.Description,
		EventType:          req.EventType,
		Category:           req.Category,
		Location:           req.Location,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		Capacity:           req.Capacity,
		RequiresApproval:   req.RequiresApproval,
		EnrollmentDeadline: req.EnrollmentDeadline,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, doc.SafeProjection())
}

func (ec *EventController) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := ec.svc.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"deleted": id})
}

func (ec *EventController) ChangeStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}
	doc, err := ec.svc.ChangeStatus(c.Request.Context(), actorFrom(c), id, req.Status, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, doc.SafeProjection())
}

func (ec *EventController) Register(c *gin.Context) {
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
	doc, err := ec.svc.Register(c.Request.Context(), actorFrom(c), id, req.Comments)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendCreated(c, doc.SafeProjection())
}

func (ec *EventController) CancelRegistration(c *gin.Context) {
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
	doc, err := ec.svc.CancelRegistration(c.Request.Context(), actor, id, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, doc.SafeProjection())
}

func (ec *EventController) Approve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req participantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}
	doc, err := ec.svc.Approve(c.Request.Context(), actorFrom(c), id, req.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, doc.SafeProjection())
}

func (ec *EventController) MarkAttendance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req attendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}
	doc, err := ec.svc.MarkAttendance(c.Request.Context(), actorFrom(c), id, req.UserID, req.Attended)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, doc.SafeProjection())
}

func (ec *EventController) AddSponsor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req sponsorRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendValidationError(c, err.Error())
			return
		}
	}
	doc, err := ec.svc.AddSponsor(c.Request.Context(), actorFrom(c), id, req.Tier)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendCreated(c, doc.SafeProjection())
}

func (ec *EventController) AddBacker(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := ec.svc.AddBacker(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendCreated(c, doc.SafeProjection())
}

// UploadImages accepts a multipart form with an "images" field.
func (ec *EventController) UploadImages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "expected a multipart form")
		return
	}
	images, err := utils.ReadImages(form, "images", utils.EventImageLimits, time.Now())
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := ec.svc.AttachImages(c.Request.Context(), actorFrom(c), id, images)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendCreated(c, gin.H{"images": len(doc.Images)})
}

func (ec *EventController) RemoveImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		utils.SendError(c, http.StatusBadRequest, "invalid image index")
		return
	}
	doc, err := ec.svc.RemoveImage(c.Request.Context(), actorFrom(c), id, index)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"images": len(doc.Images)})
}

// Transitions returns the statuses reachable from the event's current
// state.
func (ec *EventController) Transitions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := ec.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	allowed := services.EventTransitionsFrom(doc.Status)
	if allowed == nil {
		allowed = []string{}
	}
	utils.SendSuccess(c, gin.H{"status": doc.Status, "allowed": allowed})
}

// Participants returns the registration list of an event.
func (ec *EventController) Participants(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := ec.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	regs := doc.Registrations
	if regs == nil {
		regs = []documents.Registration{}
	}
	utils.SendSuccess(c, regs)
}

// Stats returns the attendance snapshot of an event.
func (ec *EventController) Stats(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := ec.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, doc.Metrics)
}

// MineStats returns the acting NGO's event counts per status.
func (ec *EventController) MineStats(c *gin.Context) {
	actor := actorFrom(c)
	if actor.NGOID == 0 {
		utils.SendError(c, http.StatusForbidden, "no NGO profile on this account")
		return
	}
	counts, err := ec.svc.StatusCounts(c.Request.Context(), actor.NGOID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, counts)
}

func (ec *EventController) RemoveSponsor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := ec.svc.RemoveSponsor(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, doc.SafeProjection())
}

func (ec *EventController) RemoveBacker(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := ec.svc.RemoveBacker(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SendSuccess(c, doc.SafeProjection())
}

// History returns the lifecycle trail of an event.
func (ec *EventController) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := ec.svc.Get(c.Request.Context(), id)
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
