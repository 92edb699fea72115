package server

import (
	"net/http"
	"strings"

	orderdomain "github.com/clinicore/ledger/internal/order/domain"
	"github.com/gin-gonic/gin"
)

type createLabOrderRequest struct {
	PatientID   string `json:"patient_id"`
	EncounterID string `json:"encounter_id"`
	TestName    string `json:"test_name"`
	Priority    string `json:"priority"`
	Notes       string `json:"notes"`
}

func (s *Server) CreateLabOrder(c *gin.Context) {
	var req createLabOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	patientID, err := parseOptionalID(req.PatientID)
	if err != nil || patientID == nil {
		AbortWithError(c, newValidationError("patient_id", "invalid_patient", "invalid patient id"))
		return
	}
	encounterID, err := parseOptionalID(req.EncounterID)
	if err != nil {
		AbortWithError(c, newValidationError("encounter_id", "invalid_encounter", "invalid encounter id"))
		return
	}

	order, err := s.orderSvc.CreateLabOrder(c.Request.Context(), orderdomain.CreateLabOrderRequest{
		PatientID:   *patientID,
		EncounterID: encounterID,
		TestName:    strings.TrimSpace(req.TestName),
		Priority:    strings.TrimSpace(req.Priority),
		Notes:       strings.TrimSpace(req.Notes),
		OrderedBy:   actorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": order})
}

type createImagingOrderRequest struct {
	PatientID   string `json:"patient_id"`
	EncounterID string `json:"encounter_id"`
	Modality    string `json:"modality"`
	BodyPart    string `json:"body_part"`
	Priority    string `json:"priority"`
	Notes       string `json:"notes"`
}

func (s *Server) CreateImagingOrder(c *gin.Context) {
	var req createImagingOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	patientID, err := parseOptionalID(req.PatientID)
	if err != nil || patientID == nil {
		AbortWithError(c, newValidationError("patient_id", "invalid_patient", "invalid patient id"))
		return
	}
	encounterID, err := parseOptionalID(req.EncounterID)
	if err != nil {
		AbortWithError(c, newValidationError("encounter_id", "invalid_encounter", "invalid encounter id"))
		return
	}

	order, err := s.orderSvc.CreateImagingOrder(c.Request.Context(), orderdomain.CreateImagingOrderRequest{
		PatientID:   *patientID,
		EncounterID: encounterID,
		Modality:    strings.TrimSpace(req.Modality),
		BodyPart:    strings.TrimSpace(req.BodyPart),
		Priority:    strings.TrimSpace(req.Priority),
		Notes:       strings.TrimSpace(req.Notes),
		OrderedBy:   actorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": order})
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) UpdateLabOrderStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	order, err := s.orderSvc.UpdateLabOrderStatus(c.Request.Context(), id,
		orderdomain.OrderStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (s *Server) UpdateImagingOrderStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	order, err := s.orderSvc.UpdateImagingOrderStatus(c.Request.Context(), id,
		orderdomain.OrderStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (s *Server) ListLabOrders(c *gin.Context) {
	req, ok := bindOrderList(c)
	if !ok {
		return
	}

	orders, err := s.orderSvc.ListLabOrders(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}

func (s *Server) ListImagingOrders(c *gin.Context) {
	req, ok := bindOrderList(c)
	if !ok {
		return
	}

	orders, err := s.orderSvc.ListImagingOrders(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}

func bindOrderList(c *gin.Context) (orderdomain.ListOrderRequest, bool) {
	var query struct {
		PatientID string `form:"patient_id"`
		Status    string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return orderdomain.ListOrderRequest{}, false
	}

	patientID, err := parseOptionalID(query.PatientID)
	if err != nil {
		AbortWithError(c, newValidationError("patient_id", "invalid_patient", "invalid patient id"))
		return orderdomain.ListOrderRequest{}, false
	}

	req := orderdomain.ListOrderRequest{PatientID: patientID}
	if status := strings.TrimSpace(query.Status); status != "" {
		st := orderdomain.OrderStatus(status)
		req.Status = &st
	}
	return req, true
}
