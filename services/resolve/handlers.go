// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolve

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianResolve/services/resolve/fixture"
	"github.com/AleutianAI/AleutianResolve/services/resolve/snapshot"
)

// Handlers serves the resolution API.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for a service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// writeError maps service errors to status codes.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"

	switch {
	case errors.Is(err, ErrUniverseNotFound):
		status, code = http.StatusNotFound, "UNIVERSE_NOT_FOUND"
	case errors.Is(err, snapshot.ErrNotFound):
		status, code = http.StatusNotFound, "SNAPSHOT_NOT_FOUND"
	case errors.Is(err, fixture.ErrInvalidDocument):
		status, code = http.StatusBadRequest, "INVALID_DOCUMENT"
	case errors.Is(err, fixture.ErrBuild):
		status, code = http.StatusUnprocessableEntity, "BUILD_FAILED"
	case errors.Is(err, ErrBatchTooLarge), errors.Is(err, ErrEmptyBatch):
		status, code = http.StatusBadRequest, "INVALID_BATCH"
	case errors.Is(err, ErrTooManyUniverses):
		status, code = http.StatusConflict, "TOO_MANY_UNIVERSES"
	case errors.Is(err, ErrSnapshotsDisabled):
		status, code = http.StatusServiceUnavailable, "SNAPSHOTS_NOT_AVAILABLE"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()))
	} else {
		logger.Warn("request rejected", slog.String("code", code), slog.String("error", err.Error()))
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// HandleLoadUniverse handles POST /v1/resolve/universes.
//
// Description:
//
//	Loads a fixture document given as JSON and returns the new universe.
//
// Response:
//
//	201 Created: UniverseInfo
//	400 Bad Request: Malformed or invalid document
//	409 Conflict: Universe limit reached
//	422 Unprocessable Entity: Document describes an impossible universe
func (h *Handlers) HandleLoadUniverse(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleLoadUniverse")

	var doc fixture.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		logger.Warn("invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	u, err := h.svc.LoadUniverse(c.Request.Context(), &doc)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, u.Info())
}

// HandleListUniverses handles GET /v1/resolve/universes.
func (h *Handlers) HandleListUniverses(c *gin.Context) {
	getOrCreateRequestID(c)
	c.JSON(http.StatusOK, ListUniversesResponse{Universes: h.svc.ListUniverses()})
}

// HandleGetUniverse handles GET /v1/resolve/universes/:id.
func (h *Handlers) HandleGetUniverse(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetUniverse")

	u, err := h.svc.GetUniverse(c.Param("id"))
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, u.Info())
}

// HandleDeleteUniverse handles DELETE /v1/resolve/universes/:id.
func (h *Handlers) HandleDeleteUniverse(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDeleteUniverse")

	if err := h.svc.DeleteUniverse(c.Param("id")); err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// HandleResolve handles POST /v1/resolve/universes/:id/resolve.
//
// Description:
//
//	Resolves one call. An ambiguous or unresolvable call is a normal
//	200 response with the outcome set accordingly.
//
// Response:
//
//	200 OK: ResolveResult
//	400 Bad Request: Missing method or context
//	404 Not Found: Universe not found
//	422 Unprocessable Entity: Unknown class or malformed type in the call
func (h *Handlers) HandleResolve(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleResolve")

	var req CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	result, err := h.svc.Resolve(c.Request.Context(), c.Param("id"), req.Spec())
	if err != nil {
		writeError(c, logger, err)
		return
	}
	logger.Debug("call resolved",
		slog.String("method", req.Method),
		slog.String("outcome", result.Outcome),
	)
	c.JSON(http.StatusOK, result)
}

// HandleBatch handles POST /v1/resolve/universes/:id/batch.
func (h *Handlers) HandleBatch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleBatch")

	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	calls := make([]*fixture.CallSpec, len(req.Calls))
	for i := range req.Calls {
		calls[i] = req.Calls[i].Spec()
	}

	start := time.Now()
	results, err := h.svc.ResolveBatch(c.Request.Context(), c.Param("id"), calls)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, BatchResponse{
		Results:    results,
		DurationMs: time.Since(start).Milliseconds(),
	})
}

// HandleCheck handles POST /v1/resolve/universes/:id/check.
func (h *Handlers) HandleCheck(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCheck")

	report, err := h.svc.Check(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, logger, err)
		return
	}
	logger.Info("check complete",
		slog.Int("total", report.Total),
		slog.Int("failed", report.Failed),
	)
	c.JSON(http.StatusOK, report)
}

// HandleSaveSnapshot handles POST /v1/resolve/universes/:id/snapshot.
func (h *Handlers) HandleSaveSnapshot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSaveSnapshot")

	var req SaveSnapshotRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "invalid request body: " + err.Error(),
				Code:  "INVALID_REQUEST",
			})
			return
		}
	}

	meta, err := h.svc.SaveSnapshot(c.Request.Context(), c.Param("id"), req.Label)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, meta)
}

// HandleListSnapshots handles GET /v1/resolve/snapshots.
//
// Query Parameters:
//
//	name: Only list snapshots of this document name (optional)
//	limit: Maximum results, default 100 (optional)
func (h *Handlers) HandleListSnapshots(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListSnapshots")

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	snaps, err := h.svc.ListSnapshots(c.Request.Context(), c.Query("name"), limit)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	if snaps == nil {
		snaps = []*snapshot.Metadata{}
	}
	c.JSON(http.StatusOK, ListSnapshotsResponse{Snapshots: snaps})
}

// HandleLoadSnapshot handles POST /v1/resolve/snapshots/:id/load.
func (h *Handlers) HandleLoadSnapshot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleLoadSnapshot")

	u, meta, err := h.svc.LoadSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, LoadSnapshotResponse{Universe: u.Info(), Metadata: meta})
}

// HandleDeleteSnapshot handles DELETE /v1/resolve/snapshots/:id.
func (h *Handlers) HandleDeleteSnapshot(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDeleteSnapshot")

	if err := h.svc.DeleteSnapshot(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// HandleHealth handles GET /v1/resolve/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Universes: len(h.svc.ListUniverses()),
		Snapshots: h.svc.SnapshotsEnabled(),
	})
}
