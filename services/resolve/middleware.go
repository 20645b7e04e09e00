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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware rejects requests above a token bucket rate.
//
// Description:
//
//	One bucket is shared by all clients. A request that finds the bucket
//	empty gets 429 with Retry-After. A limit of zero or less returns a
//	pass-through middleware.
//
// Inputs:
//
//	limit - Sustained requests per second.
//	burst - Bucket size. Values below 1 are raised to 1.
//
// Thread Safety: The returned middleware is safe for concurrent use.
func RateLimitMiddleware(limit float64, burst int) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := rate.NewLimiter(rate.Limit(limit), max(burst, 1))
	return func(c *gin.Context) {
		if !limiter.Allow() {
			requestID := getOrCreateRequestID(c)
			slog.Warn("request rate limited",
				slog.String("request_id", requestID),
				slog.String("path", c.Request.URL.Path),
			)
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "rate limit exceeded",
				Code:  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}
