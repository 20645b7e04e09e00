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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all resolution routes with the router.
//
// Description:
//
//	Registers all /v1/resolve/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Endpoints:
//
//	POST   /v1/resolve/universes              - Load a fixture document
//	GET    /v1/resolve/universes              - List loaded universes
//	GET    /v1/resolve/universes/:id          - Describe a universe
//	DELETE /v1/resolve/universes/:id          - Unload a universe
//	POST   /v1/resolve/universes/:id/resolve  - Resolve one call
//	POST   /v1/resolve/universes/:id/batch    - Resolve many calls
//	POST   /v1/resolve/universes/:id/check    - Check declared expectations
//	POST   /v1/resolve/universes/:id/snapshot - Save the document
//	GET    /v1/resolve/snapshots              - List snapshots
//	POST   /v1/resolve/snapshots/:id/load     - Load a snapshot as a universe
//	DELETE /v1/resolve/snapshots/:id          - Delete a snapshot
//	GET    /v1/resolve/health                 - Health check
//
// Example:
//
//	svc := resolve.NewService(cfg.Resolver)
//	v1 := router.Group("/v1")
//	resolve.RegisterRoutes(v1, resolve.NewHandlers(svc))
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	resolve := rg.Group("/resolve")
	{
		universes := resolve.Group("/universes")
		{
			universes.POST("", handlers.HandleLoadUniverse)
			universes.GET("", handlers.HandleListUniverses)
			universes.GET("/:id", handlers.HandleGetUniverse)
			universes.DELETE("/:id", handlers.HandleDeleteUniverse)
			universes.POST("/:id/resolve", handlers.HandleResolve)
			universes.POST("/:id/batch", handlers.HandleBatch)
			universes.POST("/:id/check", handlers.HandleCheck)
			universes.POST("/:id/snapshot", handlers.HandleSaveSnapshot)
		}

		snapshots := resolve.Group("/snapshots")
		{
			snapshots.GET("", handlers.HandleListSnapshots)
			snapshots.POST("/:id/load", handlers.HandleLoadSnapshot)
			snapshots.DELETE("/:id", handlers.HandleDeleteSnapshot)
		}

		resolve.GET("/health", handlers.HandleHealth)
	}
}
