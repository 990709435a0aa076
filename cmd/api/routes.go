package main

import (
	"pulsecall/internal/httpapi"
	"pulsecall/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW, webhookMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", h.Health)

	// Provider webhooks. Authenticated by body signature, not by JWT.
	hooks := r.Group("/webhooks/provider")
	hooks.Use(webhookMW)
	{
		hooks.POST("/post-call", h.PostCallWebhook)
		hooks.POST("/analytics", h.AnalyticsWebhook)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW, rbac.RequireActor())
	{
		// Outbound calls may also be triggered by a scheduler holding a service token.
		v1.POST("/calls/outbound",
			rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleSupervisor, rbac.RoleService),
			h.TriggerOutbound)

		v1.GET("/users/:user_id/calls",
			rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleSupervisor),
			h.ListUserCalls)

		esc := v1.Group("/escalations")
		esc.Use(rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleSupervisor))
		{
			esc.GET("", h.ListEscalations)
			esc.PATCH("/:id/acknowledge", h.AcknowledgeEscalation)
		}

		// Reporting is supervisor-only; admin passes via bypass.
		v1.GET("/reports/calls", rbac.RequireAnyRole(rbac.RoleSupervisor), h.CallsReport)
	}
}
