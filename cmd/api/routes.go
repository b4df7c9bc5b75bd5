package main

import (
	"net/http"

	"clinic-bot/internal/httpapi"
	"clinic-bot/internal/messaging"
	"clinic-bot/internal/rbac"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	Webhook messaging.WebhookHandler
	API     httpapi.Handlers

	// AdminAuth authenticates /v1 callers and puts their identity in context.
	AdminAuth gin.HandlerFunc
	Metrics   http.Handler
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", d.API.Healthz)
	r.GET("/readyz", d.API.Readyz)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	// Provider webhook and the cron trigger keep their historical paths.
	r.POST("/whatsapp_webhook", d.Webhook.HandleInboundMessage)
	r.GET("/schedule_followups", d.API.ScheduleFollowups)

	v1 := r.Group("/v1")
	v1.Use(d.AdminAuth)
	{
		v1.GET("/me", d.API.Me)

		v1.GET("/slots",
			rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleOperator, rbac.RoleViewer),
			d.API.ListSlots)

		v1.POST("/followups/run",
			rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleOperator),
			d.API.ScheduleFollowups)
	}
}
