package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/postpilothq/postpilot/internal/api/stream"
	v1 "github.com/postpilothq/postpilot/internal/api/v1"
	"github.com/postpilothq/postpilot/internal/api/ws"
	"github.com/postpilothq/postpilot/internal/chat"
	"github.com/postpilothq/postpilot/internal/credentials"
	"github.com/postpilothq/postpilot/internal/pipeline"
	"github.com/postpilothq/postpilot/internal/store/postgres"
)

func registerAPIRoutes(api huma.API, runner *pipeline.Orchestrator, chats *chat.Service, creds *credentials.Manager, store *postgres.Store) {
	v1.RegisterPublishRoutes(api, runner, store.Businesses())
	v1.RegisterConversationRoutes(api, chats)
	v1.RegisterBusinessRoutes(api, store.Businesses())
	v1.RegisterCredentialRoutes(api, creds)
}

func registerStreamRoutes(r chi.Router, h *stream.Handler) {
	r.Get("/conversations/{id}", h.Replay)
	r.Post("/conversations/{id}/chat", h.Chat)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/conversations/{id}", hub.ServeConversation)
}
