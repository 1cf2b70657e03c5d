package api

import (
	"net/http"

	"github.com/stacksregistry/registry-server/internal/http/response"
)

func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{"status": "healthy"}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{"version": s.version}, s.logger)
}
