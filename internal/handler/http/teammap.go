package http

import (
	"net/http"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/teammap"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/response"
)

type TeamMapHandler interface {
	Get(w http.ResponseWriter, r *http.Request)
	Export(w http.ResponseWriter, r *http.Request)
}

type teamMapHandlerImpl struct {
	teamMapService teammap.TeamMapService
}

func NewTeamMapHandler(teamMapService teammap.TeamMapService) TeamMapHandler {
	return &teamMapHandlerImpl{
		teamMapService: teamMapService,
	}
}

// Get implements TeamMapHandler.
func (h *teamMapHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	req := teammap.TeamMapRequest{Date: r.URL.Query().Get("date")}

	result, err := h.teamMapService.GetTeamMap(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Export implements TeamMapHandler.
func (h *teamMapHandlerImpl) Export(w http.ResponseWriter, r *http.Request) {
	req := teammap.TeamMapRequest{Date: r.URL.Query().Get("date")}

	file, err := h.teamMapService.Export(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.File(w, file.Filename, file.ContentType, file.Content)
}
