package api

import (
	"net/http"
	"time"

	"github.com/nerrad567/beacon-station/internal/station"
)

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	StationID           string               `json:"station_id"`
	Version             string               `json:"version"`
	UptimeSeconds       int64                `json:"uptime_seconds"`
	ProvisioningPending bool                 `json:"provisioning_pending"`
	Cycles              uint64               `json:"cycles"`
	RoomID              string               `json:"room_id"`
	DirectorySize       int                  `json:"directory_size"`
	LastCycle           *station.CycleReport `json:"last_cycle"`
}

// handleStatus reports the station identity and the latest cycle.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		StationID:           s.stationID,
		Version:             s.version,
		UptimeSeconds:       int64(time.Since(s.startTime).Seconds()),
		ProvisioningPending: s.trigger.Pending(),
		Cycles:              s.board.Cycles(),
	}
	if last, ok := s.board.Last(); ok {
		resp.LastCycle = &last
		resp.RoomID = last.RoomID
		resp.DirectorySize = last.DirectorySize
	}

	respond(w, http.StatusOK, resp)
}

// handleProvisioningReset raises the provisioning trigger. The loop clears
// the network credentials and restarts at its next tick, so the response is
// 202 Accepted.
func (s *Server) handleProvisioningReset(w http.ResponseWriter, r *http.Request) {
	alreadyPending := s.trigger.Pending()
	s.trigger.Raise()

	s.logger.Warn("provisioning reset requested via API",
		"subject", subject(r),
		"remote_addr", r.RemoteAddr,
		"request_id", requestID(r),
	)

	respond(w, http.StatusAccepted, map[string]any{
		"status":          "accepted",
		"already_pending": alreadyPending,
	})
}
