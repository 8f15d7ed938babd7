package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MrWong99/woohoo/internal/challenge"
	"github.com/MrWong99/woohoo/internal/observe"
	"github.com/MrWong99/woohoo/pkg/claim"
)

const maxClaimBody = 4 << 10

// handleClaim forwards the claim for a stored attempt to the reward API.
// The stored result is reserved for the duration of the call and removed
// only after the backend accepted the claim; any failure releases it.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	log := observe.Logger(r.Context())

	var body claimBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClaimBody)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_body", Message: "Request body must be a JSON object."})
		return
	}

	res, err := s.results.Reserve(body.SessionID)
	switch {
	case errors.Is(err, errClaimInProgress):
		writeJSON(w, http.StatusConflict, errorBody{Error: "claim_in_progress", Message: "This attempt is already being claimed."})
		return
	case err != nil:
		writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown_session", Message: "This attempt has expired or was already claimed."})
		return
	}

	_, claimer := s.snapshot()
	rec, err := claimer.Claim(r.Context(), res, body.Name, body.PhoneNumber)
	if err != nil {
		s.results.Release(body.SessionID)
	}
	switch {
	case err == nil:
		s.results.Delete(body.SessionID)
		writeJSON(w, http.StatusOK, rec)
	case errors.Is(err, claim.ErrInvalidPhone), errors.Is(err, claim.ErrInvalidClaim):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid_claim", Message: validationMessage(err)})
	case errors.Is(err, challenge.ErrNoSubmitter):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "claims_disabled", Message: "Rewards cannot be claimed right now."})
	default:
		log.Warn("web: claim submission failed", "session_id", res.SessionID, "err", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "submission_failed", Message: claim.UserMessage(err)})
	}
}

// validationMessage flattens a joined validation error into one line.
func validationMessage(err error) string {
	if errors.Is(err, claim.ErrInvalidPhone) {
		return claim.UserMessage(err)
	}
	msg := strings.ReplaceAll(err.Error(), "claim: ", "")
	return strings.ReplaceAll(msg, "\n", "; ")
}
