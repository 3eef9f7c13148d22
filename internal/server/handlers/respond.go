// internal/server/handlers/respond.go

package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"rendezvous/internal/domain/errs"
	"rendezvous/internal/domain/geo"
)

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	response := map[string]string{"error": message}

	if err != nil && code >= 500 {
		log.Printf("HTTP %d %s: %v", code, message, err)
	}

	jsonResponse, _ := json.Marshal(response)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(jsonResponse)
}

// respondWithFailure renders a service error, mapping domain error kinds to
// client statuses and anything else to 500
func respondWithFailure(w http.ResponseWriter, err error) {
	e, ok := errs.As(err)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	code := http.StatusInternalServerError
	switch e.Kind {
	case errs.KindNotFound:
		code = http.StatusNotFound
	case errs.KindNotAllowed:
		code = http.StatusForbidden
	case errs.KindBadValues:
		code = http.StatusBadRequest
	}

	response := map[string]string{
		"error": describe(e),
		"code":  string(e.Code),
	}
	respondWithJSON(w, code, response)
}

// describe turns a domain error into a sentence for API clients
func describe(e *errs.Error) string {
	switch e.Code {
	case errs.CodeRequestNotFound:
		return fmt.Sprintf("Meeting request %s does not exist", e.ID)
	case errs.CodeMeetingNotFound:
		return fmt.Sprintf("%s is not in a meeting", e.User)
	case errs.CodeSessionNotFound:
		if e.ID == "" {
			return fmt.Sprintf("%s is not collaborating on anything", e.User)
		}
		return fmt.Sprintf("Collaboration %s does not exist", e.ID)
	case errs.CodePieceNotFound:
		return fmt.Sprintf("Piece %s does not exist", e.ID)
	case errs.CodePostNotFound:
		return fmt.Sprintf("Post %s does not exist", e.ID)
	case errs.CodeReactionNotFound:
		return fmt.Sprintf("%s has not reacted to %s", e.User, e.ID)
	case errs.CodeAlreadyRequesting:
		return fmt.Sprintf("%s already has a pending meeting request", e.User)
	case errs.CodeAlreadyMeeting:
		return fmt.Sprintf("%s is already in a meeting", e.User)
	case errs.CodeAlreadyContributed:
		return fmt.Sprintf("%s already contributed to collaboration %s", e.User, e.ID)
	case errs.CodeNotAMember:
		return fmt.Sprintf("%s is not part of collaboration %s", e.User, e.ID)
	case errs.CodeNotComplete:
		return fmt.Sprintf("Collaboration %s is still waiting for contributions", e.ID)
	case errs.CodeNotAuthor:
		return fmt.Sprintf("%s is not the author of piece %s", e.User, e.ID)
	case errs.CodePieceAttached:
		return fmt.Sprintf("Piece %s already belongs to a post", e.ID)
	case errs.CodePieceInSession:
		return fmt.Sprintf("Piece %s is still part of an open collaboration", e.ID)
	}

	if e.Detail != "" {
		return strings.ToUpper(e.Detail[:1]) + e.Detail[1:]
	}
	return e.Error()
}

// decodeJSON reads the request body into v
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.BadValues(errs.CodeInvalidInput, "invalid request body: %v", err)
	}
	return nil
}

// parseLocationQuery reads an optional lat/lng pair from the query string
func parseLocationQuery(r *http.Request) (*geo.Location, error) {
	latStr := r.URL.Query().Get("lat")
	lngStr := r.URL.Query().Get("lng")

	if latStr == "" && lngStr == "" {
		return nil, nil
	}
	if latStr == "" || lngStr == "" {
		return nil, errs.BadValues(errs.CodeInvalidLocation, "both lat and lng are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, errs.BadValues(errs.CodeInvalidLocation, "invalid latitude %q", latStr)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, errs.BadValues(errs.CodeInvalidLocation, "invalid longitude %q", lngStr)
	}

	location := geo.Location{Lat: lat, Lng: lng}
	if err := location.Validate(); err != nil {
		return nil, err
	}
	return &location, nil
}

// parseLimit reads the optional limit query parameter; 0 means the default
func parseLimit(r *http.Request) (int, error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		return 0, errs.BadValues(errs.CodeInvalidInput, "invalid limit %q", limitStr)
	}
	return limit, nil
}
