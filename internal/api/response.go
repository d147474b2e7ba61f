package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"token-launchpad/internal/apperrors"
)

// maxBodyBytes bounds command request bodies.
const maxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error reply.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the code and context of a rejected request.
type ErrorDetail struct {
	Code      apperrors.Code    `json:"code"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to its HTTP status. Errors without a code are
// logged and reported as internal.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	detail := ErrorDetail{RequestID: RequestIDFromContext(r.Context())}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		detail.Code = appErr.Code
		detail.Message = appErr.Message
		detail.Metadata = appErr.Metadata
	} else {
		s.logger.Error("request failed",
			zap.String("request_id", detail.RequestID),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		detail.Code = apperrors.CodeUnknown
		detail.Message = "internal error"
	}

	writeJSON(w, detail.Code.HTTPStatus(), ErrorBody{Error: detail})
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst unchanged.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.Wrap(apperrors.CodeInvalidInput, "malformed request body", err)
	}
	return nil
}
