package httpx

import "net/http"

// Outcome helpers for the problem responses this API returns. Handlers
// translate their domain errors (authz denials, missing records, conflicts)
// into one of these so titles and status codes stay uniform across modules.

// Unauthorized reports a request without a resolvable principal.
func Unauthorized(w http.ResponseWriter, detail string) {
	Problem(w, http.StatusUnauthorized, "Unauthorized", detail)
}

// Forbidden reports an authorization denial.
func Forbidden(w http.ResponseWriter, detail string) {
	Problem(w, http.StatusForbidden, "Forbidden", detail)
}

// NotFound reports a missing record.
func NotFound(w http.ResponseWriter, detail string) {
	Problem(w, http.StatusNotFound, "Not Found", detail)
}

// Conflict reports a state conflict, such as a duplicate email or a replayed
// idempotency key.
func Conflict(w http.ResponseWriter, detail string) {
	Problem(w, http.StatusConflict, "Conflict", detail)
}

// Unprocessable reports a request that parsed but failed validation.
func Unprocessable(w http.ResponseWriter, detail string) {
	Problem(w, http.StatusUnprocessableEntity, "Validation Failed", detail)
}

// Internal reports an unexpected failure. The detail is deliberately empty;
// the cause belongs in the server log, not the response.
func Internal(w http.ResponseWriter) {
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
