/*
dto.go - HTTP-boundary data structures

PURPOSE:
  The few shapes the API defines itself. Operation requests and
  responses are owned by the tools package and pass through unchanged;
  only wrappers with no domain meaning live here.
*/
package api

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// OperationDTO describes one registered operation.
type OperationDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HealthDTO is the health probe response.
type HealthDTO struct {
	Status string `json:"status"`
}
