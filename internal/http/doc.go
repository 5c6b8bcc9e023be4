// Package http provides HTTP handlers and middleware for the coordination API.
//
// The router exposes the following endpoints:
//   - POST /sessions: drafts a new session. Body: {"facility_url","purpose",
//     "response_deadline","presentation_date","slots":[{"date","label"}]}.
//     Response: {"session_id","status","invite_tokens"} with one invite token
//     per evaluator, handed to the outbound form mailer.
//   - GET /sessions: lists overview rows for every session, most recently
//     updated first.
//   - GET /sessions/{id}/status: returns the full status board view including
//     the answer matrix exchanged via the `sessionStatusDTO` payload defined
//     in session_handler.go.
//   - PATCH /sessions/{id}: partially updates purpose and date fields; a
//     single malformed value rejects the whole update.
//   - PUT /sessions/{id}/evaluators/{evaluatorID}/responses: coordinator side
//     edit of one evaluator's note and answers.
//   - GET /sessions/{id}/slots/{slotID}/everyone-ok: reports unanimous
//     approval for one candidate slot without mutating anything.
//   - POST /sessions/{id}/proposal, DELETE /sessions/{id}/proposal: locks the
//     session on a unanimously approved slot, or withdraws the proposal.
//   - GET /sessions/{id}/summary: returns the confirmation digest once the
//     facility has replied.
//   - POST /hooks/evaluator-response: receives evaluator answers from the
//     external form, resolved by invite token.
//   - POST /hooks/facility-response: receives the facility's final reply for
//     the proposed slot.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
