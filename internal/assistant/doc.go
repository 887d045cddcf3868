// Package assistant generates automated replies through the Gemini API.
//
// The persona and sampling parameters are compile-time constants: the brand
// voice must not drift between deployments or between calls. Callers own the
// fallback path; any failure here is an ordinary error, never a reply.
package assistant
