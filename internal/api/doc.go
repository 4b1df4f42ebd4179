// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It adapts HTTP to the review scheduling service.
package api
