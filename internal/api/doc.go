// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It adapts review clients and the content service
// to the scheduling and statistics services.
package api
