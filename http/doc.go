// Package http provides the REST API for the client record service.
//
// # Endpoints
//
//	POST   /api/get-upload-url    issue a presigned upload grant
//	POST   /api/get-download-url  issue a presigned download grant
//	POST   /api/clients           create a client record
//	GET    /api/clients           list client records (limit/cursor pagination)
//	GET    /api/clients/{id}      fetch one client record
//	DELETE /api/clients/{id}      delete a record and its objects
//	POST   /api/clients/{id}/files  append a file reference
//	GET    /health                liveness probe
//
// # Failure mapping
//
//	invalid input        400
//	unknown id           404
//	duplicate external id 409
//	partial delete       502 (failed keys listed; retry the same call)
//	store timeout        503
//
// A partial delete leaves the metadata row in place: the 502 body
// names the object keys that survived so the caller can retry the delete.
//
// # Usage
//
//	handler := http.NewHandler(&http.HandlerConfig{}, service, broker)
//	http.ListenAndServe(":8080", handler.Router())
package http
