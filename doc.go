// Package clientvault manages client records whose structured metadata lives
// in a relational store and whose document/photo files live in an external
// object store.
//
// No transaction spans the two tiers, so consistency comes from ordering:
// files are uploaded to the object store first (directly by the browser,
// through short-lived presigned grants), the metadata row referencing them is
// written last, and on delete the objects are removed before the row. A
// delete that cannot remove every object leaves the row in place and reports
// the surviving keys, making the same delete call safely retryable.
//
// # Key Components
//
//   - ClientService: create/read/list/delete lifecycle and cross-store consistency
//   - UploadBroker: issues method-and-key-scoped, self-expiring upload grants
//   - MetadataRepo: interface for record persistence (PostgreSQL, SQLite)
//   - ObjectStore: interface for the blob store (S3-compatible)
//
// # Example Usage
//
//	service, err := clientvault.NewClientService(repo, store, clientvault.ServiceConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rec, err := service.Create(ctx, clientvault.NewClient{
//	    Name:       "J Doe",
//	    ExternalID: "X1",
//	    Address:    "1 Main St",
//	})
//
// See the http package for the REST API and the database package for the
// metadata backends.
package clientvault
