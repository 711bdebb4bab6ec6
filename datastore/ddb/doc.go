/*
Package ddb implements the storage engine on a single DynamoDB table.

Layout:
Every item shares one table keyed by the string attributes PK and SK. Key
templates live in the registry and are expanded from the item's attributes:

	person:   PK = "person#{id}"    SK = "person"
	counter:  PK = "person-counter" SK = "person_id"

Persons carry EntityType = "person" so a scan can skip bookkeeping items, and
are decoded through the type registry.

Identifiers:
The counter item holds the next id. AllocateID adds one to it and returns the
previous value; a missing counter is created at zero on first use.

Concurrency:
Every write is conditional. Inserts require the key to be absent, updates and
deletes require the stored revision to equal the caller's expectation:

	UpdateExpression:    SET #name = :name, ..., #rev = #rev + :one
	ConditionExpression: attribute_exists(PK) AND #rev = :expected

A unit of work is a sequence of such requests, not a DynamoDB transaction.

Streaming:
Scan pages through the table with the same options as the other engines:

	results := e.Scan(ctx, nil,
	    storagemodels.WithPageSize(25),
	    storagemodels.WithMaxRetries(3),
	)
*/
package ddb
