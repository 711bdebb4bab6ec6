/*
Package personstore stores Person records behind one backend-agnostic API, with
interchangeable in-memory, PostgreSQL and DynamoDB single-table backends.

Every operation runs as a unit of work inside a transaction runner. Updates and
deletes are compare-and-swap on the person's revision, so a stale writer gets a
ConcurrentModification error instead of overwriting newer state. Reads go through
an optional cache-aside layer (Redis or in-process), and committed state changes
are published as events (log, AMQP or Redis pub/sub).

Basic Usage:

	cfg, err := config.Load("personstore.yaml")
	if err != nil {
		return err
	}
	app, err := personstore.Open(ctx, cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer app.Close()

	p, err := app.People.Register(ctx, "Niels Henrik Abel", domain.MustDate("1802-08-05"), nil, nil)
	if err != nil {
		return err
	}
	p, err = app.People.RecordDeath(ctx, p.ID, p.Revision, domain.MustDate("1829-04-06"))

Failures are semantic error types from the errors package (NotFound, Validation,
ConcurrentModification, BackendUnavailable) and can be tested with its Is helpers.
*/
package personstore
