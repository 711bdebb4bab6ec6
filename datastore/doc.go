/*
Package datastore defines the backend-agnostic persistence contract of PersonStore.

Engine is the capability set every adapter implements:

	type Engine interface {
	    AllocateID(ctx context.Context) (int64, error)
	    Insert(ctx context.Context, p domain.Person) error
	    GetByID(ctx context.Context, id int64) (*domain.Person, error)
	    UpdateWithRevision(ctx context.Context, id, expected int64, mutate Mutator) (*domain.Person, error)
	    DeleteWithRevision(ctx context.Context, id, expected int64) error
	    Scan(ctx context.Context, match Predicate, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[domain.Person]
	}

Use-cases never hold an Engine directly. They hand a UnitOfWork to the backend's
Runner, which binds an Engine to the transaction and decides commit or rollback:

	err := runner.RunInTransaction(ctx, func(ctx context.Context, e datastore.Engine) error {
	    _, err := e.UpdateWithRevision(ctx, 3, 0, rename("Niels"))
	    return err
	})

Implementations:
  - memory: exclusive lock over a map, staged writes applied on commit
  - postgres: native SQL transaction
  - ddb: DynamoDB single-table design, each operation a conditional write

The compare-and-swap on the revision attribute gives all three the same
optimistic-concurrency contract.
*/
package datastore
