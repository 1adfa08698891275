// Package executor runs GraphQL operations against a schema.Schema whose
// fields are marked sync or async.
//
// Sync fields are resolved on the spot through Runtime.ResolveSync and their
// subtrees are completed right away. Async fields are queued; once nothing
// sync is left, every queued field goes to the Runtime in a single
// BatchResolveAsync call, and async fields found while completing that batch
// make up the next one. An operation whose deepest chain crosses d async
// fields therefore costs d batches, however wide it is. The gateway marks
// every root field async and reads everything below from the delegated
// result, so a query is one batch.
//
// Mutation root fields are the exception: each one is drained, batches and
// all, before the next one starts.
//
// Values are completed into the response in place. A null in a non-null
// position replaces the nearest nullable enclosing value, never crossing a
// root field, and async fields queued below a replaced value are dropped
// before they reach the Runtime. Errors carry the response path they
// happened at; errors implementing ExtensionsError keep their extensions.
//
// FieldRuntime is a Runtime over plain Go maps for tests and embedded
// schemas.
package executor
