/*
Package workflow implements the visa-document-intake conversation.

An Engine receives transport events one at a time per user and moves the user
through four steps: name, national id, destination country and document
upload. Persistent facts live in a ports.TaskStore; the per-user Session kept
by the session manager is only a cache of the current step and can always be
rebuilt from the store, which is what happens when an upload arrives without one.

# Usage

	engine := workflow.New(store, session.NewManager(sessions), classifier, assistant, docs,
		workflow.WithLogger(logger),
		workflow.WithActiveTaskPolicy(workflow.PolicyReuse),
	)

	reply, err := engine.Handle(ctx, domain.Event{UserID: "42", Kind: domain.EventStart})
*/
package workflow
