/*
Package youvisa is a document intake assistant for visa applications.

An applicant talks to YOUVISA through a messaging transport. The workflow
engine registers the applicant, opens a task for the chosen destination,
classifies every uploaded file against the documents that destination
requires and marks the task READY once nothing is missing. An operator
completes READY tasks through the reporting API.

# Layout

  - pkg/domain: entities, sentinel errors and lifecycle hooks.
  - pkg/ports: the TaskStore, SessionStore, Classifier, Assistant and DocumentStorage contracts.
  - pkg/workflow: the conversation engine.
  - pkg/completion: the completion check (missing = required - uploaded).
  - pkg/session: per-user serialization of conversation turns.
  - pkg/adapters: sqlite, postgres, memory, redis, file, openai and http.
  - pkg/runner: the terminal loop and transport middleware.
  - cmd/youvisa: the serve, chat, country, report and version commands.

# Usage

	store := memory.NewTaskStore()
	sessions := session.NewManager(memory.NewStore())
	engine := workflow.New(store, sessions, classifier, assistant, file.NewDocuments("uploads"))

	reply, err := engine.Handle(ctx, domain.Event{UserID: "42", Kind: domain.EventStart})
	if err != nil {
		log.Fatal(err)
	}
	for _, msg := range reply.Messages {
		fmt.Println(msg)
	}
*/
package youvisa
