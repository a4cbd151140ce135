/*
Package runner implements the interactive chat loop used by the terminal transport.

It is the bridge between a person typing in a terminal (or a script feeding
JSON lines) and the workflow engine. Each input line is sanitized, turned into
a domain.Event ("/start", "/cancel", "/attach <file>" or plain text) and handed
to an EventHandler; the reply messages are written back through an IOHandler.

# Key Components

  - Runner: the read-handle-print loop for one user.
  - IOHandler: decouples how lines are read and replies written (Text, JSON).
  - Middleware: decorators around an EventHandler (sanitizing, logging, metrics),
    shared with the HTTP transport.

# Usage

	r := runner.NewRunner(engine,
		runner.WithUserID("local"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
