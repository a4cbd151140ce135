/*
Package domain contains the core models of the visa-document-intake workflow.

It defines the persisted entities (User, Country, Task, Document), the label set
used to describe document requirements, and the per-user Session the workflow
engine keeps between events. This package is kept pure and free of I/O, following
Hexagonal Architecture principles.

# Key Entities

  - User: an applicant identified by the transport's external id.
  - Country: a destination and the document labels it requires.
  - Task: one visa application of one user for one country.
  - Document: an uploaded file classified under one label.
  - Session: the ephemeral conversation state, always rebuildable from the store.
*/
package domain
