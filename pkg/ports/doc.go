/*
Package ports defines the driven ports (interfaces) of the intake workflow.

These interfaces decouple the workflow engine from external implementations,
allowing it to run against various storage backends and providers.

# Key Interfaces

  - TaskStore: persistence of users, countries, tasks and documents.
  - SessionStore: persistence of the ephemeral per-user Session.
  - DistributedLocker: serialises events of one user across replicas.
  - Classifier: maps an uploaded file to one of the allowed labels.
  - Assistant: free-form chat provider.
  - DocumentStorage: keeps the uploaded bytes and hands out locators.
*/
package ports
