/*
Package domain contains the core domain models for the Pergola interpreter.

It defines the entities a workflow document declares (Distributions, Samplers,
Models, DataObjects, OutStreams, Files, VariableGroups and Steps) together
with the error taxonomy, lifecycle events and run results. This package is kept
pure and free of external dependencies like I/O or persistence, following
Hexagonal Architecture principles.

# Key Entities

  - Document: the parsed, name-indexed registry of all declared entities.
  - Step: one orchestrated unit of work binding a Model, optionally a Sampler,
    to Input/Output entity references.
  - DataObject: the only entity that accumulates mutable content (rows of
    sampled input/output pairs) across steps.
  - RunResult: per-step counts of passed, failed and cached sample evaluations.
*/
package domain
