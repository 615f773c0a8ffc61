/*
Package pergola is a workflow graph interpreter for declarative uncertainty
quantification studies. A single XML document names probability
distributions, samplers, computational models, data containers and output
sinks, then binds them into steps executed in a declared sequence.

It separates the static registry (Logic) from accumulated sample data
(DataObjects) and side-effects (models, out-streams). This Hexagonal
Architecture keeps the core interpreter decoupled from storage and
presentation adapters, so it embeds equally well in a CLI, a test harness or
a larger orchestration service.

# Key Features

  - Declarative Workflows: the document declares what to run; the engine
    derives execution from the Sequence alone.
  - Validated Up Front: every by-name reference, step shape and output
    coverage rule is checked before anything executes.
  - Bounded Parallelism: sample evaluations within a step run under a worker
    pool sized by batchSize; steps themselves are strictly sequential.
  - Restart Caching: previously computed samples within a tolerance are
    reused instead of re-evaluated, with pluggable backends (memory, Redis).
  - Reproducible Sampling: fixed seeds give identical sample streams, with
    per-step re-seeding overrides.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/pergola"
	)

	func main() {
		wf, err := pergola.New("./study.xml")
		if err != nil {
			log.Fatal(err)
		}

		res, err := wf.Run(context.Background())
		if err != nil {
			log.Fatalf("run halted: %v", err)
		}

		passed, failed, cached := res.Totals()
		log.Printf("passed=%d failed=%d cached=%d", passed, failed, cached)
	}
*/
package pergola
