package pergola_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aretw0/pergola"
	"github.com/aretw0/pergola/internal/adapters/memory"
)

// ExampleNew_memory demonstrates running a workflow defined entirely in
// memory. This is useful for testing, embedding, or when the document does
// not live on the filesystem.
func ExampleNew_memory() {
	dir, err := os.MkdirTemp("", "pergola-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	// 1. Define the workflow document. A Grid sampler walks every
	// combination of the declared points, so the run is deterministic.
	raw := fmt.Sprintf(`
<Simulation>
  <RunInfo>
    <WorkingDir>%s</WorkingDir>
    <Sequence>sample</Sequence>
    <batchSize>2</batchSize>
  </RunInfo>
  <Samplers>
    <Grid name="corners">
      <variable name="x"><grid>0, 1</grid></variable>
      <variable name="y"><grid>0, 1</grid></variable>
    </Grid>
  </Samplers>
  <Models>
    <ExternalModel name="sum">
      <variables>x, y, ans</variables>
      <expression target="ans">x + y</expression>
    </ExternalModel>
  </Models>
  <DataObjects>
    <PointSet name="solutions"><Input>x, y</Input><Output>ans</Output></PointSet>
  </DataObjects>
  <Steps>
    <MultiRun name="sample">
      <Sampler class="Samplers">corners</Sampler>
      <Model class="Models">sum</Model>
      <Output class="DataObjects">solutions</Output>
    </MultiRun>
  </Steps>
</Simulation>
`, dir)

	// 2. Load and validate through a memory loader. The path is empty
	// because the loader supplies the document.
	wf, err := pergola.New("", pergola.WithLoader(memory.NewLoaderString(raw)))
	if err != nil {
		log.Fatal(err)
	}

	// 3. Execute the sequence.
	res, err := wf.Run(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	passed, failed, _ := res.Totals()
	solutions, _ := wf.DataObject("solutions")

	fmt.Printf("steps: %v\n", wf.Sequence())
	fmt.Printf("passed: %d failed: %d\n", passed, failed)
	fmt.Printf("rows: %d\n", solutions.Len())
	// Output:
	// steps: [sample]
	// passed: 4 failed: 0
	// rows: 4
}
