package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pergola/internal/compiler"
	"github.com/aretw0/pergola/pkg/domain"
)

const mermaidFixture = `
<Simulation>
  <RunInfo>
    <WorkingDir>.</WorkingDir>
    <Sequence>sample, dump</Sequence>
  </RunInfo>
  <Distributions>
    <Uniform name="xDist"><lowerBound>0</lowerBound><upperBound>1</upperBound></Uniform>
  </Distributions>
  <Samplers>
    <MonteCarlo name="mc">
      <samplerInit><limit>4</limit></samplerInit>
      <variable name="x"><distribution>xDist</distribution></variable>
    </MonteCarlo>
  </Samplers>
  <Models>
    <ExternalModel name="square">
      <variables>x, ans</variables>
      <expression target="ans">x * x</expression>
    </ExternalModel>
  </Models>
  <DataObjects>
    <PointSet name="solution-set"><Input>x</Input><Output>ans</Output></PointSet>
  </DataObjects>
  <OutStreams>
    <Print name="dumpCSV"><type>csv</type><source>solution-set</source></Print>
  </OutStreams>
  <Steps>
    <MultiRun name="sample">
      <Sampler class="Samplers">mc</Sampler>
      <Model class="Models">square</Model>
      <Output class="DataObjects">solution-set</Output>
    </MultiRun>
    <IOStep name="dump">
      <Input class="DataObjects">solution-set</Input>
      <Output class="OutStreams">dumpCSV</Output>
    </IOStep>
  </Steps>
</Simulation>
`

func fixtureDoc(t *testing.T) *domain.Document {
	t.Helper()
	doc, err := compiler.NewParser().Parse([]byte(mermaidFixture))
	require.NoError(t, err)
	return doc
}

func TestGenerateMermaid_DeclaresNodesWithShapes(t *testing.T) {
	out := GenerateMermaid(fixtureDoc(t))

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, `step_sample["sample<br/>MultiRun"]`)
	assert.Contains(t, out, `step_dump["dump<br/>IOStep"]`)
	assert.Contains(t, out, `smp_mc[/"mc"/]`)
	assert.Contains(t, out, `mdl_square[["square"]]`)
	assert.Contains(t, out, `do_solution_set[("solution-set")]`)
	assert.Contains(t, out, `os_dumpCSV>"dumpCSV"]`)
}

func TestGenerateMermaid_SequenceAndDataEdges(t *testing.T) {
	out := GenerateMermaid(fixtureDoc(t))

	// execution order is a solid arrow, entity attachment is dotted
	assert.Contains(t, out, "step_sample --> step_dump")
	assert.Contains(t, out, "smp_mc -.-> step_sample")
	assert.Contains(t, out, "mdl_square -.-> step_sample")
	assert.Contains(t, out, "step_sample -.-> do_solution_set")
	assert.Contains(t, out, "do_solution_set -.-> step_dump")
	assert.Contains(t, out, "step_dump -.-> os_dumpCSV")
}

func TestGenerateMermaid_DeclaresSharedNodesOnce(t *testing.T) {
	out := GenerateMermaid(fixtureDoc(t))
	assert.Equal(t, 1, strings.Count(out, `do_solution_set[("solution-set")]`))
}

func TestSanitizeMermaidID(t *testing.T) {
	assert.Equal(t, "a_b_c_d_e", sanitizeMermaidID("a.b-c/d e"))
}
