package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pergola/pkg/domain"
)

const fixture = `
<Simulation>
  <RunInfo>
    <WorkingDir>.</WorkingDir>
    <Sequence>sample, stats, dump</Sequence>
    <batchSize>3</batchSize>
  </RunInfo>
  <VariableGroups>
    <Group name="coords">x, y</Group>
  </VariableGroups>
  <Distributions>
    <Uniform name="xDist">
      <lowerBound>0</lowerBound>
      <upperBound>1</upperBound>
    </Uniform>
    <Normal name="yDist">
      <mean>0</mean>
      <sigma>2</sigma>
    </Normal>
  </Distributions>
  <Samplers>
    <MonteCarlo name="mc">
      <samplerInit>
        <limit>10</limit>
        <initialSeed>42</initialSeed>
      </samplerInit>
      <variable name="x"><distribution>xDist</distribution></variable>
      <variable name="y"><distribution>yDist</distribution></variable>
    </MonteCarlo>
  </Samplers>
  <Models>
    <ExternalModel name="sum">
      <variables>coords, ans</variables>
      <expression target="ans">x + y</expression>
    </ExternalModel>
    <PostProcessor name="stats" subType="BasicStatistics">
      <variables>ans</variables>
    </PostProcessor>
  </Models>
  <DataObjects>
    <PointSet name="solutions">
      <Input>coords</Input>
      <Output>ans</Output>
    </PointSet>
    <PointSet name="summary">
      <Output>mean_ans, sigma_ans, min_ans, max_ans</Output>
    </PointSet>
  </DataObjects>
  <OutStreams>
    <Print name="solutionsDump">
      <type>csv</type>
      <source>solutions</source>
    </Print>
  </OutStreams>
  <Steps>
    <MultiRun name="sample">
      <Sampler class="Samplers" type="MonteCarlo">mc</Sampler>
      <Model class="Models" type="ExternalModel">sum</Model>
      <Output class="DataObjects" type="PointSet">solutions</Output>
    </MultiRun>
    <PostProcess name="stats">
      <Input class="DataObjects" type="PointSet">solutions</Input>
      <Model class="Models" type="PostProcessor">stats</Model>
      <Output class="DataObjects" type="PointSet">summary</Output>
    </PostProcess>
    <IOStep name="dump">
      <Input class="DataObjects" type="PointSet">solutions</Input>
      <Output class="OutStreams" type="Print">solutionsDump</Output>
    </IOStep>
  </Steps>
  <TestInfo>
    <author>qa</author>
  </TestInfo>
</Simulation>
`

func TestParse_Fixture(t *testing.T) {
	doc, err := NewParser().Parse([]byte(fixture))
	require.NoError(t, err)

	assert.Equal(t, []string{"sample", "stats", "dump"}, doc.RunInfo.Sequence)
	assert.Equal(t, 3, doc.RunInfo.BatchSize)

	require.Contains(t, doc.Distributions, "xDist")
	assert.Equal(t, domain.DistUniform, doc.Distributions["xDist"].Kind)
	assert.Equal(t, 1.0, doc.Distributions["xDist"].UpperBound)

	mc := doc.Samplers["mc"]
	require.NotNil(t, mc)
	assert.Equal(t, 10, mc.Init.Limit)
	assert.Equal(t, int64(42), mc.Init.Seed)
	require.Len(t, mc.Variables, 2)
	assert.Equal(t, "xDist", mc.Variables[0].Distribution)

	sum := doc.Models["sum"]
	require.NotNil(t, sum)
	assert.Equal(t, domain.ModelExternal, sum.Kind)
	assert.Equal(t, "x + y", sum.Expressions["ans"])
	// variable group expanded in model variables
	assert.Equal(t, []string{"x", "y", "ans"}, sum.Variables)

	solutions := doc.DataObjects["solutions"]
	require.NotNil(t, solutions)
	assert.Equal(t, []string{"x", "y"}, solutions.Inputs)
	assert.Equal(t, []string{"ans"}, solutions.Outputs)

	assert.Equal(t, []string{"sample", "stats", "dump"}, doc.StepOrder)
	sample := doc.Steps["sample"]
	require.NotNil(t, sample)
	assert.Equal(t, domain.StepMultiRun, sample.Kind)
	require.NotNil(t, sample.Sampler)
	assert.Equal(t, "mc", sample.Sampler.Name)
}

func TestParse_Idempotent(t *testing.T) {
	p := NewParser()
	first, err := p.Parse([]byte(fixture))
	require.NoError(t, err)
	second, err := p.Parse([]byte(fixture))
	require.NoError(t, err)

	assert.Equal(t, first.RunInfo, second.RunInfo)
	assert.Equal(t, first.StepOrder, second.StepOrder)
	assert.Equal(t, len(first.Distributions), len(second.Distributions))

	// Documents are independent: mutating one leaves the other untouched.
	second.Samplers["mc"].Init.Limit = 99
	assert.Equal(t, 10, first.Samplers["mc"].Init.Limit)
}

func TestParse_DuplicateName(t *testing.T) {
	const dup = `
<Simulation>
  <RunInfo><Sequence></Sequence></RunInfo>
  <Distributions>
    <Uniform name="d"><lowerBound>0</lowerBound><upperBound>1</upperBound></Uniform>
    <Uniform name="d"><lowerBound>0</lowerBound><upperBound>2</upperBound></Uniform>
  </Distributions>
</Simulation>
`
	_, err := NewParser().Parse([]byte(dup))
	require.Error(t, err)
	var dne *domain.DuplicateNameError
	require.ErrorAs(t, err, &dne)
	assert.Equal(t, domain.CollectionDistributions, dne.Collection)
	assert.Equal(t, "d", dne.Name)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestParse_UnknownCollection(t *testing.T) {
	const unknown = `
<Simulation>
  <RunInfo><Sequence></Sequence></RunInfo>
  <Wibble/>
</Simulation>
`
	_, err := NewParser().Parse([]byte(unknown))
	var uce *domain.UnknownCollectionError
	require.ErrorAs(t, err, &uce)
	assert.Equal(t, "Wibble", uce.Tag)

	// The same tag parses once declared ignorable.
	_, err = NewParser(WithIgnorableTags("Wibble")).Parse([]byte(unknown))
	assert.NoError(t, err)
}

func TestParse_BadBatchSize(t *testing.T) {
	const bad = `
<Simulation>
  <RunInfo>
    <Sequence></Sequence>
    <batchSize>0</batchSize>
  </RunInfo>
</Simulation>
`
	_, err := NewParser().Parse([]byte(bad))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "batchSize")
}

func TestParse_UnknownRestartMetric(t *testing.T) {
	const bad = `
<Simulation>
  <RunInfo><Sequence></Sequence></RunInfo>
  <Samplers>
    <MonteCarlo name="mc">
      <samplerInit><limit>1</limit></samplerInit>
      <variable name="x"><distribution>d</distribution></variable>
      <restartMetric>chebyshev</restartMetric>
    </MonteCarlo>
  </Samplers>
</Simulation>
`
	_, err := NewParser().Parse([]byte(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restart metric")
}

func TestParse_ReSeedAndFailurePolicy(t *testing.T) {
	const steps = `
<Simulation>
  <RunInfo><Sequence>s</Sequence></RunInfo>
  <Steps>
    <MultiRun name="s" re-seeding="77" failurePolicy="fast">
      <Sampler class="Samplers">mc</Sampler>
      <Model class="Models">m</Model>
      <Output class="DataObjects">o</Output>
    </MultiRun>
  </Steps>
</Simulation>
`
	doc, err := NewParser().Parse([]byte(steps))
	require.NoError(t, err)
	s := doc.Steps["s"]
	require.NotNil(t, s.ReSeed)
	assert.Equal(t, int64(77), *s.ReSeed)
	assert.Equal(t, domain.FailFast, s.FailurePolicy)
}

func TestExpandGroups_Cycle(t *testing.T) {
	const cyclic = `
<Simulation>
  <RunInfo><Sequence></Sequence></RunInfo>
  <VariableGroups>
    <Group name="a">x, b</Group>
    <Group name="b">y, a</Group>
  </VariableGroups>
  <Models>
    <ExternalModel name="m">
      <variables>a</variables>
      <expression target="z">x</expression>
    </ExternalModel>
  </Models>
</Simulation>
`
	_, err := NewParser().Parse([]byte(cyclic))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}
