package pergola_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pergola"
	"github.com/aretw0/pergola/internal/adapters/memory"
	"github.com/aretw0/pergola/pkg/domain"
)

func workflowXML(workdir string) string {
	return fmt.Sprintf(`
<Simulation>
  <RunInfo>
    <WorkingDir>%s</WorkingDir>
    <Sequence>sample, dump</Sequence>
    <batchSize>2</batchSize>
  </RunInfo>
  <Distributions>
    <Uniform name="xDist"><lowerBound>0</lowerBound><upperBound>1</upperBound></Uniform>
  </Distributions>
  <Samplers>
    <MonteCarlo name="mc">
      <samplerInit><limit>6</limit><initialSeed>7</initialSeed></samplerInit>
      <variable name="x"><distribution>xDist</distribution></variable>
    </MonteCarlo>
  </Samplers>
  <Models>
    <ExternalModel name="double">
      <variables>x, ans</variables>
      <expression target="ans">x * 2</expression>
    </ExternalModel>
  </Models>
  <DataObjects>
    <PointSet name="solutions"><Input>x</Input><Output>ans</Output></PointSet>
  </DataObjects>
  <OutStreams>
    <Print name="dumpCSV"><type>csv</type><source>solutions</source></Print>
  </OutStreams>
  <Steps>
    <MultiRun name="sample">
      <Sampler class="Samplers">mc</Sampler>
      <Model class="Models">double</Model>
      <Output class="DataObjects">solutions</Output>
    </MultiRun>
    <IOStep name="dump">
      <Input class="DataObjects">solutions</Input>
      <Output class="OutStreams">dumpCSV</Output>
    </IOStep>
  </Steps>
</Simulation>
`, workdir)
}

func writeWorkflow(t *testing.T, workdir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "study.xml")
	require.NoError(t, os.WriteFile(path, []byte(workflowXML(workdir)), 0o644))
	return path
}

func TestNew_LoadsAndValidates(t *testing.T) {
	wf, err := pergola.New(writeWorkflow(t, t.TempDir()))
	require.NoError(t, err)

	assert.Equal(t, "study", wf.Name)
	assert.Equal(t, []string{"sample", "dump"}, wf.Sequence())
	assert.Equal(t, 2, wf.Document().RunInfo.BatchSize)
}

func TestNew_RequiresPathWithoutLoader(t *testing.T) {
	_, err := pergola.New("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestNew_CustomLoader(t *testing.T) {
	wf, err := pergola.New("", pergola.WithLoader(memory.NewLoaderString(workflowXML(t.TempDir()))))
	require.NoError(t, err)
	assert.Equal(t, []string{"sample", "dump"}, wf.Sequence())
}

func TestNew_ValidationFailureSurfaces(t *testing.T) {
	raw := `
<Simulation>
  <RunInfo><WorkingDir>.</WorkingDir><Sequence>go</Sequence></RunInfo>
  <Steps>
    <IOStep name="go">
      <Input class="DataObjects">missing</Input>
      <Output class="OutStreams">alsoMissing</Output>
    </IOStep>
  </Steps>
</Simulation>
`
	_, err := pergola.New("", pergola.WithLoader(memory.NewLoaderString(raw)))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnresolvedReference)
}

func TestWorkflow_Run(t *testing.T) {
	workdir := t.TempDir()
	wf, err := pergola.New(writeWorkflow(t, workdir))
	require.NoError(t, err)

	res, err := wf.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Halted)
	require.Len(t, res.Steps, 2)

	passed, failed, cached := res.Totals()
	assert.Equal(t, 6, passed)
	assert.Zero(t, failed)
	assert.Zero(t, cached)

	solutions, ok := wf.DataObject("solutions")
	require.True(t, ok)
	require.Len(t, solutions.Rows(), 6)
	for _, r := range solutions.Rows() {
		assert.InDelta(t, r["x"]*2, r["ans"], 1e-12)
	}

	_, err = os.Stat(filepath.Join(workdir, "dumpCSV.csv"))
	assert.NoError(t, err)
}

func TestWorkflow_DataObjectBeforeRun(t *testing.T) {
	wf, err := pergola.New(writeWorkflow(t, t.TempDir()))
	require.NoError(t, err)

	_, ok := wf.DataObject("solutions")
	assert.False(t, ok)
}

func TestWorkflow_BatchSizeOption(t *testing.T) {
	wf, err := pergola.New(writeWorkflow(t, t.TempDir()), pergola.WithBatchSize(5))
	require.NoError(t, err)
	assert.Equal(t, 5, wf.Document().RunInfo.BatchSize)
}

func TestWorkflow_Mermaid(t *testing.T) {
	wf, err := pergola.New(writeWorkflow(t, t.TempDir()))
	require.NoError(t, err)

	out := wf.Mermaid()
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "step_sample --> step_dump")
}
