// Package compiler turns a raw workflow document into the domain registry.
//
// Parsing is a single load phase: collections are walked in document order,
// each entity's variant tag is mapped onto a closed enumeration, and names
// are checked for uniqueness per collection. Anything structural that is
// wrong surfaces here, before validation or execution ever see the document.
package compiler

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/pergola/pkg/domain"
)

// element is a generic XML tree node. The compiler decodes the whole
// document into this shape first and dispatches on tag names afterwards, so
// variant errors can be reported with collection and entity context.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []element  `xml:",any"`
	Text     string     `xml:",chardata"`
}

func (e *element) attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (e *element) child(name string) *element {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			return &e.Children[i]
		}
	}
	return nil
}

func (e *element) text() string {
	return strings.TrimSpace(e.Text)
}

func (e *element) childText(name string) string {
	if c := e.child(name); c != nil {
		return c.text()
	}
	return ""
}

// Parser converts raw document bytes into a domain.Document.
type Parser struct {
	ignorable map[string]struct{}
}

// Option configures the parser.
type Option func(*Parser)

// WithIgnorableTags extends the set of top-level tags the parser skips
// instead of rejecting. TestInfo is always ignorable.
func WithIgnorableTags(tags ...string) Option {
	return func(p *Parser) {
		for _, t := range tags {
			p.ignorable[t] = struct{}{}
		}
	}
}

// NewParser creates a parser with the default fail-soft set.
func NewParser(opts ...Option) *Parser {
	p := &Parser{ignorable: map[string]struct{}{"TestInfo": {}}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse builds the registry from raw bytes. Parsing the same bytes twice
// yields independent, identical documents; nothing accumulates across calls.
func (p *Parser) Parse(data []byte) (*domain.Document, error) {
	var root element
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("malformed document: %v: %w", err, domain.ErrValidation)
	}

	doc := domain.NewDocument()
	for i := range root.Children {
		sec := &root.Children[i]
		var err error
		switch domain.Collection(sec.XMLName.Local) {
		case "RunInfo":
			err = p.parseRunInfo(sec, doc)
		case domain.CollectionFiles:
			err = p.parseFiles(sec, doc)
		case domain.CollectionDistributions:
			err = p.parseDistributions(sec, doc)
		case domain.CollectionSamplers:
			err = p.parseSamplers(sec, doc)
		case domain.CollectionModels:
			err = p.parseModels(sec, doc)
		case domain.CollectionDataObjects:
			err = p.parseDataObjects(sec, doc)
		case domain.CollectionOutStreams:
			err = p.parseOutStreams(sec, doc)
		case domain.CollectionVariableGroups:
			err = p.parseVariableGroups(sec, doc)
		case domain.CollectionSteps:
			err = p.parseSteps(sec, doc)
		default:
			if _, ok := p.ignorable[sec.XMLName.Local]; !ok {
				return nil, &domain.UnknownCollectionError{Tag: sec.XMLName.Local}
			}
		}
		if err != nil {
			return nil, err
		}
	}

	if doc.RunInfo.BatchSize < 1 {
		return nil, fmt.Errorf("RunInfo.batchSize must be >= 1, got %d: %w",
			doc.RunInfo.BatchSize, domain.ErrValidation)
	}

	if err := expandGroups(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (p *Parser) parseRunInfo(sec *element, doc *domain.Document) error {
	raw := map[string]any{}
	for i := range sec.Children {
		c := &sec.Children[i]
		if c.XMLName.Local == "Sequence" {
			doc.RunInfo.Sequence = splitList(c.text())
			continue
		}
		raw[c.XMLName.Local] = c.text()
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &doc.RunInfo,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("RunInfo: %v: %w", err, domain.ErrValidation)
	}
	return nil
}

func (p *Parser) parseFiles(sec *element, doc *domain.Document) error {
	for i := range sec.Children {
		c := &sec.Children[i]
		name, err := requiredName(c, domain.CollectionFiles)
		if err != nil {
			return err
		}
		if _, dup := doc.Files[name]; dup {
			return &domain.DuplicateNameError{Collection: domain.CollectionFiles, Name: name}
		}
		typ, _ := c.attr("type")
		doc.Files[name] = &domain.FileSpec{Name: name, Path: c.text(), Type: typ}
	}
	return nil
}

func (p *Parser) parseDistributions(sec *element, doc *domain.Document) error {
	for i := range sec.Children {
		c := &sec.Children[i]
		name, err := requiredName(c, domain.CollectionDistributions)
		if err != nil {
			return err
		}
		if _, dup := doc.Distributions[name]; dup {
			return &domain.DuplicateNameError{Collection: domain.CollectionDistributions, Name: name}
		}
		d := &domain.Distribution{Name: name, Kind: domain.DistributionKind(c.XMLName.Local)}
		switch d.Kind {
		case domain.DistUniform:
			if d.LowerBound, err = floatChild(c, "lowerBound"); err != nil {
				return err
			}
			if d.UpperBound, err = floatChild(c, "upperBound"); err != nil {
				return err
			}
			if d.UpperBound <= d.LowerBound {
				return fmt.Errorf("distribution %q: upperBound must exceed lowerBound: %w", name, domain.ErrValidation)
			}
		case domain.DistNormal:
			if d.Mean, err = floatChild(c, "mean"); err != nil {
				return err
			}
			if d.Sigma, err = floatChild(c, "sigma"); err != nil {
				return err
			}
			if d.Sigma <= 0 {
				return fmt.Errorf("distribution %q: sigma must be positive: %w", name, domain.ErrValidation)
			}
		case domain.DistCategorical:
			if d.States, err = floatList(c.childText("states"), name); err != nil {
				return err
			}
			if d.Weights, err = floatList(c.childText("weights"), name); err != nil {
				return err
			}
			if len(d.States) == 0 || len(d.States) != len(d.Weights) {
				return fmt.Errorf("distribution %q: states and weights must be non-empty and equal length: %w", name, domain.ErrValidation)
			}
		case domain.DistMultivariateNormal:
			if d.Means, err = floatList(c.childText("mean"), name); err != nil {
				return err
			}
			if d.Covariance, err = floatMatrix(c.childText("covariance"), name); err != nil {
				return err
			}
			if len(d.Covariance) != len(d.Means) {
				return fmt.Errorf("distribution %q: covariance must be %dx%d: %w", name, len(d.Means), len(d.Means), domain.ErrValidation)
			}
			for _, row := range d.Covariance {
				if len(row) != len(d.Means) {
					return fmt.Errorf("distribution %q: covariance must be square: %w", name, domain.ErrValidation)
				}
			}
		default:
			return fmt.Errorf("distribution %q: unknown law %q: %w", name, c.XMLName.Local, domain.ErrValidation)
		}
		doc.Distributions[name] = d
	}
	return nil
}

func (p *Parser) parseSamplers(sec *element, doc *domain.Document) error {
	for i := range sec.Children {
		c := &sec.Children[i]
		name, err := requiredName(c, domain.CollectionSamplers)
		if err != nil {
			return err
		}
		if _, dup := doc.Samplers[name]; dup {
			return &domain.DuplicateNameError{Collection: domain.CollectionSamplers, Name: name}
		}
		kind := domain.SamplerKind(c.XMLName.Local)
		switch kind {
		case domain.SamplerMonteCarlo, domain.SamplerGrid, domain.SamplerStratified:
		default:
			return fmt.Errorf("sampler %q: unknown kind %q: %w", name, c.XMLName.Local, domain.ErrValidation)
		}
		s := &domain.SamplerSpec{Name: name, Kind: kind, RestartMetric: "euclidean"}

		if init := c.child("samplerInit"); init != nil {
			raw := map[string]any{}
			for j := range init.Children {
				raw[init.Children[j].XMLName.Local] = init.Children[j].text()
			}
			dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				WeaklyTypedInput: true,
				Result:           &s.Init,
			})
			if err != nil {
				return err
			}
			if err := dec.Decode(raw); err != nil {
				return fmt.Errorf("sampler %q: samplerInit: %v: %w", name, err, domain.ErrValidation)
			}
		}

		for j := range c.Children {
			v := &c.Children[j]
			switch v.XMLName.Local {
			case "variable":
				vn, ok := v.attr("name")
				if !ok || vn == "" {
					return fmt.Errorf("sampler %q: variable missing name: %w", name, domain.ErrValidation)
				}
				sv := domain.SamplerVariable{Name: vn, Distribution: v.childText("distribution")}
				if dim, ok := v.attr("dim"); ok {
					n, err := strconv.Atoi(dim)
					if err != nil || n < 1 {
						return fmt.Errorf("sampler %q: variable %q: bad dim %q: %w", name, vn, dim, domain.ErrValidation)
					}
					sv.Dim = n
				}
				if g := v.childText("grid"); g != "" {
					if sv.Grid, err = floatList(g, name); err != nil {
						return err
					}
				}
				s.Variables = append(s.Variables, sv)
			case "Restart":
				s.Restart = v.text()
			case "restartTolerance":
				if s.RestartTolerance, err = parseFloat(v.text(), name); err != nil {
					return err
				}
			case "restartMetric":
				m := v.text()
				if m != "euclidean" && m != "manhattan" {
					return fmt.Errorf("sampler %q: unknown restart metric %q: %w", name, m, domain.ErrValidation)
				}
				s.RestartMetric = m
			}
		}

		if len(s.Variables) == 0 {
			return fmt.Errorf("sampler %q declares no variables: %w", name, domain.ErrValidation)
		}
		doc.Samplers[name] = s
	}
	return nil
}

func (p *Parser) parseModels(sec *element, doc *domain.Document) error {
	for i := range sec.Children {
		c := &sec.Children[i]
		name, err := requiredName(c, domain.CollectionModels)
		if err != nil {
			return err
		}
		if _, dup := doc.Models[name]; dup {
			return &domain.DuplicateNameError{Collection: domain.CollectionModels, Name: name}
		}
		kind := domain.ModelKind(c.XMLName.Local)
		sub, _ := c.attr("subType")
		m := &domain.ModelSpec{Name: name, Kind: kind, SubType: sub}
		m.Variables = splitList(c.childText("variables"))

		switch kind {
		case domain.ModelExternal:
			m.Expressions = map[string]string{}
			for j := range c.Children {
				e := &c.Children[j]
				if e.XMLName.Local != "expression" {
					continue
				}
				target, ok := e.attr("target")
				if !ok || target == "" {
					return fmt.Errorf("model %q: expression missing target: %w", name, domain.ErrValidation)
				}
				m.Expressions[target] = e.text()
			}
			if len(m.Expressions) == 0 {
				return fmt.Errorf("model %q declares no expressions: %w", name, domain.ErrValidation)
			}
		case domain.ModelCode:
			m.Executable = c.childText("executable")
			m.InputFile = c.childText("inputFile")
			m.OutputFile = c.childText("outputFile")
			if args := c.child("arguments"); args != nil {
				m.Arguments = splitList(args.text())
			}
			if m.Executable == "" {
				return fmt.Errorf("model %q: Code model requires an executable: %w", name, domain.ErrValidation)
			}
		case domain.ModelROM:
			m.Features = splitList(c.childText("Features"))
			m.Targets = splitList(c.childText("Target"))
			if len(m.Features) == 0 || len(m.Targets) == 0 {
				return fmt.Errorf("model %q: ROM requires Features and Target: %w", name, domain.ErrValidation)
			}
		case domain.ModelPostProcessor:
			// subType selects the post-processing variant; validated by the
			// model factory which owns the closed set.
		default:
			return fmt.Errorf("model %q: unknown class %q: %w", name, c.XMLName.Local, domain.ErrValidation)
		}
		doc.Models[name] = m
	}
	return nil
}

func (p *Parser) parseDataObjects(sec *element, doc *domain.Document) error {
	for i := range sec.Children {
		c := &sec.Children[i]
		name, err := requiredName(c, domain.CollectionDataObjects)
		if err != nil {
			return err
		}
		if _, dup := doc.DataObjects[name]; dup {
			return &domain.DuplicateNameError{Collection: domain.CollectionDataObjects, Name: name}
		}
		kind := domain.DataObjectKind(c.XMLName.Local)
		if kind != domain.PointSet && kind != domain.HistorySet {
			return fmt.Errorf("data object %q: unknown kind %q: %w", name, c.XMLName.Local, domain.ErrValidation)
		}
		d := &domain.DataObjectSpec{
			Name:    name,
			Kind:    kind,
			Inputs:  splitList(c.childText("Input")),
			Outputs: splitList(c.childText("Output")),
		}
		if kind == domain.HistorySet {
			d.Pivot = c.childText("pivotParameter")
			if d.Pivot == "" {
				d.Pivot = "time"
			}
		}
		doc.DataObjects[name] = d
	}
	return nil
}

func (p *Parser) parseOutStreams(sec *element, doc *domain.Document) error {
	for i := range sec.Children {
		c := &sec.Children[i]
		name, err := requiredName(c, domain.CollectionOutStreams)
		if err != nil {
			return err
		}
		if _, dup := doc.OutStreams[name]; dup {
			return &domain.DuplicateNameError{Collection: domain.CollectionOutStreams, Name: name}
		}
		kind := domain.OutStreamKind(c.XMLName.Local)
		o := &domain.OutStreamSpec{Name: name, Kind: kind, Source: c.childText("source")}
		switch kind {
		case domain.OutStreamPrint:
			o.Format = c.childText("type")
			if o.Format == "" {
				o.Format = "csv"
			}
			if o.Format != "csv" {
				return fmt.Errorf("out-stream %q: unsupported print format %q: %w", name, o.Format, domain.ErrValidation)
			}
		case domain.OutStreamPlot:
			o.X = c.childText("x")
			o.Y = c.childText("y")
			if o.X == "" || o.Y == "" {
				return fmt.Errorf("out-stream %q: plot requires x and y: %w", name, domain.ErrValidation)
			}
		default:
			return fmt.Errorf("out-stream %q: unknown kind %q: %w", name, c.XMLName.Local, domain.ErrValidation)
		}
		if o.Source == "" {
			return fmt.Errorf("out-stream %q: missing source: %w", name, domain.ErrValidation)
		}
		doc.OutStreams[name] = o
	}
	return nil
}

func (p *Parser) parseVariableGroups(sec *element, doc *domain.Document) error {
	for i := range sec.Children {
		c := &sec.Children[i]
		name, err := requiredName(c, domain.CollectionVariableGroups)
		if err != nil {
			return err
		}
		if _, dup := doc.VariableGroups[name]; dup {
			return &domain.DuplicateNameError{Collection: domain.CollectionVariableGroups, Name: name}
		}
		doc.VariableGroups[name] = &domain.VariableGroup{Name: name, Variables: splitList(c.text())}
	}
	return nil
}

func (p *Parser) parseSteps(sec *element, doc *domain.Document) error {
	for i := range sec.Children {
		c := &sec.Children[i]
		name, err := requiredName(c, domain.CollectionSteps)
		if err != nil {
			return err
		}
		if _, dup := doc.Steps[name]; dup {
			return &domain.DuplicateNameError{Collection: domain.CollectionSteps, Name: name}
		}
		kind := domain.StepKind(c.XMLName.Local)
		switch kind {
		case domain.StepMultiRun, domain.StepSingleRun, domain.StepIOStep,
			domain.StepRomTrainer, domain.StepPostProcess:
		default:
			return fmt.Errorf("step %q: unknown kind %q: %w", name, c.XMLName.Local, domain.ErrValidation)
		}
		s := &domain.StepSpec{Name: name, Kind: kind}

		if seed, ok := c.attr("re-seeding"); ok {
			n, err := strconv.ParseInt(seed, 10, 64)
			if err != nil {
				return fmt.Errorf("step %q: bad re-seeding value %q: %w", name, seed, domain.ErrValidation)
			}
			s.ReSeed = &n
		}
		if pol, ok := c.attr("failurePolicy"); ok {
			switch domain.FailurePolicy(pol) {
			case domain.FailFast, domain.FailSoft:
				s.FailurePolicy = domain.FailurePolicy(pol)
			default:
				return fmt.Errorf("step %q: unknown failurePolicy %q: %w", name, pol, domain.ErrValidation)
			}
		}

		for j := range c.Children {
			e := &c.Children[j]
			ref, err := parseRef(e, name)
			if err != nil {
				return err
			}
			switch e.XMLName.Local {
			case "Input":
				s.Inputs = append(s.Inputs, ref)
			case "Output":
				s.Outputs = append(s.Outputs, ref)
			case "Sampler":
				s.Sampler = &ref
			case "Model":
				s.Model = &ref
			default:
				return fmt.Errorf("step %q: unknown slot <%s>: %w", name, e.XMLName.Local, domain.ErrValidation)
			}
		}
		doc.Steps[name] = s
		doc.StepOrder = append(doc.StepOrder, name)
	}
	return nil
}

func parseRef(e *element, step string) (domain.Reference, error) {
	class, ok := e.attr("class")
	if !ok || class == "" {
		return domain.Reference{}, fmt.Errorf("step %q: <%s> missing class attribute: %w", step, e.XMLName.Local, domain.ErrValidation)
	}
	typ, _ := e.attr("type")
	name := e.text()
	if name == "" {
		return domain.Reference{}, fmt.Errorf("step %q: <%s> missing entity name: %w", step, e.XMLName.Local, domain.ErrValidation)
	}
	return domain.Reference{Class: domain.Collection(class), Type: typ, Name: name}, nil
}

func requiredName(e *element, col domain.Collection) (string, error) {
	name, ok := e.attr("name")
	if !ok || name == "" {
		return "", fmt.Errorf("collection %s: <%s> missing name attribute: %w", col, e.XMLName.Local, domain.ErrValidation)
	}
	return name, nil
}

// splitList splits comma- or whitespace-separated variable lists.
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func parseFloat(s, owner string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%q: bad numeric value %q: %w", owner, s, domain.ErrValidation)
	}
	return v, nil
}

func floatChild(e *element, tag string) (float64, error) {
	c := e.child(tag)
	if c == nil {
		name, _ := e.attr("name")
		return 0, fmt.Errorf("%q: missing <%s>: %w", name, tag, domain.ErrValidation)
	}
	name, _ := e.attr("name")
	return parseFloat(c.text(), name)
}

func floatList(s, owner string) ([]float64, error) {
	parts := splitList(s)
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := parseFloat(p, owner)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// floatMatrix parses rows separated by ';', entries by commas or whitespace.
func floatMatrix(s, owner string) ([][]float64, error) {
	var out [][]float64
	for _, rowText := range strings.Split(s, ";") {
		if strings.TrimSpace(rowText) == "" {
			continue
		}
		row, err := floatList(rowText, owner)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}
