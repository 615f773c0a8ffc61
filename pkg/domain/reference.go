package domain

import "fmt"

// Collection names the top-level sections of a workflow document that hold
// named entities. Step references select their target registry by collection.
type Collection string

const (
	CollectionFiles          Collection = "Files"
	CollectionDistributions  Collection = "Distributions"
	CollectionSamplers       Collection = "Samplers"
	CollectionModels         Collection = "Models"
	CollectionDataObjects    Collection = "DataObjects"
	CollectionOutStreams     Collection = "OutStreams"
	CollectionVariableGroups Collection = "VariableGroups"
	CollectionSteps          Collection = "Steps"
)

// Reference is a by-name link from a Step slot to an entity in a top-level
// collection: <Input class="DataObjects" type="PointSet">solutions</Input>.
// Type is advisory; Class and Name are what resolution keys on.
type Reference struct {
	Class Collection `xml:"class,attr"`
	Type  string     `xml:"type,attr"`
	Name  string     `xml:",chardata"`
}

func (r Reference) String() string {
	return fmt.Sprintf("%s/%s", r.Class, r.Name)
}
