// Package tags holds the tag keys stamped on every resource this tool
// creates, so acquired evidence can be traced back to the acquisition that
// produced it.
package tags

const (
	// Name is the display-name tag EC2 consoles render.
	Name = "Name"

	// AcquisitionID tags artifacts with the run that created them.
	AcquisitionID = "cfu:acquisition-id"

	// SourceVolume records the volume an artifact was copied from.
	SourceVolume = "cfu:source-volume"

	// Case carries the operator-supplied case identifier.
	Case = "cfu:case"
)
