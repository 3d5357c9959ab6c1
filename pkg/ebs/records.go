package ebs

import (
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/google/cloud-forensics-utls/internal/tags"
)

// Instance is the slice of an EC2 instance this tool reports.
type Instance struct {
	InstanceID       string            `json:"instance_id"`
	Name             string            `json:"name,omitempty"`
	Region           string            `json:"region"`
	AvailabilityZone string            `json:"availability_zone"`
	State            string            `json:"state"`
	InstanceType     string            `json:"instance_type"`
	RootDeviceName   string            `json:"root_device_name,omitempty"`
	PrivateIP        string            `json:"private_ip,omitempty"`
	PublicIP         string            `json:"public_ip,omitempty"`
	VolumeIDs        []string          `json:"volume_ids,omitempty"`
	Tags             map[string]string `json:"tags,omitempty"`
}

// Volume is the slice of an EBS volume this tool reports.
type Volume struct {
	VolumeID         string            `json:"volume_id"`
	Name             string            `json:"name,omitempty"`
	Region           string            `json:"region"`
	AvailabilityZone string            `json:"availability_zone"`
	State            string            `json:"state"`
	SizeGiB          int32             `json:"size_gib"`
	VolumeType       string            `json:"volume_type"`
	Encrypted        bool              `json:"encrypted"`
	Device           string            `json:"device,omitempty"`
	InstanceID       string            `json:"instance_id,omitempty"`
	Tags             map[string]string `json:"tags,omitempty"`
}

// DisplayName is the volume's Name tag, falling back to its ID. Generated
// artifact names start from it.
func (v Volume) DisplayName() string {
	if v.Name != "" {
		return v.Name
	}
	return v.VolumeID
}

// Snapshot is the slice of an EBS snapshot this tool reports.
type Snapshot struct {
	SnapshotID string    `json:"snapshot_id"`
	VolumeID   string    `json:"volume_id"`
	Name       string    `json:"name,omitempty"`
	Region     string    `json:"region"`
	State      string    `json:"state"`
	StartTime  time.Time `json:"start_time"`
}

func mapInstance(inst types.Instance, region string) Instance {
	record := Instance{
		InstanceID:     aws.ToString(inst.InstanceId),
		Region:         region,
		InstanceType:   string(inst.InstanceType),
		RootDeviceName: aws.ToString(inst.RootDeviceName),
		PrivateIP:      aws.ToString(inst.PrivateIpAddress),
		PublicIP:       aws.ToString(inst.PublicIpAddress),
		Tags:           tagMap(inst.Tags),
	}
	record.Name = nameFromTags(inst.Tags, "")
	if inst.State != nil {
		record.State = string(inst.State.Name)
	}
	if inst.Placement != nil {
		record.AvailabilityZone = aws.ToString(inst.Placement.AvailabilityZone)
	}
	for _, mapping := range inst.BlockDeviceMappings {
		if mapping.Ebs != nil {
			record.VolumeIDs = append(record.VolumeIDs, aws.ToString(mapping.Ebs.VolumeId))
		}
	}
	return record
}

func mapVolume(vol types.Volume, region string) Volume {
	record := Volume{
		VolumeID:         aws.ToString(vol.VolumeId),
		Region:           region,
		AvailabilityZone: aws.ToString(vol.AvailabilityZone),
		State:            string(vol.State),
		SizeGiB:          aws.ToInt32(vol.Size),
		VolumeType:       string(vol.VolumeType),
		Encrypted:        aws.ToBool(vol.Encrypted),
		Tags:             tagMap(vol.Tags),
	}
	record.Name = nameFromTags(vol.Tags, "")
	if len(vol.Attachments) > 0 {
		record.Device = aws.ToString(vol.Attachments[0].Device)
		record.InstanceID = aws.ToString(vol.Attachments[0].InstanceId)
	}
	return record
}

func mapSnapshot(snap types.Snapshot, region string) Snapshot {
	return Snapshot{
		SnapshotID: aws.ToString(snap.SnapshotId),
		VolumeID:   aws.ToString(snap.VolumeId),
		Name:       nameFromTags(snap.Tags, ""),
		Region:     region,
		State:      string(snap.State),
		StartTime:  aws.ToTime(snap.StartTime),
	}
}

func mapCreateSnapshotOutput(output *ec2.CreateSnapshotOutput, region string) Snapshot {
	return Snapshot{
		SnapshotID: aws.ToString(output.SnapshotId),
		VolumeID:   aws.ToString(output.VolumeId),
		Name:       nameFromTags(output.Tags, ""),
		Region:     region,
		State:      string(output.State),
		StartTime:  aws.ToTime(output.StartTime),
	}
}

func mapCreateVolumeOutput(output *ec2.CreateVolumeOutput, region string) Volume {
	record := Volume{
		VolumeID:         aws.ToString(output.VolumeId),
		Region:           region,
		AvailabilityZone: aws.ToString(output.AvailabilityZone),
		State:            string(output.State),
		SizeGiB:          aws.ToInt32(output.Size),
		VolumeType:       string(output.VolumeType),
		Encrypted:        aws.ToBool(output.Encrypted),
		Tags:             tagMap(output.Tags),
	}
	record.Name = nameFromTags(output.Tags, "")
	return record
}

func nameFromTags(resourceTags []types.Tag, fallback string) string {
	name := fallback
	for _, tag := range resourceTags {
		if aws.ToString(tag.Key) == tags.Name {
			name = aws.ToString(tag.Value)
			break
		}
	}
	return name
}

func tagMap(resourceTags []types.Tag) map[string]string {
	if len(resourceTags) == 0 {
		return nil
	}
	m := make(map[string]string, len(resourceTags))
	for _, tag := range resourceTags {
		m[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return m
}

// tagSpecification builds the tag set stamped on a resource at creation
// time. The Name tag comes first, extra keys follow in sorted order.
func tagSpecification(resourceType types.ResourceType, name string, extra map[string]string) types.TagSpecification {
	tagList := []types.Tag{{
		Key:   aws.String(tags.Name),
		Value: aws.String(name),
	}}

	keys := make([]string, 0, len(extra))
	for key := range extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		tagList = append(tagList, types.Tag{
			Key:   aws.String(key),
			Value: aws.String(extra[key]),
		})
	}

	return types.TagSpecification{
		ResourceType: resourceType,
		Tags:         tagList,
	}
}

