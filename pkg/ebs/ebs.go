// Package ebs enumerates EC2 instances and EBS volumes and drives the
// snapshot and copy operations used to acquire disk evidence. All calls go
// through the EC2 API of a single region; cross-region acquisition runs one
// Service per region.
package ebs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/charmbracelet/log"

	"github.com/google/cloud-forensics-utls/internal/tags"
	"github.com/google/cloud-forensics-utls/pkg/naming"
)

// Wait limits for the asynchronous EC2 operations. Snapshots of large
// volumes routinely take tens of minutes.
const (
	snapshotWaitTimeout = 50 * time.Minute
	volumeWaitTimeout   = 10 * time.Minute
)

// API is the slice of the EC2 surface this package calls. The concrete
// *ec2.Client satisfies it.
type API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeVolumes(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error)
	DescribeSnapshots(ctx context.Context, params *ec2.DescribeSnapshotsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSnapshotsOutput, error)
	CreateSnapshot(ctx context.Context, params *ec2.CreateSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.CreateSnapshotOutput, error)
	CreateVolume(ctx context.Context, params *ec2.CreateVolumeInput, optFns ...func(*ec2.Options)) (*ec2.CreateVolumeOutput, error)
	DeleteSnapshot(ctx context.Context, params *ec2.DeleteSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.DeleteSnapshotOutput, error)
}

// Service wraps the EC2 calls used for acquisition in one region.
type Service struct {
	client API
	region string
}

func NewService(client API, region string) *Service {
	return &Service{client: client, region: region}
}

// ListInstances returns the instances in the region, skipping terminated
// ones since their volumes are already gone. Filters narrow the listing
// server-side.
func (s *Service) ListInstances(ctx context.Context, filters ...types.Filter) ([]Instance, error) {
	var instances []Instance
	var nextToken *string

	for {
		output, err := s.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
			Filters:   filters,
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list instances: %w", err)
		}

		for _, reservation := range output.Reservations {
			for _, inst := range reservation.Instances {
				// Terminated instances have no volumes left to acquire.
				if inst.State != nil && inst.State.Name == types.InstanceStateNameTerminated {
					continue
				}
				instances = append(instances, mapInstance(inst, s.region))
			}
		}
		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return instances, nil
}

// ListVolumes returns all volumes in the region. Filters narrow the listing
// server-side, e.g. attachment.instance-id to scope to one instance.
func (s *Service) ListVolumes(ctx context.Context, filters ...types.Filter) ([]Volume, error) {
	var volumes []Volume
	var nextToken *string

	for {
		output, err := s.client.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{
			Filters:   filters,
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list volumes: %w", err)
		}

		for _, vol := range output.Volumes {
			volumes = append(volumes, mapVolume(vol, s.region))
		}
		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return volumes, nil
}

// GetInstanceByID looks an instance up by its ID.
func (s *Service) GetInstanceByID(ctx context.Context, instanceID string) (Instance, error) {
	output, err := s.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return Instance{}, fmt.Errorf("failed to get instance %s: %w", instanceID, err)
	}

	for _, reservation := range output.Reservations {
		for _, inst := range reservation.Instances {
			return mapInstance(inst, s.region), nil
		}
	}
	return Instance{}, fmt.Errorf("instance %s not found in region %s", instanceID, s.region)
}

// GetInstancesByName returns every instance whose Name tag matches.
func (s *Service) GetInstancesByName(ctx context.Context, name string) ([]Instance, error) {
	instances, err := s.ListInstances(ctx)
	if err != nil {
		return nil, err
	}

	var matches []Instance
	for _, inst := range instances {
		if inst.Name == name {
			matches = append(matches, inst)
		}
	}
	return matches, nil
}

// FindInstance resolves an identifier that may be an instance ID or a Name
// tag. The ID lookup runs first; when it misses, the name lookup runs and
// both failures are reported together.
func (s *Service) FindInstance(ctx context.Context, identifier string) (Instance, error) {
	inst, idErr := s.GetInstanceByID(ctx, identifier)
	if idErr == nil {
		return inst, nil
	}

	matches, nameErr := s.GetInstancesByName(ctx, identifier)
	if nameErr != nil {
		return Instance{}, errors.Join(idErr, nameErr)
	}
	if len(matches) == 0 {
		return Instance{}, errors.Join(idErr, fmt.Errorf("no instance named %q in region %s", identifier, s.region))
	}
	if len(matches) > 1 {
		return Instance{}, fmt.Errorf("%d instances named %q in region %s, use the instance ID", len(matches), identifier, s.region)
	}
	return matches[0], nil
}

// GetVolumeByID looks a volume up by its ID.
func (s *Service) GetVolumeByID(ctx context.Context, volumeID string) (Volume, error) {
	output, err := s.client.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{
		VolumeIds: []string{volumeID},
	})
	if err != nil {
		return Volume{}, fmt.Errorf("failed to get volume %s: %w", volumeID, err)
	}

	if len(output.Volumes) == 0 {
		return Volume{}, fmt.Errorf("volume %s not found in region %s", volumeID, s.region)
	}
	return mapVolume(output.Volumes[0], s.region), nil
}

// GetVolumesByName returns every volume whose Name tag matches.
func (s *Service) GetVolumesByName(ctx context.Context, name string) ([]Volume, error) {
	volumes, err := s.ListVolumes(ctx)
	if err != nil {
		return nil, err
	}

	var matches []Volume
	for _, vol := range volumes {
		if vol.Name == name {
			matches = append(matches, vol)
		}
	}
	return matches, nil
}

// FindVolume resolves an identifier that may be a volume ID or a Name tag,
// with the same two-step lookup as FindInstance.
func (s *Service) FindVolume(ctx context.Context, identifier string) (Volume, error) {
	vol, idErr := s.GetVolumeByID(ctx, identifier)
	if idErr == nil {
		return vol, nil
	}

	matches, nameErr := s.GetVolumesByName(ctx, identifier)
	if nameErr != nil {
		return Volume{}, errors.Join(idErr, nameErr)
	}
	if len(matches) == 0 {
		return Volume{}, errors.Join(idErr, fmt.Errorf("no volume named %q in region %s", identifier, s.region))
	}
	if len(matches) > 1 {
		return Volume{}, fmt.Errorf("%d volumes named %q in region %s, use the volume ID", len(matches), identifier, s.region)
	}
	return matches[0], nil
}

// GetBootVolume returns the volume attached as the instance's root device.
func (s *Service) GetBootVolume(ctx context.Context, instanceID string) (Volume, error) {
	inst, err := s.GetInstanceByID(ctx, instanceID)
	if err != nil {
		return Volume{}, err
	}

	volumes, err := s.ListVolumes(ctx, types.Filter{
		Name:   aws.String("attachment.instance-id"),
		Values: []string{instanceID},
	})
	if err != nil {
		return Volume{}, err
	}

	for _, vol := range volumes {
		if vol.Device == inst.RootDeviceName {
			return vol, nil
		}
	}
	return Volume{}, fmt.Errorf("no boot volume found for instance %s", instanceID)
}

// SnapshotVolume snapshots a volume and waits for the snapshot to complete.
// When name is empty one is derived from the volume's display name and the
// snapshot time.
func (s *Service) SnapshotVolume(ctx context.Context, volume Volume, name string) (Snapshot, error) {
	if name == "" {
		generated, err := naming.GenerateSnapshotName(volume.DisplayName(), time.Now().UTC())
		if err != nil {
			return Snapshot{}, err
		}
		name = generated
	} else if err := naming.Validate(name); err != nil {
		return Snapshot{}, err
	}

	// Snapshot creation is rate limited per volume, so retry with backoff
	// until the throttle clears. Anything else fails immediately.
	var output *ec2.CreateSnapshotOutput
	err := retry.Do(
		func() error {
			var err error
			output, err = s.client.CreateSnapshot(ctx, &ec2.CreateSnapshotInput{
				VolumeId: aws.String(volume.VolumeID),
				TagSpecifications: []types.TagSpecification{
					tagSpecification(types.ResourceTypeSnapshot, name, map[string]string{
						tags.SourceVolume: volume.VolumeID,
					}),
				},
			})
			if err != nil && !isAPIError(err, "SnapshotCreationPerVolumeRateExceeded") {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Attempts(10),
		retry.Delay(100*time.Millisecond),
		retry.MaxDelay(15*time.Second),
		retry.DelayType(retry.BackOffDelay),
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to snapshot volume %s: %w", volume.VolumeID, err)
	}

	snapshot := mapCreateSnapshotOutput(output, s.region)
	snapshot.Name = name

	log.Info("Waiting for snapshot to complete", "snapshot_id", snapshot.SnapshotID, "volume_id", volume.VolumeID)
	waiter := ec2.NewSnapshotCompletedWaiter(s.client, func(o *ec2.SnapshotCompletedWaiterOptions) {
		o.MinDelay = 30 * time.Second
	})
	err = waiter.Wait(ctx, &ec2.DescribeSnapshotsInput{
		SnapshotIds: []string{snapshot.SnapshotID},
	}, snapshotWaitTimeout)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s did not complete: %w", snapshot.SnapshotID, err)
	}

	snapshot.State = string(types.SnapshotStateCompleted)
	return snapshot, nil
}

// CopyOptions controls CreateVolumeFromSnapshot.
type CopyOptions struct {
	// VolumeName overrides the generated name.
	VolumeName string
	// NamePrefix is prepended to the generated name.
	NamePrefix string
	// CallerIdentity feeds the checksum that keeps generated names from
	// colliding across callers.
	CallerIdentity string
	// Zone places the copy. Defaults to the source volume's zone.
	Zone string
	// VolumeType of the copy. Defaults to the EC2 API default.
	VolumeType string
	// AcquisitionID and CaseID are stamped as tags when set.
	AcquisitionID string
	CaseID        string
}

// CreateVolumeFromSnapshot materializes a snapshot as a new volume and
// waits for it to become available.
func (s *Service) CreateVolumeFromSnapshot(ctx context.Context, snapshot Snapshot, opts CopyOptions) (Volume, error) {
	name := opts.VolumeName
	if name == "" {
		base := snapshot.Name
		if base == "" {
			base = snapshot.SnapshotID
		}
		generated, err := naming.GenerateCopyName(base, snapshot.VolumeID, opts.CallerIdentity, opts.NamePrefix)
		if err != nil {
			return Volume{}, err
		}
		name = generated
	} else if err := naming.Validate(name); err != nil {
		return Volume{}, err
	}

	zone := opts.Zone
	if zone == "" {
		source, err := s.GetVolumeByID(ctx, snapshot.VolumeID)
		if err != nil {
			return Volume{}, fmt.Errorf("failed to resolve zone from source volume: %w", err)
		}
		zone = source.AvailabilityZone
	}

	extra := map[string]string{tags.SourceVolume: snapshot.VolumeID}
	if opts.AcquisitionID != "" {
		extra[tags.AcquisitionID] = opts.AcquisitionID
	}
	if opts.CaseID != "" {
		extra[tags.Case] = opts.CaseID
	}

	input := &ec2.CreateVolumeInput{
		AvailabilityZone: aws.String(zone),
		SnapshotId:       aws.String(snapshot.SnapshotID),
		TagSpecifications: []types.TagSpecification{
			tagSpecification(types.ResourceTypeVolume, name, extra),
		},
	}
	if opts.VolumeType != "" {
		input.VolumeType = types.VolumeType(opts.VolumeType)
	}

	output, err := s.client.CreateVolume(ctx, input)
	if err != nil {
		return Volume{}, fmt.Errorf("failed to create volume from snapshot %s: %w", snapshot.SnapshotID, err)
	}

	volume := mapCreateVolumeOutput(output, s.region)
	volume.Name = name

	log.Info("Waiting for volume to become available", "volume_id", volume.VolumeID, "zone", zone)
	waiter := ec2.NewVolumeAvailableWaiter(s.client)
	err = waiter.Wait(ctx, &ec2.DescribeVolumesInput{
		VolumeIds: []string{volume.VolumeID},
	}, volumeWaitTimeout)
	if err != nil {
		return Volume{}, fmt.Errorf("volume %s did not become available: %w", volume.VolumeID, err)
	}

	volume.State = string(types.VolumeStateAvailable)
	return volume, nil
}

// DeleteSnapshot removes the working snapshot left behind by a copy. A
// snapshot can be briefly in use right after the copy volume is created,
// so deletion retries until the reference clears. A snapshot that is
// already gone counts as deleted.
func (s *Service) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	err := retry.Do(
		func() error {
			_, err := s.client.DeleteSnapshot(ctx, &ec2.DeleteSnapshotInput{
				SnapshotId: aws.String(snapshotID),
			})
			if err != nil {
				if isAPIError(err, "InvalidSnapshot.NotFound") {
					log.Debug("Snapshot already deleted", "snapshot_id", snapshotID)
					return nil
				}
				if !isAPIError(err, "InvalidSnapshot.InUse") {
					return retry.Unrecoverable(err)
				}
			}
			return err
		},
		retry.Attempts(10),
		retry.Delay(100*time.Millisecond),
		retry.MaxDelay(15*time.Second),
		retry.DelayType(retry.BackOffDelay),
	)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", snapshotID, err)
	}
	return nil
}

func isAPIError(err error, code string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == code
}
