// Package inventory implements the partition enumerator and lookup client
// on top of the EC2 API. Each AWS region is one partition.
//
// Retries, credentials, and request timeouts are handled by the AWS SDK's
// default chain; nothing here retries on its own.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"github.com/justapithecus/amiresolve/resolver"
	"github.com/justapithecus/amiresolve/types"
)

// notFoundCodes are EC2 error codes that mean "no such image" rather than
// a transport or authorization failure.
var notFoundCodes = map[string]struct{}{
	"InvalidAMIID.NotFound":    {},
	"InvalidAMIID.Unavailable": {},
}

// API is the subset of the EC2 client used here.
// *ec2.Client satisfies it; tests supply fakes.
type API interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
	DescribeImages(ctx context.Context, params *ec2.DescribeImagesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeImagesOutput, error)
}

// Config holds configuration for the EC2 inventory.
type Config struct {
	// Region is the region used for DescribeRegions (required).
	Region string
	// Profile is a shared config profile name (optional, uses default chain if empty).
	Profile string
	// Endpoint is a custom EC2 endpoint URL (e.g. LocalStack).
	// Empty uses the default AWS endpoint.
	Endpoint string
	// Owners restricts image lookups to these owners ("self", "amazon", account ids).
	Owners []string
	// IncludeDeprecated includes deprecated images in lookups.
	IncludeDeprecated bool
	// AllRegions lists regions that are not enabled for the account as well.
	AllRegions bool
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Region == "" {
		return errors.New("EC2 inventory requires a region")
	}
	return nil
}

// Client implements resolver.PartitionEnumerator and resolver.LookupClient.
// A single SDK client is shared; the target region is set per call.
type Client struct {
	api    API
	config Config
}

// New creates a Client backed by the AWS SDK default configuration.
// Uses the default credential chain (env vars, shared config, IAM role).
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var ec2Opts []func(*ec2.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		ec2Opts = append(ec2Opts, func(o *ec2.Options) {
			o.BaseEndpoint = &endpoint
		})
	}

	return NewWithAPI(ec2.NewFromConfig(awsConfig, ec2Opts...), cfg), nil
}

// NewWithAPI creates a Client around an existing EC2 API implementation.
func NewWithAPI(api API, cfg Config) *Client {
	return &Client{api: api, config: cfg}
}

// inRegion returns a per-call option that targets partition.
func inRegion(partition types.PartitionID) func(*ec2.Options) {
	return func(o *ec2.Options) {
		o.Region = string(partition)
	}
}

// ListPartitions returns the region names visible to the account, sorted.
func (c *Client) ListPartitions(ctx context.Context) ([]types.PartitionID, error) {
	out, err := c.api.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		AllRegions: aws.Bool(c.config.AllRegions),
	}, inRegion(types.PartitionID(c.config.Region)))
	if err != nil {
		return nil, fmt.Errorf("describe regions: %w", err)
	}

	partitions := make([]types.PartitionID, 0, len(out.Regions))
	for _, r := range out.Regions {
		name := aws.ToString(r.RegionName)
		if name == "" {
			continue
		}
		partitions = append(partitions, types.PartitionID(name))
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })
	return partitions, nil
}

// GetByID returns the image with the given id in partition, or nil if the
// image does not exist there.
func (c *Client) GetByID(ctx context.Context, partition types.PartitionID, id string) (*types.ArtifactDescriptor, error) {
	input := &ec2.DescribeImagesInput{
		ImageIds:          []string{id},
		IncludeDeprecated: aws.Bool(c.config.IncludeDeprecated),
	}
	if len(c.config.Owners) > 0 {
		input.Owners = c.config.Owners
	}

	out, err := c.api.DescribeImages(ctx, input, inRegion(partition))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("describe images %s in %s: %w", id, partition, err)
	}

	images := toDescriptors(out.Images)
	if len(images) == 0 {
		return nil, nil
	}
	return &images[0], nil
}

// FindByName returns every image in partition whose name equals name.
//
// Matches are ordered newest CreationDate first, then by image id, so the
// first element is stable across calls.
func (c *Client) FindByName(ctx context.Context, partition types.PartitionID, name string) ([]types.ArtifactDescriptor, error) {
	input := &ec2.DescribeImagesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("name"), Values: []string{name}},
		},
		IncludeDeprecated: aws.Bool(c.config.IncludeDeprecated),
	}
	if len(c.config.Owners) > 0 {
		input.Owners = c.config.Owners
	}

	out, err := c.api.DescribeImages(ctx, input, inRegion(partition))
	if err != nil {
		return nil, fmt.Errorf("describe images %q in %s: %w", name, partition, err)
	}

	images := toDescriptors(out.Images)
	// The name filter allows wildcards; keep exact matches only.
	exact := images[:0]
	for _, img := range images {
		if img.Name == name {
			exact = append(exact, img)
		}
	}
	sortNewestFirst(exact)
	return exact, nil
}

func toDescriptors(images []ec2types.Image) []types.ArtifactDescriptor {
	out := make([]types.ArtifactDescriptor, 0, len(images))
	for _, img := range images {
		id := aws.ToString(img.ImageId)
		if id == "" {
			continue
		}
		out = append(out, types.ArtifactDescriptor{
			ID:                 id,
			Name:               aws.ToString(img.Name),
			Description:        aws.ToString(img.Description),
			Architecture:       string(img.Architecture),
			VirtualizationType: string(img.VirtualizationType),
			CreationDate:       aws.ToString(img.CreationDate),
			OwnerID:            aws.ToString(img.OwnerId),
		})
	}
	return out
}

// sortNewestFirst orders by CreationDate descending, then ID ascending.
// CreationDate is ISO 8601 in UTC, so lexical order is chronological.
func sortNewestFirst(images []types.ArtifactDescriptor) {
	sort.SliceStable(images, func(i, j int) bool {
		if images[i].CreationDate != images[j].CreationDate {
			return images[i].CreationDate > images[j].CreationDate
		}
		return images[i].ID < images[j].ID
	})
}

// isNotFound reports whether err is an EC2 "no such image" error.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		_, ok := notFoundCodes[apiErr.ErrorCode()]
		return ok
	}
	return false
}

// Verify Client implements the resolver collaborator interfaces.
var (
	_ resolver.PartitionEnumerator = (*Client)(nil)
	_ resolver.LookupClient        = (*Client)(nil)
)
