package sns

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/edutok-api/internal/domain"
)

// Channel issues push tokens as SNS platform endpoints. The token handed to
// the rest of the service is the endpoint ARN.
type Channel struct {
	api API
}

func NewChannel(api API) *Channel {
	return &Channel{api: api}
}

// RequestPermission relays what the client's browser reported.
func (c *Channel) RequestPermission(_ context.Context, reg domain.PushRegistration) (bool, error) {
	return reg.Permission == domain.PermissionGranted, nil
}

// GetToken registers the device with the platform application named by
// credential.
func (c *Channel) GetToken(ctx context.Context, reg domain.PushRegistration, credential string) (string, error) {
	if c.api == nil {
		return "", errors.New("sns not configured")
	}
	if credential == "" {
		return "", errors.New("no platform application configured")
	}
	if reg.DeviceToken == "" {
		return "", errors.New("missing device token")
	}
	out, err := c.api.CreatePlatformEndpoint(ctx, &awssns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(credential),
		Token:                  aws.String(reg.DeviceToken),
	})
	if err != nil {
		return "", fmt.Errorf("create platform endpoint: %w", err)
	}
	return aws.ToString(out.EndpointArn), nil
}

func (c *Channel) DeleteToken(ctx context.Context, token string) error {
	if c.api == nil {
		return errors.New("sns not configured")
	}
	_, err := c.api.DeleteEndpoint(ctx, &awssns.DeleteEndpointInput{EndpointArn: aws.String(token)})
	if err != nil {
		return fmt.Errorf("delete endpoint: %w", err)
	}
	return nil
}
