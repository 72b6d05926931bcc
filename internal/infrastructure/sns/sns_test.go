package sns

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/edutok-api/internal/application/push"
	"github.com/edutok-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) CreatePlatformEndpoint(ctx context.Context, in *awssns.CreatePlatformEndpointInput, _ ...func(*awssns.Options)) (*awssns.CreatePlatformEndpointOutput, error) {
	args := m.Called(ctx, in)
	if out, _ := args.Get(0).(*awssns.CreatePlatformEndpointOutput); out != nil {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAPI) DeleteEndpoint(ctx context.Context, in *awssns.DeleteEndpointInput, _ ...func(*awssns.Options)) (*awssns.DeleteEndpointOutput, error) {
	args := m.Called(ctx, in)
	return &awssns.DeleteEndpointOutput{}, args.Error(0)
}
func (m *mockAPI) Publish(ctx context.Context, in *awssns.PublishInput, _ ...func(*awssns.Options)) (*awssns.PublishOutput, error) {
	args := m.Called(ctx, in)
	return &awssns.PublishOutput{}, args.Error(0)
}

const appARN = "arn:aws:sns:us-east-1:1:app/GCM/edutok"

var reg = domain.PushRegistration{DeviceToken: "fcm-abc", Permission: "granted"}

func TestChannel_RequestPermission(t *testing.T) {
	c := NewChannel(nil)
	ok, err := c.RequestPermission(context.Background(), reg)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = c.RequestPermission(context.Background(), domain.PushRegistration{Permission: "denied"})
	assert.False(t, ok)
}

func TestChannel_GetTokenCreatesEndpoint(t *testing.T) {
	api := new(mockAPI)
	api.On("CreatePlatformEndpoint", mock.Anything, mock.MatchedBy(func(in *awssns.CreatePlatformEndpointInput) bool {
		return aws.ToString(in.PlatformApplicationArn) == appARN && aws.ToString(in.Token) == "fcm-abc"
	})).Return(&awssns.CreatePlatformEndpointOutput{EndpointArn: aws.String("arn:endpoint/1")}, nil)

	tok, err := NewChannel(api).GetToken(context.Background(), reg, appARN)
	require.NoError(t, err)
	assert.Equal(t, "arn:endpoint/1", tok)
}

func TestChannel_GetTokenNeedsCredentialAndDevice(t *testing.T) {
	api := new(mockAPI)
	c := NewChannel(api)

	_, err := c.GetToken(context.Background(), reg, "")
	assert.Error(t, err)
	_, err = c.GetToken(context.Background(), domain.PushRegistration{Permission: "granted"}, appARN)
	assert.Error(t, err)
	api.AssertNotCalled(t, "CreatePlatformEndpoint", mock.Anything, mock.Anything)

	_, err = NewChannel(nil).GetToken(context.Background(), reg, appARN)
	assert.Error(t, err)
}

func TestChannel_DeleteToken(t *testing.T) {
	api := new(mockAPI)
	api.On("DeleteEndpoint", mock.Anything, &awssns.DeleteEndpointInput{EndpointArn: aws.String("arn:endpoint/1")}).Return(errors.New("throttled"))

	err := NewChannel(api).DeleteToken(context.Background(), "arn:endpoint/1")
	assert.ErrorContains(t, err, "throttled")
}

func TestPayload_CarriesTagAndLink(t *testing.T) {
	body, err := Payload(push.Message{Title: "Nova nota", Body: "9.5", Tag: "notification-n1", Link: "/notifications", Data: map[string]string{"type": "grade"}})
	require.NoError(t, err)

	var outer map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &outer))
	assert.Equal(t, "9.5", outer["default"])
	assert.JSONEq(t, `{
		"notification":{"title":"Nova nota","body":"9.5","tag":"notification-n1","click_action":"/notifications"},
		"data":{"type":"grade"},
		"collapse_key":"notification-n1"
	}`, outer["GCM"])
}

func TestNotifier_PublishesJSONStructure(t *testing.T) {
	api := new(mockAPI)
	api.On("Publish", mock.Anything, mock.MatchedBy(func(in *awssns.PublishInput) bool {
		return aws.ToString(in.TargetArn) == "arn:endpoint/1" && aws.ToString(in.MessageStructure) == "json"
	})).Return(nil).Once()

	require.NoError(t, NewNotifier(api).Notify(context.Background(), "arn:endpoint/1", push.Message{Title: "t", Body: "b"}))
	api.AssertExpectations(t)
}
