package sender

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	input *sns.PublishInput
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSNSSenderPublishesTransactionalSMS(t *testing.T) {
	pub := &fakePublisher{}
	s := NewSNSSenderWithClient(pub, "PLACECLAIM")

	require.NoError(t, s.SendSMS(context.Background(), "+14155550167", "code 123456"))
	require.NotNil(t, pub.input)
	assert.Equal(t, "+14155550167", aws.ToString(pub.input.PhoneNumber))
	assert.Equal(t, "code 123456", aws.ToString(pub.input.Message))
	assert.Equal(t, "Transactional", aws.ToString(pub.input.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))
	assert.Equal(t, "PLACECLAIM", aws.ToString(pub.input.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
}

func TestSNSSenderOmitsEmptySenderID(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, NewSNSSenderWithClient(pub, "").SendSMS(context.Background(), "+14155550167", "hi"))
	_, ok := pub.input.MessageAttributes["AWS.SNS.SMS.SenderID"]
	assert.False(t, ok)
}

func TestSNSSenderWrapsErrors(t *testing.T) {
	cause := errors.New("InvalidParameter")
	err := NewSNSSenderWithClient(&fakePublisher{err: cause}, "").SendSMS(context.Background(), "+1", "hi")
	assert.ErrorIs(t, err, cause)
}
