package aws

import (
	"context"
	"errors"
	"testing"
	"tourbook/src/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

type fakeSQS struct {
	lookups int
	sent    []*sqs.SendMessageInput
	sendErr error
}

func (f *fakeSQS) GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	f.lookups++
	return &sqs.GetQueueUrlOutput{QueueUrl: aws.String("https://sqs.local/000000000000/" + aws.ToString(params.QueueName))}, nil
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, params)
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSQSPublisherSendsEnvelope(t *testing.T) {
	client := &fakeSQS{}
	publisher := NewSQSPublisher(client, "booking-lifecycle")

	err := publisher.Publish(context.Background(), types.EVENT_PAYMENT_CONFIRMED, types.JSONB{
		"booking_id": "b-1",
		"amount":     200.0,
	})
	assert.NoError(t, err)
	err = publisher.Publish(context.Background(), types.EVENT_BOOKING_CANCELLED, types.JSONB{"booking_id": "b-1"})
	assert.NoError(t, err)

	assert.Equal(t, 1, client.lookups)
	assert.Len(t, client.sent, 2)
	first := client.sent[0]
	assert.Equal(t, "https://sqs.local/000000000000/booking-lifecycle", aws.ToString(first.QueueUrl))
	assert.Equal(t, "payment.confirmed", aws.ToString(first.MessageAttributes["type"].StringValue))

	body := aws.ToString(first.MessageBody)
	assert.Equal(t, "payment.confirmed", gjson.Get(body, "type").String())
	assert.Equal(t, "b-1", gjson.Get(body, "data.booking_id").String())
	assert.Equal(t, 200.0, gjson.Get(body, "data.amount").Float())
	assert.NotEmpty(t, gjson.Get(body, "id").String())
}

func TestSQSPublisherReturnsSendError(t *testing.T) {
	client := &fakeSQS{sendErr: errors.New("throttled")}
	publisher := NewSQSPublisher(client, "booking-lifecycle")

	err := publisher.Publish(context.Background(), types.EVENT_BOOKING_CREATED, types.JSONB{"booking_id": "b-2"})
	assert.EqualError(t, err, "throttled")
}
