package aws

import (
	"context"
	"encoding/json"
	"sync"
	"tourbook/src/lib"
	"tourbook/src/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type SQSAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends lifecycle events to a queue. The queue URL is resolved
// on first publish and cached.
type SQSPublisher struct {
	client SQSAPI
	queue  string

	mu       sync.Mutex
	queueUrl *string
}

func NewSQSPublisher(client SQSAPI, queue string) *SQSPublisher {
	return &SQSPublisher{client: client, queue: queue}
}

func (s *SQSPublisher) resolveQueueUrl(ctx context.Context) (*string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queueUrl != nil {
		return s.queueUrl, nil
	}
	qurl, err := s.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(s.queue),
	})
	if err != nil {
		lib.GetLogger().Errorf("Failed to retrieve queue URL for %s: %s", s.queue, err.Error())
		return nil, err
	}
	s.queueUrl = qurl.QueueUrl
	return s.queueUrl, nil
}

func (s *SQSPublisher) Publish(ctx context.Context, event types.LifecycleEvent, payload types.JSONB) error {
	qurl, err := s.resolveQueueUrl(ctx)
	if err != nil {
		return err
	}
	body, err := json.Marshal(lib.EventEnvelope(event, payload))
	if err != nil {
		return err
	}
	out, err := s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    qurl,
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(event)),
			},
		},
	})
	if err != nil {
		return err
	}
	lib.GetLogger().WithField("event", event).Debugf("Sent message: %s", aws.ToString(out.MessageId))
	return nil
}
